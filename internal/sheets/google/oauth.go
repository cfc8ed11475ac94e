package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// AuthorizeOptions drives the one-off installed-app consent flow.
type AuthorizeOptions struct {
	ClientJSON   []byte
	RedirectPort string
	TokenFile    string
	Timeout      time.Duration
}

// Authorize prints the consent URL, waits for the redirect on localhost and
// saves the exchanged token to TokenFile.
func Authorize(ctx context.Context, opts AuthorizeOptions, out io.Writer) error {
	cfg, err := oauthConfig(opts.ClientJSON)
	if err != nil {
		return err
	}
	if opts.RedirectPort == "" {
		opts.RedirectPort = "8085"
	}
	if opts.TokenFile == "" {
		opts.TokenFile = "token.json"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	// The OAuth client must list this URI in its authorized redirect URIs.
	cfg.RedirectURL = "http://localhost:" + opts.RedirectPort + "/callback"

	ln, err := net.Listen("tcp", "localhost:"+opts.RedirectPort)
	if err != nil {
		return fmt.Errorf("listen for oauth callback: %w", err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			errCh <- fmt.Errorf("oauth error: %s", errStr)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		codeCh <- r.URL.Query().Get("code")
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	url := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open this URL to authorize:\n%s\n", url)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-time.After(opts.Timeout):
		return errors.New("authorization timed out")
	case <-ctx.Done():
		return ctx.Err()
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	if err := saveToken(opts.TokenFile, tok); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved token to %s\n", opts.TokenFile)
	return nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
