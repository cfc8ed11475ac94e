package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gamezone/internal/config"
	gsheet "gamezone/internal/sheets/google"
)

func newSheetsAuthCmd() *cobra.Command {
	var (
		clientFile string
		tokenFile  string
		port       string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize report export to Google Sheets",
		Long: "Runs the OAuth consent flow for an installed-app client and saves the " +
			"token used by report --export and the worker's activity sheet.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if clientFile == "" {
				clientFile = cfg.GoogleOAuthClientFile
			}
			if tokenFile == "" {
				tokenFile = cfg.GoogleOAuthTokenFile
			}

			var clientJSON []byte
			switch {
			case cfg.GoogleOAuthClientJSON != "" && clientFile == "":
				clientJSON = []byte(cfg.GoogleOAuthClientJSON)
			case clientFile != "":
				data, err := os.ReadFile(clientFile)
				if err != nil {
					return fmt.Errorf("reading OAuth client: %w", err)
				}
				clientJSON = data
			default:
				return fmt.Errorf("no OAuth client: pass --client or set GOOGLE_OAUTH_CLIENT_FILE")
			}

			return gsheet.Authorize(cmd.Context(), gsheet.AuthorizeOptions{
				ClientJSON:   clientJSON,
				RedirectPort: port,
				TokenFile:    tokenFile,
				Timeout:      timeout,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&clientFile, "client", "", "OAuth client JSON file (default GOOGLE_OAUTH_CLIENT_FILE)")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "Where to save the token (default GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	cmd.Flags().StringVar(&port, "port", "8085", "Local port for the OAuth redirect")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for consent")
	return cmd
}
