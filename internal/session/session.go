// Package session keeps the admin's token and name server-side, keyed by a
// random id carried in a browser cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"gamezone/internal/backend"
	"gamezone/internal/core"
)

// Persisted slot names.
const (
	SlotToken = "token"
	SlotName  = "name"
)

var (
	ErrMissingCredentials = errors.New("missing admin name or password")
	ErrInvalidLogin       = errors.New("invalid admin name or password")
)

// LoginMessage is the text shown on the login page for a Login error.
func LoginMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return "Please enter both admin name and password"
	case errors.Is(err, ErrInvalidLogin):
		return "Invalid admin name or password"
	default:
		return "Unable to sign in right now, please try again"
	}
}

// Storage is the key/value backend holding session slots.
type Storage interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Save(ctx context.Context, id string, values map[string]string) error
	Delete(ctx context.Context, id string) error
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, name, password string) (backend.LoginResult, error)
}

// Session is the hydrated state of one browser session.
type Session struct {
	ID    string
	Token string
	Name  string
}

// Authenticated is true when a name is present and the token, if it is a
// JWT with an exp claim, has not expired.
func (s Session) Authenticated() bool {
	return s.authenticatedAt(time.Now())
}

func (s Session) authenticatedAt(now time.Time) bool {
	if s.Name == "" {
		return false
	}
	exp, ok := TokenExpiry(s.Token)
	return !ok || now.Before(exp)
}

// TokenExpiry reads the exp claim without verifying the signature; the
// backend is the only party that verifies. Opaque tokens report false.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Store is the explicit session lifecycle: Hydrate, Login, Logout.
type Store struct {
	storage  Storage
	auth     Authenticator
	validate *validator.Validate
	logger   *slog.Logger
}

func NewStore(storage Storage, auth Authenticator, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage:  storage,
		auth:     auth,
		validate: core.NewValidator(),
		logger:   logger.With("component", "session"),
	}
}

// NewID returns a fresh session id.
func (s *Store) NewID() string {
	return uuid.NewString()
}

// Hydrate reads the persisted slots for id. An unknown id gives an empty,
// unauthenticated session.
func (s *Store) Hydrate(ctx context.Context, id string) (Session, error) {
	sess := Session{ID: id}
	if id == "" {
		return sess, nil
	}
	values, err := s.storage.Load(ctx, id)
	if err != nil {
		return sess, fmt.Errorf("load session: %w", err)
	}
	sess.Token = values[SlotToken]
	sess.Name = values[SlotName]
	return sess, nil
}

// Login authenticates against the backend and persists token and name only
// when an access token was issued. Use LoginMessage to display the error.
func (s *Store) Login(ctx context.Context, id, name, password string) (Session, error) {
	if err := s.validate.Struct(core.LoginForm{Name: name, Password: password}); err != nil {
		return Session{ID: id}, ErrMissingCredentials
	}

	res, err := s.auth.Login(ctx, name, password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			s.logger.InfoContext(ctx, "Login rejected", "admin", name)
			return Session{ID: id}, ErrInvalidLogin
		}
		s.logger.ErrorContext(ctx, "Login request failed", "admin", name, "error", err)
		return Session{ID: id}, fmt.Errorf("login: %w", err)
	}

	sess := Session{ID: id, Token: res.AccessToken, Name: res.User.Name}
	if sess.Name == "" {
		sess.Name = name
	}
	if err := s.storage.Save(ctx, id, map[string]string{SlotToken: sess.Token, SlotName: sess.Name}); err != nil {
		return Session{ID: id}, fmt.Errorf("save session: %w", err)
	}

	s.logger.InfoContext(ctx, "Admin logged in", "admin", sess.Name)
	return sess, nil
}

// Logout clears both slots.
func (s *Store) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
