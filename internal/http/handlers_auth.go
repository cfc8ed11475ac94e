package http

import (
	"context"
	"errors"
	"net/http"

	"gamezone/internal/core"
	gzlog "gamezone/internal/log"
	"gamezone/internal/session"
)

type sessionContextKey struct{}

// currentSession returns the session attached by requireSession.
func currentSession(ctx context.Context) session.Session {
	sess, _ := ctx.Value(sessionContextKey{}).(session.Session)
	return sess
}

// requireSession hydrates the session from its cookie and sends anyone
// without a live login back to /login.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := session.IDFromRequest(r)
		sess, err := s.sessions.Hydrate(r.Context(), id)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to hydrate session", gzlog.FieldError, err)
		}
		if err != nil || !sess.Authenticated() {
			s.redirectToLogin(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect("/login").Status(http.StatusUnauthorized).Write(w)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type loginPage struct {
	Name   string
	Admins []core.Admin
	Error  string
}

func (s *Server) loginPage(ctx context.Context, name, message string) loginPage {
	page := loginPage{Name: name, Error: message}
	if s.admins == nil {
		return page
	}
	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to list admins", gzlog.FieldError, err)
		return page
	}
	page.Admins = admins
	return page
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sess, err := s.sessions.Hydrate(r.Context(), session.IDFromRequest(r)); err == nil && sess.Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", s.loginPage(r.Context(), "", ""))
}

// handleLogin persists token and name only when the backend issued a token.
// Every failure re-renders the form keeping the name and clearing the password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", s.loginPage(r.Context(), "", "Invalid request format"))
		return
	}
	name := sanitizeInput(r.PostForm.Get("name"))
	password := r.PostForm.Get("password")

	// A fresh id on every login; the old one is dropped on success.
	oldID := session.IDFromRequest(r)
	id := s.sessions.NewID()

	sess, err := s.sessions.Login(r.Context(), id, name, password)
	if err != nil {
		s.appMetrics.failedLogins.Add(1)
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, session.ErrMissingCredentials):
			status = http.StatusBadRequest
		case !errors.Is(err, session.ErrInvalidLogin):
			status = http.StatusServiceUnavailable
		}
		s.render(w, r, status, "login.html", s.loginPage(r.Context(), name, session.LoginMessage(err)))
		return
	}

	if oldID != "" {
		if err := s.sessions.Logout(r.Context(), oldID); err != nil {
			s.logger.WarnContext(r.Context(), "Failed to drop previous session", gzlog.FieldError, err)
		}
		s.dashboard.Forget(oldID)
	}

	s.appMetrics.logins.Add(1)
	s.logger.InfoContext(r.Context(), "Admin signed in",
		gzlog.FieldAdmin, sess.Name,
		gzlog.FieldOperation, gzlog.OpLogin)
	session.SetCookie(w, sess.ID, s.opts.SessionTTL, s.opts.CookieSecure)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	if isHTMX(r) {
		NewHTMXResponse().Redirect("/login").Write(w)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// endSession clears both slots, the dashboard state and the cookie.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	id := session.IDFromRequest(r)
	if id != "" {
		if err := s.sessions.Logout(r.Context(), id); err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to clear session", gzlog.FieldError, err)
		}
		s.dashboard.Forget(id)
	}
	session.ClearCookie(w, s.opts.CookieSecure)
	s.logger.InfoContext(r.Context(), "Admin signed out", gzlog.FieldOperation, gzlog.OpLogout)
}
