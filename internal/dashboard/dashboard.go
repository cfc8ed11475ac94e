// Package dashboard holds the per-session working set: the last fetched
// snapshot, its loading flag and the generation that guards it.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"gamezone/internal/analytics"
	"gamezone/internal/backend"
	"gamezone/internal/core"
)

// ErrSuperseded is returned by Load when a newer load for the same session
// started before this one finished. Its result was discarded.
var ErrSuperseded = errors.New("dashboard load superseded by a newer request")

// Fetcher performs the four-way batch read.
type Fetcher interface {
	FetchDashboard(ctx context.Context, token string, r core.DateRange) (*backend.Snapshot, error)
}

type state struct {
	mu         sync.Mutex
	generation uint64
	loading    bool
	snap       *backend.Snapshot
	options    *analytics.FilterOptions
}

// Service tracks dashboard state for every session.
type Service struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*state
}

// New creates the service.
func New(fetcher Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:  fetcher,
		logger:   logger.With("component", "dashboard"),
		sessions: make(map[string]*state),
	}
}

func (s *Service) state(sessionID string) *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &state{}
		s.sessions[sessionID] = st
	}
	return st
}

// Load fetches the batch for r and makes it the session's snapshot. Every
// call reaches the backend, including a repeat of the current range. A failed
// batch leaves the previous snapshot in place and is returned for the caller
// to report. A load overtaken by a newer one returns ErrSuperseded and
// changes nothing.
func (s *Service) Load(ctx context.Context, sessionID, token string, r core.DateRange) (*backend.Snapshot, error) {
	st := s.state(sessionID)

	st.mu.Lock()
	st.generation++
	gen := st.generation
	st.loading = true
	st.mu.Unlock()

	defer func() {
		st.mu.Lock()
		if st.generation == gen {
			st.loading = false
		}
		st.mu.Unlock()
	}()

	snap, err := s.fetcher.FetchDashboard(ctx, token, r)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.generation != gen {
		s.logger.DebugContext(ctx, "Discarding superseded dashboard load",
			"session", sessionID, "generation", gen, "latest", st.generation)
		return nil, ErrSuperseded
	}
	st.snap = snap
	st.options = nil
	return snap, nil
}

// Current returns the session's committed snapshot, if any.
func (s *Service) Current(sessionID string) (*backend.Snapshot, bool) {
	st := s.state(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snap, st.snap != nil
}

// AuditOptions returns the filter option sets of snap. They are memoized
// while snap is the session's current snapshot; any other snapshot is
// computed directly so options and table always come from the same data.
func (s *Service) AuditOptions(sessionID string, snap *backend.Snapshot) analytics.FilterOptions {
	if snap == nil {
		return analytics.FilterOptions{}
	}
	st := s.state(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.snap != snap {
		return analytics.AuditOptions(snap.Audit)
	}
	if st.options == nil {
		opts := analytics.AuditOptions(snap.Audit)
		st.options = &opts
	}
	return *st.options
}

// Loading reports whether a load is in flight for the session.
func (s *Service) Loading(sessionID string) bool {
	st := s.state(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.loading
}

// Forget discards everything held for a session.
func (s *Service) Forget(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}
