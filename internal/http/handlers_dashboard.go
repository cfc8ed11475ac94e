package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gamezone/internal/analytics"
	"gamezone/internal/auditdiff"
	"gamezone/internal/backend"
	"gamezone/internal/core"
	"gamezone/internal/dashboard"
	gzlog "gamezone/internal/log"
)

// loadFailedMessage is the banner shown when the fetch batch fails.
const loadFailedMessage = "Failed to load dashboard data"

type rangeOption struct {
	Value core.QuickRange
	Label string
}

var rangeOptions = []rangeOption{
	{core.RangeToday, "Today"},
	{core.RangeWeek, "This week"},
	{core.RangeMonth, "This month"},
	{core.RangeYear, "This year"},
	{core.RangeCustom, "Custom range"},
}

type dashboardPage struct {
	Admin  string
	Range  RangeParams
	Ranges []rangeOption
}

type auditView struct {
	Filter  analytics.AuditFilter
	Options analytics.FilterOptions
	Entries []core.AuditEntry
	Total   int
}

// Active is true when a dropdown filter or the search narrows the table.
func (v auditView) Active() bool {
	return v.Filter.Active() || v.Filter.Search != ""
}

type dashboardView struct {
	Error        string
	HasData      bool
	Range        core.DateRange
	FetchedAt    time.Time
	Cards        core.SummaryCards
	Daily        []analytics.DailyBar
	Categories   []analytics.CategoryBar
	ExpenseTotal float64
	Sales        []core.GameSale
	Expenses     []core.Expense
	Audit        auditView
}

type auditDetailView struct {
	Entry core.AuditEntry
	Diff  auditdiff.Result
}

func (s *Server) dayKey() analytics.DayKey {
	return analytics.LocalDay(s.opts.Location, s.opts.DayLayout)
}

func (s *Server) buildDashboardView(sessionID string, snap *backend.Snapshot, f analytics.AuditFilter) dashboardView {
	return dashboardView{
		HasData:      true,
		Range:        snap.Range,
		FetchedAt:    snap.FetchedAt,
		Cards:        snap.Summary.Cards(len(snap.Sales), len(snap.Expenses)),
		Daily:        analytics.DailyBars(analytics.BuildDailySeries(snap.Sales, snap.Expenses, s.dayKey())),
		Categories:   analytics.CategoryBars(analytics.BuildCategoryBreakdown(snap.Expenses)),
		ExpenseTotal: analytics.TotalExpenses(snap.Expenses),
		Sales:        snap.Sales,
		Expenses:     snap.Expenses,
		Audit:        s.buildAuditView(sessionID, snap, f),
	}
}

func (s *Server) buildAuditView(sessionID string, snap *backend.Snapshot, f analytics.AuditFilter) auditView {
	v := auditView{Filter: f.Normalize()}
	if snap == nil {
		return v
	}
	v.Options = s.dashboard.AuditOptions(sessionID, snap)
	v.Entries = analytics.FilterAudit(snap.Audit, v.Filter)
	v.Total = len(snap.Audit)
	return v
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	rp, _ := ParseRangeParams(nil, s.now().In(s.opts.Location))
	s.render(w, r, http.StatusOK, "dashboard.html", dashboardPage{
		Admin:  sess.Name,
		Range:  rp,
		Ranges: rangeOptions,
	})
}

// handleDashboardBody runs the fetch batch for the selected range and
// renders the whole body. A failed batch keeps showing the last snapshot
// under an error banner; a superseded one swaps nothing.
func (s *Server) handleDashboardBody(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := currentSession(ctx)
	query := r.URL.Query()

	rp, err := ParseRangeParams(query, s.now().In(s.opts.Location))
	if err != nil {
		BadRequestError("Invalid date range").TriggerErrorNotification(err.Error()).Write(w)
		return
	}
	filter := ParseAuditFilter(query)

	snap, err := s.dashboard.Load(ctx, sess.ID, sess.Token, rp.Range)
	switch {
	case errors.Is(err, dashboard.ErrSuperseded):
		NewHTMXResponse().Reswap("none").Status(http.StatusNoContent).Write(w)
		return
	case backend.IsUnauthorized(err):
		s.logger.InfoContext(ctx, "Backend rejected the session token", gzlog.FieldAdmin, sess.Name)
		s.endSession(w, r)
		s.redirectToLogin(w, r)
		return
	case err != nil:
		s.appMetrics.dashboardFailures.Add(1)
		s.logFailure(r, loadFailedMessage, err, gzlog.ComponentDashboard, gzlog.OpRead,
			gzlog.LogFields{gzlog.FieldRange: rp.Range.String()})
		view := dashboardView{}
		if prev, ok := s.dashboard.Current(sess.ID); ok {
			view = s.buildDashboardView(sess.ID, prev, filter)
		}
		view.Error = loadFailedMessage
		s.render(w, r, http.StatusOK, "dashboard_body.html", view)
		return
	}

	s.appMetrics.dashboardLoads.Add(1)
	s.render(w, r, http.StatusOK, "dashboard_body.html", s.buildDashboardView(sess.ID, snap, filter))
}

// handleAuditTable filters the current snapshot's audit log without
// re-fetching. Clearing re-renders the whole section so the filter
// controls reset too.
func (s *Server) handleAuditTable(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	query := r.URL.Query()
	filter := ParseAuditFilter(query)
	snap, _ := s.dashboard.Current(sess.ID)

	name := "audit_table.html"
	if query.Has("clear") {
		name = "audit_log.html"
	}
	s.render(w, r, http.StatusOK, name, s.buildAuditView(sess.ID, snap, filter))
}

func (s *Server) handleAuditDetail(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r.Context())
	id := chi.URLParam(r, "id")

	snap, ok := s.dashboard.Current(sess.ID)
	if !ok {
		NotFoundError("Audit entry not found").Write(w)
		return
	}
	entry, ok := snap.FindAudit(id)
	if !ok {
		NotFoundError("Audit entry not found").Write(w)
		return
	}

	s.render(w, r, http.StatusOK, "audit_detail.html", auditDetailView{
		Entry: entry,
		Diff:  s.auditDiff(entry),
	})
}

// auditDiff compares the entry's snapshots once per entry id.
func (s *Server) auditDiff(entry core.AuditEntry) auditdiff.Result {
	if s.diffs == nil || entry.ID == "" {
		return auditdiff.Compare(entry.Before, entry.After)
	}
	if res, ok := s.diffs.Get(entry.ID); ok {
		return res
	}
	res := auditdiff.Compare(entry.Before, entry.After)
	s.diffs.Set(entry.ID, res)
	return res
}
