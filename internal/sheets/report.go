package sheets

import (
	"math"
	"time"

	"gamezone/internal/analytics"
	"gamezone/internal/backend"
	"gamezone/internal/core"
)

// Report is the exportable view of one dashboard snapshot.
type Report struct {
	Range       core.DateRange
	GeneratedAt time.Time
	Summary     core.FinancialSummary
	Days        []analytics.DailyPoint
	Categories  []analytics.CategorySlice
}

// BuildReport runs the aggregation pipeline over a snapshot.
func BuildReport(snap *backend.Snapshot, key analytics.DayKey, now time.Time) Report {
	return Report{
		Range:       snap.Range,
		GeneratedAt: now,
		Summary:     snap.Summary,
		Days:        analytics.BuildDailySeries(snap.Sales, snap.Expenses, key),
		Categories:  analytics.BuildCategoryBreakdown(snap.Expenses),
	}
}

// Rows lays the report out as a grid: a header block, one row per day,
// then the category block.
func (r Report) Rows() [][]any {
	rows := [][]any{
		{"Range", r.Range.FromISO(), r.Range.ToISO()},
		{"Generated", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Income", cell(r.Summary.Income.Float()), "Expense", cell(r.Summary.Expense.Float()), "Profit", cell(r.Summary.Profit.Float())},
		{},
		{"date", "income", "expense", "profit"},
	}
	for _, d := range r.Days {
		rows = append(rows, []any{d.Date, cell(d.Income), cell(d.Expense), cell(d.Profit)})
	}
	rows = append(rows, []any{}, []any{"category", "total"})
	for _, c := range r.Categories {
		rows = append(rows, []any{c.Category, cell(c.Total)})
	}
	return rows
}

// ActivityRow is the journal layout: id, timestamp, admin, action, entity, entity id.
func ActivityRow(ev core.MutationEvent) []any {
	return []any{ev.ID, ev.Timestamp.UTC().Format(time.RFC3339), ev.Admin, ev.Action, ev.Entity, ev.EntityID}
}

// cell keeps finite numbers numeric and spells out the rest.
func cell(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return core.FormatNumber(f)
	}
	return f
}
