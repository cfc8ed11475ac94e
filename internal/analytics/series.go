// Package analytics turns the raw sale, expense and audit lists of a
// dashboard snapshot into chart series and filtered table views. Every
// function here is pure; callers may memoize results per snapshot.
package analytics

import (
	"time"

	"gamezone/internal/core"
)

// DefaultDayLayout matches the short numeric date a US-English browser shows.
const DefaultDayLayout = "1/2/2006"

// DayKey maps an instant onto the label of its calendar day.
type DayKey func(time.Time) string

// LocalDay buckets instants by calendar day in loc, labelled with layout.
func LocalDay(loc *time.Location, layout string) DayKey {
	if loc == nil {
		loc = time.Local
	}
	if layout == "" {
		layout = DefaultDayLayout
	}
	return func(t time.Time) string {
		return t.In(loc).Format(layout)
	}
}

// DailyPoint is one day of the income/expense chart.
type DailyPoint struct {
	Date    string
	Income  float64
	Expense float64
	Profit  float64
}

// BuildDailySeries groups sales and expenses by day. Days appear in the order
// they are first seen, sales before expenses; days with no rows produce no
// point. Amounts are summed as-is so a malformed amount turns its day's
// totals into NaN.
func BuildDailySeries(sales []core.GameSale, expenses []core.Expense, key DayKey) []DailyPoint {
	if key == nil {
		key = LocalDay(nil, "")
	}
	index := make(map[string]int)
	var points []DailyPoint

	bucket := func(t time.Time) *DailyPoint {
		k := key(t)
		i, ok := index[k]
		if !ok {
			i = len(points)
			index[k] = i
			points = append(points, DailyPoint{Date: k})
		}
		return &points[i]
	}

	for _, s := range sales {
		p := bucket(s.CreatedAt)
		p.Income += s.TotalAmount.Float()
	}
	for _, e := range expenses {
		p := bucket(e.CreatedAt)
		p.Expense += e.Amount.Float()
	}
	for i := range points {
		points[i].Profit = points[i].Income - points[i].Expense
	}
	return points
}

// CategorySlice is the summed amount of one expense category.
type CategorySlice struct {
	Category string
	Total    float64
}

// BuildCategoryBreakdown sums expenses per category in first-seen order.
func BuildCategoryBreakdown(expenses []core.Expense) []CategorySlice {
	index := make(map[string]int)
	var out []CategorySlice
	for _, e := range expenses {
		c := string(e.Category)
		i, ok := index[c]
		if !ok {
			i = len(out)
			index[c] = i
			out = append(out, CategorySlice{Category: c})
		}
		out[i].Total += e.Amount.Float()
	}
	return out
}

// TotalExpenses sums every expense amount.
func TotalExpenses(expenses []core.Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount.Float()
	}
	return total
}
