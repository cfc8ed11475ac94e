package analytics

import "math"

// Palette is cycled over the category chart.
var Palette = []string{"#3b82f6", "#ef4444", "#10b981", "#f59e0b", "#8b5cf6"}

// ColorAt returns the palette colour for the i-th slice.
func ColorAt(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// DailyBar is a DailyPoint with bar widths in percent of the largest magnitude.
type DailyBar struct {
	DailyPoint
	IncomeWidth  int
	ExpenseWidth int
	ProfitWidth  int
	Loss         bool
}

// CategoryBar is a CategorySlice ready for rendering.
type CategoryBar struct {
	CategorySlice
	Color   string
	Width   int
	Percent float64
}

// DailyBars scales every value of the series against the largest absolute value.
func DailyBars(points []DailyPoint) []DailyBar {
	var max float64
	for _, p := range points {
		max = math.Max(max, finiteAbs(p.Income))
		max = math.Max(max, finiteAbs(p.Expense))
		max = math.Max(max, finiteAbs(p.Profit))
	}
	out := make([]DailyBar, 0, len(points))
	for _, p := range points {
		out = append(out, DailyBar{
			DailyPoint:   p,
			IncomeWidth:  barWidth(p.Income, max),
			ExpenseWidth: barWidth(p.Expense, max),
			ProfitWidth:  barWidth(p.Profit, max),
			Loss:         p.Profit < 0,
		})
	}
	return out
}

// CategoryBars scales the breakdown and computes each category's share of
// the total.
func CategoryBars(slices []CategorySlice) []CategoryBar {
	var max, total float64
	for _, s := range slices {
		max = math.Max(max, finiteAbs(s.Total))
		if !math.IsNaN(s.Total) {
			total += s.Total
		}
	}
	out := make([]CategoryBar, 0, len(slices))
	for i, s := range slices {
		b := CategoryBar{
			CategorySlice: s,
			Color:         ColorAt(i),
			Width:         barWidth(s.Total, max),
		}
		if total > 0 && !math.IsNaN(s.Total) {
			b.Percent = math.Round(s.Total/total*1000) / 10
		}
		out = append(out, b)
	}
	return out
}

// barWidth is the rounded percentage of v against max, at least 2 so that
// small non-zero values stay visible.
func barWidth(v, max float64) int {
	v = finiteAbs(v)
	if max <= 0 || v <= 0 {
		return 0
	}
	w := int(math.Round(v * 100 / max))
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

func finiteAbs(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Abs(v)
}
