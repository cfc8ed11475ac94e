package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamezone/internal/core"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func sale(t time.Time, total float64) core.GameSale {
	return core.GameSale{CreatedAt: t, TotalAmount: core.AmountOf(total)}
}

func expense(t time.Time, cat core.ExpenseCategory, amount float64) core.Expense {
	return core.Expense{CreatedAt: t, Category: cat, Amount: core.AmountOf(amount)}
}

var isoDay = LocalDay(time.UTC, "2006-01-02")

func TestBuildDailySeries_Scenario(t *testing.T) {
	sales := []core.GameSale{
		sale(day(2024, 1, 1, 10), 50),
		sale(day(2024, 1, 1, 14), 30),
	}
	expenses := []core.Expense{expense(day(2024, 1, 1, 9), core.CategoryRent, 20)}

	got := BuildDailySeries(sales, expenses, isoDay)

	require.Len(t, got, 1)
	assert.Equal(t, DailyPoint{Date: "2024-01-01", Income: 80, Expense: 20, Profit: 60}, got[0])
}

func TestBuildDailySeries_InsertionOrderAndNoZeroFill(t *testing.T) {
	sales := []core.GameSale{
		sale(day(2024, 1, 3, 10), 10),
		sale(day(2024, 1, 1, 10), 5),
	}
	expenses := []core.Expense{
		expense(day(2024, 1, 5, 10), core.CategoryOther, 7),
		expense(day(2024, 1, 1, 11), core.CategoryOther, 2),
	}

	got := BuildDailySeries(sales, expenses, isoDay)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"2024-01-03", "2024-01-01", "2024-01-05"},
		[]string{got[0].Date, got[1].Date, got[2].Date})
	assert.Equal(t, DailyPoint{Date: "2024-01-05", Income: 0, Expense: 7, Profit: -7}, got[2])
	for _, p := range got {
		assert.Equal(t, p.Income-p.Expense, p.Profit, "profit identity for %s", p.Date)
	}
}

func TestBuildDailySeries_UsesViewerLocation(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	// 22:30 UTC on Jan 1 is already Jan 2 in UTC+3.
	sales := []core.GameSale{sale(time.Date(2024, 1, 1, 22, 30, 0, 0, time.UTC), 10)}

	got := BuildDailySeries(sales, nil, LocalDay(eat, DefaultDayLayout))

	require.Len(t, got, 1)
	assert.Equal(t, "1/2/2024", got[0].Date)
}

func TestBuildDailySeries_Empty(t *testing.T) {
	assert.Empty(t, BuildDailySeries(nil, nil, isoDay))
	assert.Empty(t, BuildCategoryBreakdown(nil))
}

func TestBuildDailySeries_NaNPropagates(t *testing.T) {
	sales := []core.GameSale{
		{CreatedAt: day(2024, 1, 1, 10)},
		sale(day(2024, 1, 1, 11), 10),
	}
	got := BuildDailySeries(sales, nil, isoDay)
	require.Len(t, got, 1)
	assert.True(t, math.IsNaN(got[0].Income))
	assert.True(t, math.IsNaN(got[0].Profit))
}

func TestBuildCategoryBreakdown(t *testing.T) {
	expenses := []core.Expense{
		expense(day(2024, 1, 1, 1), core.CategoryRent, 100),
		expense(day(2024, 1, 2, 1), core.CategoryElectricity, 25.5),
		expense(day(2024, 1, 3, 1), core.CategoryRent, 50),
		expense(day(2024, 1, 3, 2), core.CategoryInternet, 10),
	}

	got := BuildCategoryBreakdown(expenses)

	require.Len(t, got, 3)
	assert.Equal(t, CategorySlice{Category: "RENT", Total: 150}, got[0])
	assert.Equal(t, CategorySlice{Category: "ELECTRICITY", Total: 25.5}, got[1])
	assert.Equal(t, CategorySlice{Category: "INTERNET", Total: 10}, got[2])

	var sum float64
	for _, c := range got {
		sum += c.Total
	}
	assert.InDelta(t, TotalExpenses(expenses), sum, 1e-9)
}

func TestCategoryBars(t *testing.T) {
	bars := CategoryBars([]CategorySlice{
		{Category: "RENT", Total: 150},
		{Category: "ELECTRICITY", Total: 50},
		{Category: "A", Total: 1},
		{Category: "B", Total: 1},
		{Category: "C", Total: 1},
		{Category: "D", Total: 1},
	})

	require.Len(t, bars, 6)
	assert.Equal(t, 100, bars[0].Width)
	assert.Equal(t, 33, bars[1].Width)
	assert.Equal(t, 2, bars[2].Width, "tiny values stay visible")
	assert.Equal(t, "#3b82f6", bars[0].Color)
	assert.Equal(t, "#3b82f6", bars[5].Color, "palette cycles")
	assert.InDelta(t, 73.5, bars[0].Percent, 0.01)
}

func TestDailyBars(t *testing.T) {
	bars := DailyBars([]DailyPoint{
		{Date: "a", Income: 100, Expense: 20, Profit: 80},
		{Date: "b", Income: 0, Expense: 50, Profit: -50},
	})

	require.Len(t, bars, 2)
	assert.Equal(t, 100, bars[0].IncomeWidth)
	assert.Equal(t, 20, bars[0].ExpenseWidth)
	assert.Equal(t, 0, bars[1].IncomeWidth)
	assert.Equal(t, 50, bars[1].ProfitWidth)
	assert.True(t, bars[1].Loss)
}
