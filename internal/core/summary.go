package core

// FinancialSummary is the backend-computed aggregate for a date range.
type FinancialSummary struct {
	Income  Amount `json:"income"`
	Expense Amount `json:"expense"`
	Profit  Amount `json:"profit"`
}

// SummaryCards is what the three headline cards display.
type SummaryCards struct {
	Income       int64
	Expense      int64
	Profit       int64
	SaleCount    int
	ExpenseCount int
}

// Cards truncates the backend totals to whole Birr; NaN shows as 0.
func (s FinancialSummary) Cards(saleCount, expenseCount int) SummaryCards {
	return SummaryCards{
		Income:       TruncInt(s.Income.Float()),
		Expense:      TruncInt(s.Expense.Float()),
		Profit:       TruncInt(s.Profit.Float()),
		SaleCount:    saleCount,
		ExpenseCount: expenseCount,
	}
}

// PositiveMargin drives the profit card colour and caption.
func (c SummaryCards) PositiveMargin() bool {
	return c.Profit >= 0
}
