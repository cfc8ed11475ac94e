package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamezone/internal/backend"
	"gamezone/internal/core"
	"gamezone/internal/sheets/memory"
	"gamezone/internal/storage"
)

type fakeReportClient struct {
	loginErr  error
	fetchErr  error
	gotName   string
	gotPass   string
	gotToken  string
	gotRange  core.DateRange
	snapshots *backend.Snapshot
}

func (f *fakeReportClient) Login(ctx context.Context, name, password string) (backend.LoginResult, error) {
	f.gotName, f.gotPass = name, password
	if f.loginErr != nil {
		return backend.LoginResult{}, f.loginErr
	}
	return backend.LoginResult{AccessToken: "tok"}, nil
}

func (f *fakeReportClient) FetchDashboard(ctx context.Context, token string, r core.DateRange) (*backend.Snapshot, error) {
	f.gotToken, f.gotRange = token, r
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	snap := *f.snapshots
	snap.Range = r
	return &snap, nil
}

var reportNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func newTestReporter(client reportClient, in string) (*reporter, *bytes.Buffer) {
	var out bytes.Buffer
	return &reporter{
		client:   client,
		location: time.UTC,
		layout:   "2006-01-02",
		now:      func() time.Time { return reportNow },
		in:       strings.NewReader(in),
		out:      &out,
		prompt:   &bytes.Buffer{},
	}, &out
}

func reportSnapshot() *backend.Snapshot {
	day := time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)
	return &backend.Snapshot{
		Summary: core.FinancialSummary{
			Income:  core.AmountOf(30),
			Expense: core.AmountOf(50),
			Profit:  core.AmountOf(-20),
		},
		Sales: []core.GameSale{{ID: "s1", TotalAmount: core.AmountOf(30), CreatedAt: day}},
		Expenses: []core.Expense{
			{ID: "e1", Category: core.CategoryRent, Amount: core.AmountOf(40), CreatedAt: day},
			{ID: "e2", Category: core.CategoryInternet, Amount: core.AmountOf(10), CreatedAt: day},
		},
	}
}

func TestResolveRange(t *testing.T) {
	r, err := resolveRange(reportOptions{Range: "month"}, reportNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, reportNow, r.To)

	r, err = resolveRange(reportOptions{Range: "custom", From: "2024-01-01", To: "2024-01-31"}, reportNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), r.To)

	_, err = resolveRange(reportOptions{Range: "fortnight"}, reportNow)
	assert.ErrorContains(t, err, "invalid range")

	_, err = resolveRange(reportOptions{Range: "custom", From: "01/01/2024"}, reportNow)
	assert.Error(t, err)
}

func TestReporter_PrintsAggregates(t *testing.T) {
	client := &fakeReportClient{snapshots: reportSnapshot()}
	r, out := newTestReporter(client, "pw\n")

	err := r.run(context.Background(), reportOptions{Admin: "Abebe", Range: "week"})

	require.NoError(t, err)
	assert.Equal(t, "Abebe", client.gotName)
	assert.Equal(t, "pw", client.gotPass)
	assert.Equal(t, "tok", client.gotToken)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), client.gotRange.From, "week starts on Monday")

	text := out.String()
	assert.Contains(t, text, "Total income")
	assert.Contains(t, text, "30 Birr")
	assert.Contains(t, text, "-20 Birr")
	assert.Contains(t, text, "negative margin")
	assert.Contains(t, text, "2024-05-14")
	assert.Contains(t, text, "RENT")
	assert.Contains(t, text, "80.0%")
	assert.NotContains(t, text, "Exported")
}

func TestReporter_Export(t *testing.T) {
	store := memory.New()
	client := &fakeReportClient{snapshots: reportSnapshot()}
	r, out := newTestReporter(client, "pw\n")
	r.exporter = store

	err := r.run(context.Background(), reportOptions{Admin: "Abebe", Range: "today", Export: true})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Exported to mem:report:1")
	require.Len(t, store.Reports(), 1)
	assert.Len(t, store.Reports()[0].Categories, 2)
}

func TestReporter_InvalidCredentials(t *testing.T) {
	client := &fakeReportClient{loginErr: backend.ErrInvalidCredentials}
	r, _ := newTestReporter(client, "nope\n")

	err := r.run(context.Background(), reportOptions{Admin: "Abebe", Range: "today"})

	assert.EqualError(t, err, "invalid admin name or password")
}

func TestReporter_FetchFailure(t *testing.T) {
	client := &fakeReportClient{fetchErr: errors.New("boom")}
	r, out := newTestReporter(client, "pw\n")

	err := r.run(context.Background(), reportOptions{Admin: "Abebe", Range: "today"})

	assert.ErrorContains(t, err, "fetching dashboard data")
	assert.Empty(t, out.String())
}

func TestReporter_EmptyPeriod(t *testing.T) {
	client := &fakeReportClient{snapshots: &backend.Snapshot{}}
	r, out := newTestReporter(client, "pw\n")

	require.NoError(t, r.run(context.Background(), reportOptions{Admin: "Abebe", Range: "today"}))

	assert.Contains(t, out.String(), "No sales or expenses in this period.")
	assert.Contains(t, out.String(), "No expenses in this period.")
}

func TestWriteActivity(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeActivity(&out, nil, time.UTC))
	assert.Equal(t, "No activity recorded.\n", out.String())

	out.Reset()
	entries := []storage.Activity{
		{EventID: "01H", Entity: "Game", Action: "CREATE", Admin: "Abebe", OccurredAt: reportNow},
		{EventID: "01J", Entity: "Expense", Action: "DELETE", EntityID: "e1", Admin: "Sara", OccurredAt: reportNow},
	}
	require.NoError(t, writeActivity(&out, entries, time.UTC))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "ADMIN")
	assert.Contains(t, lines[1], "2024-05-15 12:00")
	assert.Contains(t, lines[1], "-")
	assert.Contains(t, lines[2], "e1")
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "report", "activity", "sheets-auth"})

	report, _, err := root.Find([]string{"report"})
	require.NoError(t, err)
	assert.NotNil(t, report.Flags().Lookup("admin"))
	assert.Equal(t, "month", report.Flags().Lookup("range").DefValue)
}
