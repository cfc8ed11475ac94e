package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gamezone/internal/analytics"
	"gamezone/internal/backend"
	"gamezone/internal/cli"
	"gamezone/internal/core"
	gzlog "gamezone/internal/log"
	"gamezone/internal/sheets"
	"gamezone/internal/sheets/memory"
)

type reportOptions struct {
	Admin  string
	Range  string
	From   string
	To     string
	Export bool
}

// reportClient is the slice of the backend the report needs.
type reportClient interface {
	Login(ctx context.Context, name, password string) (backend.LoginResult, error)
	FetchDashboard(ctx context.Context, token string, r core.DateRange) (*backend.Snapshot, error)
}

type reporter struct {
	client   reportClient
	exporter sheets.ReportExporter
	location *time.Location
	layout   string
	now      func() time.Time

	in     io.Reader
	out    io.Writer
	prompt io.Writer
}

func newReportCmd() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard aggregates for a range",
		Long: "Signs in as an admin, fetches the dashboard batch for the range and prints " +
			"the summary, the daily series and the expense breakdown. " +
			"With --export the report is also written to Google Sheets.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Admin, "admin", "a", "", "Admin name to sign in as (required)")
	cmd.Flags().StringVarP(&opts.Range, "range", "r", string(core.RangeMonth), "today, week, month, year or custom")
	cmd.Flags().StringVar(&opts.From, "from", "", "Custom range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "Custom range end (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.Export, "export", false, "Export the report to Google Sheets")
	_ = cmd.MarkFlagRequired("admin")

	return cmd
}

func runReport(cmd *cobra.Command, opts reportOptions) error {
	ctx := cmd.Context()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, closer := cli.SetupLogger(cfg)
	defer closer.Close()

	r := &reporter{
		client:   backend.New(cfg.BackendURL, cfg.BackendTimeout, logger.WithComponent(gzlog.ComponentBackend).Logger),
		location: cfg.Location(),
		layout:   cfg.DisplayLayout,
		now:      time.Now,
		in:       cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		prompt:   cmd.ErrOrStderr(),
	}

	if opts.Export {
		client, err := cli.InitSheets(ctx, logger, cfg)
		if err != nil {
			return err
		}
		if client != nil {
			r.exporter = client
		} else {
			r.exporter = memory.New()
		}
	}

	return r.run(ctx, opts)
}

// resolveRange applies the same rules as the dashboard's range selector.
func resolveRange(opts reportOptions, now time.Time) (core.DateRange, error) {
	q := core.ParseQuickRange(opts.Range)
	if string(q) != strings.ToLower(strings.TrimSpace(opts.Range)) {
		return core.DateRange{}, fmt.Errorf("invalid range %q: must be one of today, week, month, year, custom", opts.Range)
	}
	if q == core.RangeCustom {
		return core.ParseCustomRange(opts.From, opts.To, now)
	}
	return q.Resolve(now), nil
}

func (r *reporter) run(ctx context.Context, opts reportOptions) error {
	now := r.now().In(r.location)
	dr, err := resolveRange(opts, now)
	if err != nil {
		return err
	}

	password, err := cli.ReadPassword(r.in, r.prompt, fmt.Sprintf("Password for %s: ", opts.Admin))
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	login, err := r.client.Login(ctx, opts.Admin, password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			return errors.New("invalid admin name or password")
		}
		return fmt.Errorf("signing in: %w", err)
	}

	snap, err := r.client.FetchDashboard(ctx, login.AccessToken, dr)
	if err != nil {
		return fmt.Errorf("fetching dashboard data: %w", err)
	}

	report := sheets.BuildReport(snap, analytics.LocalDay(r.location, r.layout), r.now())
	if err := writeReport(r.out, report, len(snap.Sales), len(snap.Expenses)); err != nil {
		return err
	}

	if opts.Export && r.exporter != nil {
		ref, err := r.exporter.ExportReport(ctx, report)
		if err != nil {
			return fmt.Errorf("exporting report: %w", err)
		}
		fmt.Fprintf(r.out, "\nExported to %s\n", ref)
	}
	return nil
}

func writeReport(out io.Writer, rep sheets.Report, sales, expenses int) error {
	cards := rep.Summary.Cards(sales, expenses)

	fmt.Fprintf(out, "Range: %s\n\n", rep.Range)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total income\t%s\t%d game sales\n", core.FormatBirr(float64(cards.Income)), cards.SaleCount)
	fmt.Fprintf(tw, "Total expenses\t%s\t%d expenses\n", core.FormatBirr(float64(cards.Expense)), cards.ExpenseCount)
	margin := "negative margin"
	if cards.PositiveMargin() {
		margin = "positive margin"
	}
	fmt.Fprintf(tw, "Net profit\t%s\t%s\n", core.FormatBirr(float64(cards.Profit)), margin)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nDaily")
	if len(rep.Days) == 0 {
		fmt.Fprintln(out, "  No sales or expenses in this period.")
	} else {
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "date\tincome\texpense\tprofit\t")
		for _, d := range rep.Days {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", d.Date,
				core.FormatNumber(d.Income), core.FormatNumber(d.Expense), core.FormatNumber(d.Profit))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "\nExpenses by category")
	if len(rep.Categories) == 0 {
		fmt.Fprintln(out, "  No expenses in this period.")
		return nil
	}
	bars := analytics.CategoryBars(rep.Categories)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, b := range bars {
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", b.Category, core.FormatBirr(b.Total), b.Percent)
	}
	return tw.Flush()
}
