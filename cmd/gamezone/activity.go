package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gamezone/internal/cli"
	"gamezone/internal/storage"
)

const defaultActivityLimit = 50

func newActivityCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent sales and expense changes",
		Long:  "Prints the local journal of mutations made through the dashboard, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			logger, closer := cli.SetupLogger(cfg)
			defer closer.Close()

			db, err := cli.OpenStorage(logger, cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.ListActivity(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing activity: %w", err)
			}
			return writeActivity(cmd.OutOrStdout(), entries, cfg.Location())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", defaultActivityLimit, "Maximum number of entries to display")
	return cmd
}

func writeActivity(out io.Writer, entries []storage.Activity, loc *time.Location) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No activity recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tADMIN\tACTION\tENTITY\tID")
	for _, a := range entries {
		entityID := a.EntityID
		if entityID == "" {
			entityID = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.OccurredAt.In(loc).Format("2006-01-02 15:04"), a.Admin, a.Action, a.Entity, entityID)
	}
	return tw.Flush()
}
