package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/store"
)

var (
	auditsStatus string
	auditsLimit  int
)

var auditsCmd = &cobra.Command{
	Use:   "audits",
	Short: "List audits",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.close()

		audits, err := eng.store.ListAudits(ctx, store.AuditFilter{
			Status: model.AuditStatus(auditsStatus),
			Limit:  auditsLimit,
		})
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"ID", "Status", "Score", "Mode", "Created"})
		for _, a := range audits {
			score := "-"
			if a.DiscoveryScore != nil {
				score = fmt.Sprintf("%d", *a.DiscoveryScore)
			}
			t.AppendRow(table.Row{
				a.ID,
				a.Status,
				score,
				a.DeliveryMode,
				a.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	auditsCmd.Flags().StringVar(&auditsStatus, "status", "", "filter by status (pending|processing|completed|failed)")
	auditsCmd.Flags().IntVar(&auditsLimit, "limit", 50, "maximum rows")
	rootCmd.AddCommand(auditsCmd)
}
