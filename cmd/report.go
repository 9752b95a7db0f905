package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <audit-id>",
	Short: "Print the text report of a completed audit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.close()

		a, err := eng.store.GetAudit(ctx, args[0])
		if err != nil {
			return err
		}
		if a.Status != model.AuditStatusCompleted {
			return fmt.Errorf("audit %s is %s, not completed", a.ID, a.Status)
		}

		business, err := eng.store.GetBusiness(ctx, a.BusinessID)
		if err != nil {
			return err
		}
		competitors, err := eng.store.ListCompetitors(ctx, a.ID)
		if err != nil {
			return err
		}

		fmt.Print(report.RenderText(business, a, competitors))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
