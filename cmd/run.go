package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/presenca/discovery-audit/internal/audit"
	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/report"
)

var (
	runLocation string
	runContact  string
)

var runCmd = &cobra.Command{
	Use:   "run <business name>",
	Short: "Run a single audit synchronously and print the report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.close()

		mode := model.DeliveryModeStandalone
		if runContact != "" {
			mode = model.DeliveryModeMessaging
		}

		result, err := eng.audits.Create(ctx, audit.Request{
			BusinessName: args[0],
			Location:     runLocation,
			Contact:      runContact,
			DeliveryMode: mode,
		})
		if err != nil {
			return err
		}

		if !result.Cached {
			if err := eng.pipeline.Run(ctx, result.Audit.ID); err != nil {
				return err
			}
		}

		a, err := eng.store.GetAudit(ctx, result.Audit.ID)
		if err != nil {
			return err
		}
		if a.Status == model.AuditStatusFailed {
			return fmt.Errorf("audit failed: %s", a.ErrorMessage)
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
	runCmd.Flags().StringVarP(&runLocation, "location", "l", "", "city to search in (required)")
	runCmd.Flags().StringVarP(&runContact, "contact", "c", "", "WhatsApp number to deliver the report to")
	_ = runCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(runCmd)
}
