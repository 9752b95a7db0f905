package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export completed audits to a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.close()

		audits, err := eng.store.ListAudits(ctx, store.AuditFilter{
			Status: model.AuditStatusCompleted,
			Limit:  10000,
		})
		if err != nil {
			return err
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Audits")
		if err != nil {
			return err
		}

		header := sheet.AddRow()
		for _, h := range []string{"ID", "Business", "City", "Score", "Competitive", "Sentiment", "Visual", "Delivery", "Created"} {
			header.AddCell().SetString(h)
		}

		for _, a := range audits {
			business, bizErr := eng.store.GetBusiness(ctx, a.BusinessID)
			if bizErr != nil {
				continue
			}

			deliveryStatus := ""
			if a.Contact != "" {
				if attempt, attErr := eng.store.GetDeliveryAttempt(ctx, a.ID, a.Contact); attErr == nil && attempt != nil {
					deliveryStatus = string(attempt.Status)
				}
			}

			row := sheet.AddRow()
			row.AddCell().SetString(a.ID)
			row.AddCell().SetString(business.Name)
			row.AddCell().SetString(business.City)
			if a.DiscoveryScore != nil {
				row.AddCell().SetInt(*a.DiscoveryScore)
			} else {
				row.AddCell().SetString("")
			}
			row.AddCell().SetString(fmtScore(a.CompetitiveScore))
			row.AddCell().SetString(fmtScore(a.SentimentScore))
			row.AddCell().SetString(fmtScore(a.VisualScore))
			row.AddCell().SetString(deliveryStatus)
			row.AddCell().SetString(a.CreatedAt.Format("2006-01-02 15:04"))
		}

		if err := file.Save(exportOut); err != nil {
			return err
		}
		fmt.Printf("exported %d audits to %s\n", len(audits), exportOut)
		return nil
	},
}

func fmtScore(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "audits.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}
