package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rotisserie/eris"
)

var sendCmd = &cobra.Command{
	Use:   "send <audit-id>",
	Short: "Send or resend a completed audit over WhatsApp",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.close()

		if eng.deliverer == nil {
			return eris.New("whatsapp gateway is not configured")
		}

		attempt, err := eng.deliverer.Deliver(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("delivery %s: status=%s retries=%d message_id=%s\n",
			attempt.ID, attempt.Status, attempt.RetryCount, attempt.MessageID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
