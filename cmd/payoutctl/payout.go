package main

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/showpayouts/internal/middleware"
	"github.com/mmynk/showpayouts/pkg/api"
)

var payoutCmd = &cobra.Command{
	Use:   "payout",
	Short: "Inspect payouts and move them through approval and payment",
}

var payoutGetCmd = &cobra.Command{
	Use:   "get SHOW_ID",
	Short: "Show a payout with its line items and audit events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := client.GetPayout(ctx, connect.NewRequest(&api.GetPayoutRequest{ShowID: args[0]}))
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, resp.Msg)
	},
}

func transitionCmd(use, short, action string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " PAYOUT_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			client, ctx, cancel, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			resp, err := client.TransitionPayout(ctx, connect.NewRequest(&api.TransitionPayoutRequest{
				PayoutID: args[0],
				Action:   action,
				Reason:   reason,
			}))
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd, resp.Msg.Payout)
		},
	}
	cmd.Flags().String("reason", "", "reason recorded on the audit event")
	return cmd
}

var payItemCmd = &cobra.Command{
	Use:   "pay-item LINE_ITEM_ID",
	Short: "Record payment of a single line item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, _ := cmd.Flags().GetString("method")
		reference, _ := cmd.Flags().GetString("reference")
		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := client.MarkLineItemPaid(ctx, connect.NewRequest(&api.MarkLineItemPaidRequest{
			LineItemID: args[0],
			Method:     method,
			Reference:  reference,
		}))
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, resp.Msg.LineItem)
	},
}

// describe adds the payout failure reason to RPC errors.
func describe(err error) error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		if reason := cerr.Meta().Get(middleware.FailureReasonHeader); reason != "" {
			return fmt.Errorf("%s (%s): %s", cerr.Code(), reason, cerr.Message())
		}
		return fmt.Errorf("%s: %s", cerr.Code(), cerr.Message())
	}
	return err
}

func init() {
	payItemCmd.Flags().String("method", "", "payment method, e.g. check or venmo")
	payItemCmd.Flags().String("reference", "", "payment reference")

	unwindCmd := transitionCmd("unwind", "Reopen a paid payout for correction (requires --reason)", api.ActionUnwind)
	_ = unwindCmd.MarkFlagRequired("reason")

	payoutCmd.AddCommand(
		payoutGetCmd,
		transitionCmd("approve", "Approve a draft payout", api.ActionApprove),
		transitionCmd("revert", "Return an approved payout to draft", api.ActionRevert),
		transitionCmd("mark-paid", "Mark an approved payout and its line items paid", api.ActionMarkPaid),
		unwindCmd,
		payItemCmd,
	)
	rootCmd.AddCommand(payoutCmd)
}
