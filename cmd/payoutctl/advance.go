package main

import (
	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/showpayouts/pkg/api"
)

var advanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Manage person advances",
}

var advanceCreateCmd = &cobra.Command{
	Use:     "create PERSON_ID AMOUNT",
	Short:   "Record an advance, recovered from the person's future payouts",
	Example: `  payoutctl advance create p-17 150.00 --production prod-1 --note "bus fare"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		production, _ := cmd.Flags().GetString("production")
		show, _ := cmd.Flags().GetString("show")
		note, _ := cmd.Flags().GetString("note")
		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := client.CreateAdvance(ctx, connect.NewRequest(&api.CreateAdvanceRequest{
			PersonID:     args[0],
			ProductionID: production,
			ShowID:       show,
			Amount:       args[1],
			Note:         note,
		}))
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, resp.Msg.Advance)
	},
}

var advanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List advances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		person, _ := cmd.Flags().GetString("person")
		production, _ := cmd.Flags().GetString("production")
		outstanding, _ := cmd.Flags().GetBool("outstanding")
		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := client.ListAdvances(ctx, connect.NewRequest(&api.ListAdvancesRequest{
			PersonID:        person,
			ProductionID:    production,
			OutstandingOnly: outstanding,
		}))
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, resp.Msg.Advances)
	},
}

var advanceWriteOffCmd = &cobra.Command{
	Use:   "write-off ADVANCE_ID",
	Short: "Stop collecting an outstanding advance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := client.WriteOffAdvance(ctx, connect.NewRequest(&api.WriteOffAdvanceRequest{AdvanceID: args[0]}))
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, resp.Msg.Advance)
	},
}

func init() {
	advanceCreateCmd.Flags().String("production", "", "production id")
	advanceCreateCmd.Flags().String("show", "", "restrict recovery to one show")
	advanceCreateCmd.Flags().String("note", "", "note")
	_ = advanceCreateCmd.MarkFlagRequired("production")

	advanceListCmd.Flags().String("person", "", "filter by person")
	advanceListCmd.Flags().String("production", "", "filter by production")
	advanceListCmd.Flags().Bool("outstanding", false, "only pending and partial advances")

	advanceCmd.AddCommand(advanceCreateCmd, advanceListCmd, advanceWriteOffCmd)
	rootCmd.AddCommand(advanceCmd)
}
