package main

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/showpayouts/pkg/api"
)

var previewCmd = &cobra.Command{
	Use:     "preview",
	Short:   "Estimate per-performer payouts for a cast size",
	Example: `  payoutctl preview --rules rules.json --financials financials.json --performers 6`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rulesPath, _ := cmd.Flags().GetString("rules")
		financialsPath, _ := cmd.Flags().GetString("financials")
		performers, _ := cmd.Flags().GetInt("performers")

		rules, err := readJSONFile(rulesPath)
		if err != nil {
			return err
		}
		rawFinancials, err := readJSONFile(financialsPath)
		if err != nil {
			return err
		}
		var financials api.Financials
		if err := json.Unmarshal(rawFinancials, &financials); err != nil {
			return fmt.Errorf("failed to read financials: %w", err)
		}

		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := client.PreviewPayout(ctx, connect.NewRequest(&api.PreviewPayoutRequest{
			Rules:          rules,
			Financials:     &financials,
			PerformerCount: performers,
		}))
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, resp.Msg)
	},
}

var calculateCmd = &cobra.Command{
	Use:   "calculate SHOW_ID",
	Short: "Calculate a show's draft payout",
	Example: `  payoutctl calculate show-42
  payoutctl calculate show-42 --override-rules special.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &api.CalculatePayoutRequest{ShowID: args[0]}
		if path, _ := cmd.Flags().GetString("override-rules"); path != "" {
			rules, err := readJSONFile(path)
			if err != nil {
				return err
			}
			req.OverrideRules = rules
		}

		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := client.CalculatePayout(ctx, connect.NewRequest(req))
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, resp.Msg)
	},
}

func init() {
	previewCmd.Flags().String("rules", "", "rules document (JSON file)")
	previewCmd.Flags().String("financials", "", "show financials (JSON file)")
	previewCmd.Flags().Int("performers", 0, "number of performers")
	_ = previewCmd.MarkFlagRequired("rules")
	_ = previewCmd.MarkFlagRequired("financials")
	_ = previewCmd.MarkFlagRequired("performers")

	calculateCmd.Flags().String("override-rules", "", "store a per-show rules document (JSON file) before calculating")

	rootCmd.AddCommand(previewCmd, calculateCmd)
}
