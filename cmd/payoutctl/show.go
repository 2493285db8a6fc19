package main

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/showpayouts/pkg/api"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Load show data",
}

var showPutCmd = &cobra.Command{
	Use:   "put FILE",
	Short: "Create or replace a show from a JSON file",
	Long: `Create or replace a show, its financials and its cast.

The file holds a single show object in the API's JSON shape.`,
	Example: `  payoutctl show put show-42.json`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readJSONFile(args[0])
		if err != nil {
			return err
		}
		var show api.Show
		if err := json.Unmarshal(raw, &show); err != nil {
			return fmt.Errorf("failed to read show: %w", err)
		}

		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := client.UpsertShow(ctx, connect.NewRequest(&api.UpsertShowRequest{Show: show}))
		if err != nil {
			return describe(err)
		}
		cmd.Printf("Saved show %s\n", resp.Msg.ShowID)
		return nil
	},
}

func init() {
	showCmd.AddCommand(showPutCmd)
	rootCmd.AddCommand(showCmd)
}
