package main

import (
	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/showpayouts/pkg/api"
)

var schemeCmd = &cobra.Command{
	Use:   "scheme",
	Short: "Manage a production's payout schemes",
}

var schemeListCmd = &cobra.Command{
	Use:   "list PRODUCTION_ID",
	Short: "List schemes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := client.ListSchemes(ctx, connect.NewRequest(&api.ListSchemesRequest{ProductionID: args[0]}))
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, resp.Msg.Schemes)
	},
}

var schemeSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create a scheme, or replace an existing scheme's rules with --id",
	Example: `  payoutctl scheme save --production prod-1 --name standard --rules rules.json --default
  payoutctl scheme save --id 3f1c... --rules rules-v2.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		production, _ := cmd.Flags().GetString("production")
		name, _ := cmd.Flags().GetString("name")
		rulesPath, _ := cmd.Flags().GetString("rules")
		isDefault, _ := cmd.Flags().GetBool("default")

		rules, err := readJSONFile(rulesPath)
		if err != nil {
			return err
		}
		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := client.SaveScheme(ctx, connect.NewRequest(&api.SaveSchemeRequest{
			ID:           id,
			ProductionID: production,
			Name:         name,
			Rules:        rules,
			IsDefault:    isDefault,
		}))
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, resp.Msg.Scheme)
	},
}

var schemeSetDefaultCmd = &cobra.Command{
	Use:   "set-default PRODUCTION_ID SCHEME_ID",
	Short: "Make a scheme the production default",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		_, err = client.SetDefaultScheme(ctx, connect.NewRequest(&api.SetDefaultSchemeRequest{
			ProductionID: args[0],
			SchemeID:     args[1],
		}))
		if err != nil {
			return describe(err)
		}
		cmd.Printf("Scheme %s is now the default for %s\n", args[1], args[0])
		return nil
	},
}

var schemeDeleteCmd = &cobra.Command{
	Use:   "delete SCHEME_ID",
	Short: "Delete a non-default scheme no show or payout uses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, cancel, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		if _, err := client.DeleteScheme(ctx, connect.NewRequest(&api.DeleteSchemeRequest{SchemeID: args[0]})); err != nil {
			return describe(err)
		}
		return nil
	},
}

func init() {
	schemeSaveCmd.Flags().String("id", "", "existing scheme to update")
	schemeSaveCmd.Flags().String("production", "", "production id (new schemes)")
	schemeSaveCmd.Flags().String("name", "", "scheme name (new schemes)")
	schemeSaveCmd.Flags().String("rules", "", "rules document (JSON file)")
	schemeSaveCmd.Flags().Bool("default", false, "make this the production default")
	_ = schemeSaveCmd.MarkFlagRequired("rules")

	schemeCmd.AddCommand(schemeListCmd, schemeSaveCmd, schemeSetDefaultCmd, schemeDeleteCmd)
	rootCmd.AddCommand(schemeCmd)
}
