package main

import (
	"os"

	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/proxi/db_cmd"
	"github.com/lunfardo314/notary/proxi/glb"
	"github.com/lunfardo314/notary/proxi/node_cmd"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "proxi",
		Short: "a simple CLI for the notary node",
		Long: `proxi is a CLI tool for the notary node.
It provides:
      - access to the notary via the node API: submission of transactions, outcomes and states
      - database level read access to ledger states and outcomes of a stopped node
`,
		Version: global.Version,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "proxi config profile name (default is .proxi.yaml)")
	err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	glb.AssertNoError(err)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	err = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	glb.AssertNoError(err)

	rootCmd.InitDefaultHelpCmd()
	rootCmd.AddCommand(
		node_cmd.Init(),
		db_cmd.Init(),
	)

	if err = rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
