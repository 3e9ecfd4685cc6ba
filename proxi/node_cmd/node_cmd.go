package node_cmd

import (
	"github.com/lunfardo314/notary/proxi/glb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Init() *cobra.Command {
	nodeCmd := &cobra.Command{
		Use:   "node [<subcommand>]",
		Short: "specifies node API subcommand",
		Args:  cobra.NoArgs,
	}
	// 'notary' key is shared by the node and db commands
	nodeCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		glb.AssertNoError(viper.BindPFlag("notary", nodeCmd.PersistentFlags().Lookup("notary")))
		glb.ReadInConfig()
	}

	nodeCmd.PersistentFlags().String("api.endpoint", "", "<DNS name>:port")
	err := viper.BindPFlag("api.endpoint", nodeCmd.PersistentFlags().Lookup("api.endpoint"))
	glb.AssertNoError(err)

	nodeCmd.PersistentFlags().Duration("api.timeout", 0, "timeout of the API call")
	err = viper.BindPFlag("api.timeout", nodeCmd.PersistentFlags().Lookup("api.timeout"))
	glb.AssertNoError(err)

	nodeCmd.PersistentFlags().String("notary", "", "notary identity")

	nodeCmd.InitDefaultHelpCmd()
	nodeCmd.AddCommand(
		initSubmitCmd(),
		initOutcomeCmd(),
		initStatusCmd(),
		initNodeInfoCmd(),
	)
	return nodeCmd
}
