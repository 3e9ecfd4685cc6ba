package db_cmd

import (
	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/proxi/glb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Init() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db [<subcommand>]",
		Short: "specifies subcommand on the database of the node. The node must be stopped",
		Args:  cobra.NoArgs,
	}
	// 'notary' key is shared by the node and db commands
	dbCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		glb.AssertNoError(viper.BindPFlag("notary", dbCmd.PersistentFlags().Lookup("notary")))
		glb.ReadInConfig()
	}

	dbCmd.PersistentFlags().String("db.dir", global.DefaultDBDir, "database directory of the node")
	err := viper.BindPFlag("db.dir", dbCmd.PersistentFlags().Lookup("db.dir"))
	glb.AssertNoError(err)

	dbCmd.PersistentFlags().String("notary", "", "notary identity")

	dbCmd.InitDefaultHelpCmd()
	dbCmd.AddCommand(
		initStatesCmd(),
		initOutcomesCmd(),
	)
	return dbCmd
}
