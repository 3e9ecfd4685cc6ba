package node_cmd

import (
	"github.com/lunfardo314/notary/api"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/proxi/glb"
	"github.com/spf13/cobra"
)

func initStatusCmd() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status <state ref>",
		Short: `retrieves status of the state. State ref is '<hex-encoded transaction ID>:<index>'`,
		Args:  cobra.ExactArgs(1),
		Run:   runStatusCmd,
	}
	statusCmd.InitDefaultHelpCmd()
	return statusCmd
}

func runStatusCmd(_ *cobra.Command, args []string) {
	ref, err := ledger.ParseStateRef(args[0])
	glb.AssertNoError(err)

	notary := glb.Notary()
	status, err := glb.GetClient().GetStateStatus(notary, ref)
	glb.AssertNoError(err)
	glb.PrintYAML(api.StateStatusFromCore(notary, ref, status))
}
