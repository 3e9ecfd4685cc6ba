package node_cmd

import (
	"github.com/lunfardo314/notary/api"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/proxi/glb"
	"github.com/spf13/cobra"
)

func initOutcomeCmd() *cobra.Command {
	outcomeCmd := &cobra.Command{
		Use:   "outcome <hex-encoded transaction ID>",
		Short: `retrieves outcome of the transaction`,
		Args:  cobra.ExactArgs(1),
		Run:   runOutcomeCmd,
	}
	outcomeCmd.InitDefaultHelpCmd()
	return outcomeCmd
}

func runOutcomeCmd(_ *cobra.Command, args []string) {
	txid, err := ledger.TransactionIDFromHexString(args[0])
	glb.AssertNoError(err)

	notary := glb.Notary()
	rec, err := glb.GetClient().GetOutcome(notary, txid)
	glb.AssertNoError(err)

	if rec == nil {
		glb.Infof("notary '%s' has no outcome of the transaction %s", notary, txid.StringShort())
		return
	}
	glb.PrintYAML(api.RecordFromCore(notary, rec))
}
