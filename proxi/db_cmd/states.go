package db_cmd

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/proxi/glb"
	"github.com/lunfardo314/notary/statedb"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/util"
	"github.com/spf13/cobra"
)

var consumedOnly, unspentOnly bool

func initStatesCmd() *cobra.Command {
	statesCmd := &cobra.Command{
		Use:   "states",
		Short: "lists ledger states of the notary",
		Args:  cobra.NoArgs,
		Run:   runStatesCmd,
	}
	statesCmd.Flags().BoolVar(&consumedOnly, "consumed", false, "list consumed states only")
	statesCmd.Flags().BoolVar(&unspentOnly, "unspent", false, "list unspent states only")
	return statesCmd
}

func runStatesCmd(_ *cobra.Command, _ []string) {
	glb.Assertf(!consumedOnly || !unspentOnly, "only one of --consumed and --unspent can be specified")
	db := glb.OpenDB()
	defer func() { _ = db.Close() }()

	var filter []uniqueness.StateStatusKind
	switch {
	case consumedOnly:
		filter = []uniqueness.StateStatusKind{uniqueness.StateConsumed}
	case unspentOnly:
		filter = []uniqueness.StateStatusKind{uniqueness.StateUnspent}
	}
	glb.AssertNoError(listStates(db, glb.Notary(), filter...))
}

func listStates(db *badger.DB, notary string, filter ...uniqueness.StateStatusKind) error {
	var nUnspent, nConsumed int
	err := statedb.New(db, notary, global.DefaultMaxAttempts).ForEach(func(ref ledger.StateRef, status uniqueness.StateStatus) bool {
		if status.Kind == uniqueness.StateConsumed {
			nConsumed++
		} else {
			nUnspent++
		}
		if len(filter) == 0 || util.Find(filter, status.Kind) >= 0 {
			glb.Infof("%s: %s", ref.String(), status.String())
		}
		return true
	})
	if err != nil {
		return err
	}
	glb.Infof("notary '%s': %s unspent, %s consumed states", notary, util.GoThousands(nUnspent), util.GoThousands(nConsumed))
	return nil
}
