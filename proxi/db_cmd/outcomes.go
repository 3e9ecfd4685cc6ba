package db_cmd

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/lunfardo314/notary/api"
	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/proxi/glb"
	"github.com/lunfardo314/notary/txstore"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/util"
	"github.com/spf13/cobra"
)

var summaryOnly bool

func initOutcomesCmd() *cobra.Command {
	outcomesCmd := &cobra.Command{
		Use:   "outcomes",
		Short: "lists stored transaction outcomes of the notary",
		Args:  cobra.NoArgs,
		Run:   runOutcomesCmd,
	}
	outcomesCmd.Flags().BoolVarP(&summaryOnly, "summary", "s", false, "display totals only")
	return outcomesCmd
}

func runOutcomesCmd(_ *cobra.Command, _ []string) {
	db := glb.OpenDB()
	defer func() { _ = db.Close() }()

	glb.AssertNoError(listOutcomes(db, glb.Notary(), summaryOnly))
}

func listOutcomes(db *badger.DB, notary string, summary bool) error {
	byKind := make(map[uniqueness.ResultKind]int)
	records := make([]api.TransactionRecord, 0)
	err := txstore.New(db, notary, global.DefaultMaxAttempts).ForEach(func(rec *uniqueness.TransactionRecord) bool {
		byKind[rec.Result.Kind]++
		if !summary {
			records = append(records, api.RecordFromCore(notary, rec))
		}
		return true
	})
	if err != nil {
		return err
	}
	if len(records) > 0 {
		glb.PrintYAML(records)
	}
	glb.Infof("notary '%s' outcomes:", notary)
	total := 0
	for _, kind := range uniqueness.AllResultKinds() {
		if n := byKind[kind]; n > 0 {
			glb.Infof("    %s: %s", kind.String(), util.GoThousands(n))
			total += n
		}
	}
	glb.Infof("    total: %s", util.GoThousands(total))
	return nil
}
