package node

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/lunfardo314/notary/statedb"
	"github.com/lunfardo314/notary/txstore"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/util/badgerutil"
	"github.com/lunfardo314/notary/workflow"
)

const badgerGCPeriod = 5 * time.Minute

// initStores creates state ledger and outcome store for each configured notary.
// All notaries share one badger database, each under its own key prefix
func (p *NotaryNode) initStores() error {
	names, err := notariesFromConfig()
	if err != nil {
		return err
	}
	p.dbType = dbTypeFromConfig()

	switch p.dbType {
	case DBTypeMemory:
		p.Log().Warnf("database type is '%s': outcomes and ledger states will be lost on stop", DBTypeMemory)
		for _, name := range names {
			p.notaries = append(p.notaries, &workflow.Notary{
				Name:     name,
				Ledger:   uniqueness.NewInMemoryStateLedger(),
				Outcomes: uniqueness.NewInMemoryOutcomeStore(),
			})
		}

	case DBTypeBadger:
		dir := dbDirFromConfig()
		maxAttempts := maxAttemptsFromConfig()
		if p.db, err = badgerutil.OpenBadgerDB(dir, p.Log()); err != nil {
			return fmt.Errorf("can't open database '%s': %w", dir, err)
		}
		p.Log().Infof("opened badger DB '%s'. Max attempts of a DB transaction: %d", dir, maxAttempts)
		for _, name := range names {
			p.notaries = append(p.notaries, &workflow.Notary{
				Name:     name,
				Ledger:   statedb.New(p.db, name, maxAttempts),
				Outcomes: txstore.New(p.db, name, maxAttempts),
			})
		}
		p.RepeatInBackground("badger_gc", badgerGCPeriod, func() bool {
			p.databaseGC()
			return true
		})
		p.startDiskSpaceMonitoring(dir)

	default:
		return fmt.Errorf("wrong db.type '%s'. Must be one of: %s | %s", p.dbType, DBTypeBadger, DBTypeMemory)
	}
	return nil
}

func (p *NotaryNode) databaseGC() {
	start := time.Now()
	err := p.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		err = nil
	}
	p.Log().Debugf("----- badger DB GC (%v): %v", time.Since(start), err)
}

func (p *NotaryNode) closeDB() {
	if p.db == nil {
		return
	}
	if err := p.db.Close(); err != nil {
		p.Log().Errorf("error while closing database: %v", err)
		return
	}
	p.Log().Infof("database has been closed")
}
