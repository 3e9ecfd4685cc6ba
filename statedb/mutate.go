package statedb

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/util/lines"
)

type (
	mutationCmd interface {
		mutate(l *Ledger, txn *badger.Txn) error
		text() string
	}

	mutationConsume struct {
		Ref             ledger.StateRef
		ConsumingTx     ledger.TransactionID
		CommitTimestamp time.Time
	}

	mutationProduce struct {
		Ref ledger.StateRef
	}

	// Mutations is a list of state changes applied in one badger transaction
	Mutations struct {
		mut []mutationCmd
	}
)

func (m *mutationConsume) mutate(l *Ledger, txn *badger.Txn) error {
	return txn.Set(l.stateKey(m.Ref), StateStatusBytes(uniqueness.StateStatus{
		Kind:            uniqueness.StateConsumed,
		ConsumingTx:     m.ConsumingTx,
		CommitTimestamp: m.CommitTimestamp,
	}))
}

func (m *mutationConsume) text() string {
	return fmt.Sprintf("CONSUME %s by %s", m.Ref.StringShort(), m.ConsumingTx.StringShort())
}

func (m *mutationProduce) mutate(l *Ledger, txn *badger.Txn) error {
	return txn.Set(l.stateKey(m.Ref), StateStatusBytes(uniqueness.StateStatus{Kind: uniqueness.StateUnspent}))
}

func (m *mutationProduce) text() string {
	return fmt.Sprintf("PRODUCE %s", m.Ref.StringShort())
}

func NewMutations() *Mutations {
	return &Mutations{
		mut: make([]mutationCmd, 0),
	}
}

func (mut *Mutations) Len() int {
	return len(mut.mut)
}

func (mut *Mutations) InsertConsumeMutation(ref ledger.StateRef, txid ledger.TransactionID, ts time.Time) {
	mut.mut = append(mut.mut, &mutationConsume{Ref: ref, ConsumingTx: txid, CommitTimestamp: ts})
}

func (mut *Mutations) InsertProduceMutation(ref ledger.StateRef) {
	mut.mut = append(mut.mut, &mutationProduce{Ref: ref})
}

func (mut *Mutations) Lines(prefix ...string) *lines.Lines {
	ret := lines.New(prefix...)
	for _, m := range mut.mut {
		ret.Add("%s", m.text())
	}
	return ret
}
