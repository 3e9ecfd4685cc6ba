package uniqueness

import (
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/lunfardo314/notary/ledger"
)

type (
	// InMemoryStateLedger keeps states in the ordered btree index
	InMemoryStateLedger struct {
		mutex sync.RWMutex
		tree  *btree.BTreeG[stateEntry]
	}

	stateEntry struct {
		ref    ledger.StateRef
		status StateStatus
	}
)

const btreeDegree = 32

func NewInMemoryStateLedger() *InMemoryStateLedger {
	return &InMemoryStateLedger{
		tree: btree.NewG[stateEntry](btreeDegree, func(a, b stateEntry) bool {
			return ledger.LessStateRef(a.ref, b.ref)
		}),
	}
}

func (l *InMemoryStateLedger) StatusOf(ref ledger.StateRef) (StateStatus, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if e, found := l.tree.Get(stateEntry{ref: ref}); found {
		return e.status, nil
	}
	return StateStatus{Kind: StateUnknown}, nil
}

func (l *InMemoryStateLedger) TryReserveAll(refs []ledger.StateRef, txid ledger.TransactionID, ts time.Time) ([]ledger.StateRef, error) {
	refs = ledger.SortedUnique(refs)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	var consumed []ledger.StateRef
	for _, ref := range refs {
		if e, found := l.tree.Get(stateEntry{ref: ref}); found && e.status.Kind == StateConsumed && e.status.ConsumingTx != txid {
			consumed = append(consumed, ref)
		}
	}
	if len(consumed) > 0 {
		return consumed, nil
	}
	ts = normalizeTime(ts)
	for _, ref := range refs {
		if e, found := l.tree.Get(stateEntry{ref: ref}); found && e.status.Kind == StateConsumed {
			continue
		}
		l.tree.ReplaceOrInsert(stateEntry{
			ref: ref,
			status: StateStatus{
				Kind:            StateConsumed,
				ConsumingTx:     txid,
				CommitTimestamp: ts,
			},
		})
	}
	return nil, nil
}

func (l *InMemoryStateLedger) ProduceUnspent(txid ledger.TransactionID, count uint32) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for i := uint32(0); i < count; i++ {
		e := stateEntry{ref: ledger.NewStateRef(txid, i)}
		if l.tree.Has(e) {
			continue
		}
		e.status = StateStatus{Kind: StateUnspent}
		l.tree.ReplaceOrInsert(e)
	}
	return nil
}

// ForEach iterates states in ascending order of references until fun returns false
func (l *InMemoryStateLedger) ForEach(fun func(ref ledger.StateRef, status StateStatus) bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	l.tree.Ascend(func(e stateEntry) bool {
		return fun(e.ref, e.status)
	})
}

func (l *InMemoryStateLedger) NumStates() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.tree.Len()
}
