package statedb

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/util/badgerutil"
)

// Ledger is the state ledger of one notary stored in badger.
// Each notary has own key space, several ledgers can share the database
type Ledger struct {
	db          *badger.DB
	prefix      []byte
	maxAttempts int
}

const PartitionLedgerState = byte('s')

var ErrWrongStateData = errors.New("wrong state data")

func New(db *badger.DB, notary string, maxAttempts int) *Ledger {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Ledger{
		db:          db,
		prefix:      badgerutil.KeyPrefix(notary, PartitionLedgerState),
		maxAttempts: maxAttempts,
	}
}

func (l *Ledger) stateKey(ref ledger.StateRef) []byte {
	return badgerutil.ConcatBytes(l.prefix, ref[:])
}

func (l *Ledger) StatusOf(ref ledger.StateRef) (ret uniqueness.StateStatus, err error) {
	err = l.db.View(func(txn *badger.Txn) error {
		ret, err = l.statusOf(txn, ref)
		return err
	})
	return
}

func (l *Ledger) statusOf(txn *badger.Txn, ref ledger.StateRef) (uniqueness.StateStatus, error) {
	data, err := badgerutil.Get(txn, l.stateKey(ref))
	if err != nil {
		return uniqueness.StateStatus{}, err
	}
	if data == nil {
		return uniqueness.StateStatus{Kind: uniqueness.StateUnknown}, nil
	}
	return StateStatusFromBytes(data)
}

func (l *Ledger) TryReserveAll(refs []ledger.StateRef, txid ledger.TransactionID, ts time.Time) (consumed []ledger.StateRef, err error) {
	refs = ledger.SortedUnique(refs)
	err = badgerutil.UpdateWithRetry(l.db, l.maxAttempts, func(txn *badger.Txn) error {
		consumed = nil
		mut := NewMutations()
		for _, ref := range refs {
			status, err := l.statusOf(txn, ref)
			if err != nil {
				return err
			}
			if status.Kind != uniqueness.StateConsumed {
				mut.InsertConsumeMutation(ref, txid, ts)
				continue
			}
			if status.ConsumingTx != txid {
				consumed = append(consumed, ref)
			}
		}
		if len(consumed) > 0 {
			return nil
		}
		return l.apply(txn, mut)
	})
	if err != nil {
		return nil, fmt.Errorf("TryReserveAll: %w", err)
	}
	return consumed, nil
}

func (l *Ledger) ProduceUnspent(txid ledger.TransactionID, count uint32) error {
	err := badgerutil.UpdateWithRetry(l.db, l.maxAttempts, func(txn *badger.Txn) error {
		mut := NewMutations()
		for i := uint32(0); i < count; i++ {
			ref := ledger.NewStateRef(txid, i)
			data, err := badgerutil.Get(txn, l.stateKey(ref))
			if err != nil {
				return err
			}
			if data == nil {
				mut.InsertProduceMutation(ref)
			}
		}
		return l.apply(txn, mut)
	})
	if err != nil {
		return fmt.Errorf("ProduceUnspent: %w", err)
	}
	return nil
}

func (l *Ledger) apply(txn *badger.Txn, mut *Mutations) error {
	for _, m := range mut.mut {
		if err := m.mutate(l, txn); err != nil {
			return err
		}
	}
	return nil
}

// ForEach iterates states of the notary in the order of state references
func (l *Ledger) ForEach(fun func(ref ledger.StateRef, status uniqueness.StateStatus) bool) error {
	var errParse error
	err := badgerutil.ForEachWithPrefix(l.db, l.prefix, func(key, value []byte) bool {
		var ref ledger.StateRef
		if ref, errParse = ledger.StateRefFromBytes(key[len(l.prefix):]); errParse != nil {
			return false
		}
		var status uniqueness.StateStatus
		if status, errParse = StateStatusFromBytes(value); errParse != nil {
			return false
		}
		return fun(ref, status)
	})
	if err != nil {
		return err
	}
	return errParse
}

// StateStatusBytes unspent is 1 byte, consumed is kind byte, consuming transaction ID and commit timestamp
func StateStatusBytes(status uniqueness.StateStatus) []byte {
	if status.Kind != uniqueness.StateConsumed {
		return []byte{byte(status.Kind)}
	}
	ret := make([]byte, 1+ledger.TransactionIDLength, 1+ledger.TransactionIDLength+uniqueness.TimeBytesLength)
	ret[0] = byte(status.Kind)
	copy(ret[1:], status.ConsumingTx[:])
	return uniqueness.AppendTime(ret, status.CommitTimestamp)
}

func StateStatusFromBytes(data []byte) (uniqueness.StateStatus, error) {
	if len(data) == 0 {
		return uniqueness.StateStatus{}, ErrWrongStateData
	}
	ret := uniqueness.StateStatus{Kind: uniqueness.StateStatusKind(data[0])}
	switch ret.Kind {
	case uniqueness.StateUnspent:
		if len(data) != 1 {
			return uniqueness.StateStatus{}, fmt.Errorf("%w: unexpected length %d", ErrWrongStateData, len(data))
		}
	case uniqueness.StateConsumed:
		if len(data) != 1+ledger.TransactionIDLength+uniqueness.TimeBytesLength {
			return uniqueness.StateStatus{}, fmt.Errorf("%w: unexpected length %d", ErrWrongStateData, len(data))
		}
		copy(ret.ConsumingTx[:], data[1:1+ledger.TransactionIDLength])
		var err error
		if ret.CommitTimestamp, err = uniqueness.TimeFromBytes(data[1+ledger.TransactionIDLength:]); err != nil {
			return uniqueness.StateStatus{}, fmt.Errorf("%w: %v", ErrWrongStateData, err)
		}
	default:
		return uniqueness.StateStatus{}, fmt.Errorf("%w: unexpected kind %d", ErrWrongStateData, data[0])
	}
	return ret, nil
}
