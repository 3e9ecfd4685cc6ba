package txstore

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/util/badgerutil"
)

// Store keeps transaction outcomes of one notary in badger
type Store struct {
	db          *badger.DB
	prefix      []byte
	maxAttempts int
}

const PartitionOutcomes = byte('t')

func New(db *badger.DB, notary string, maxAttempts int) *Store {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Store{
		db:          db,
		prefix:      badgerutil.KeyPrefix(notary, PartitionOutcomes),
		maxAttempts: maxAttempts,
	}
}

func (s *Store) key(txid ledger.TransactionID) []byte {
	return badgerutil.ConcatBytes(s.prefix, txid[:])
}

func (s *Store) Get(txid ledger.TransactionID) (ret *uniqueness.TransactionRecord, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		ret, err = s.get(txn, txid)
		return err
	})
	return
}

func (s *Store) get(txn *badger.Txn, txid ledger.TransactionID) (*uniqueness.TransactionRecord, error) {
	data, err := badgerutil.Get(txn, s.key(txid))
	if err != nil || data == nil {
		return nil, err
	}
	res, err := uniqueness.ResultFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("outcome of %s: %w", txid.StringShort(), err)
	}
	return &uniqueness.TransactionRecord{TxID: txid, Result: res}, nil
}

func (s *Store) PutIfAbsent(rec *uniqueness.TransactionRecord) (ret *uniqueness.TransactionRecord, err error) {
	err = badgerutil.UpdateWithRetry(s.db, s.maxAttempts, func(txn *badger.Txn) error {
		if ret, err = s.get(txn, rec.TxID); err != nil || ret != nil {
			return err
		}
		data, err := rec.Result.Bytes()
		if err != nil {
			return err
		}
		ret = rec.Clone()
		return txn.Set(s.key(rec.TxID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("PutIfAbsent: %w", err)
	}
	return ret, nil
}

// ForEach iterates records in the order of transaction IDs
func (s *Store) ForEach(fun func(rec *uniqueness.TransactionRecord) bool) error {
	var errParse error
	err := badgerutil.ForEachWithPrefix(s.db, s.prefix, func(key, value []byte) bool {
		var txid ledger.TransactionID
		if txid, errParse = ledger.TransactionIDFromBytes(key[len(s.prefix):]); errParse != nil {
			return false
		}
		var res uniqueness.Result
		if res, errParse = uniqueness.ResultFromBytes(value); errParse != nil {
			return false
		}
		return fun(&uniqueness.TransactionRecord{TxID: txid, Result: res})
	})
	if err != nil {
		return err
	}
	return errParse
}
