package uniqueness

import (
	"sync"

	"github.com/lunfardo314/notary/ledger"
)

type InMemoryOutcomeStore struct {
	mutex   sync.RWMutex
	records map[ledger.TransactionID]*TransactionRecord
}

func NewInMemoryOutcomeStore() *InMemoryOutcomeStore {
	return &InMemoryOutcomeStore{
		records: make(map[ledger.TransactionID]*TransactionRecord),
	}
}

func (s *InMemoryOutcomeStore) Get(txid ledger.TransactionID) (*TransactionRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if rec, found := s.records[txid]; found {
		return rec.Clone(), nil
	}
	return nil, nil
}

func (s *InMemoryOutcomeStore) PutIfAbsent(rec *TransactionRecord) (*TransactionRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if stored, found := s.records[rec.TxID]; found {
		return stored.Clone(), nil
	}
	s.records[rec.TxID] = rec.Clone()
	return rec.Clone(), nil
}

func (s *InMemoryOutcomeStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.records)
}
