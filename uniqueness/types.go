package uniqueness

import (
	"fmt"
	"time"

	"github.com/lunfardo314/notary/ledger"
)

type (
	// Request is a uniqueness check request of one transaction. Immutable once submitted
	Request struct {
		TxID       ledger.TransactionID
		Inputs     []ledger.StateRef
		References []ledger.StateRef
		NumOutputs uint32
		TimeWindow TimeWindow
	}

	// TransactionRecord is the final outcome of the transaction. Written at most once
	TransactionRecord struct {
		TxID   ledger.TransactionID
		Result Result
	}

	StateStatusKind byte

	StateStatus struct {
		Kind StateStatusKind
		// only for StateConsumed
		ConsumingTx     ledger.TransactionID
		CommitTimestamp time.Time
	}

	// StateLedger is the record of produced and consumed states.
	// Implementations must be safe for concurrent use
	StateLedger interface {
		// StatusOf returns status with Kind == StateUnknown if ledger has no record of the state
		StatusOf(ref ledger.StateRef) (StateStatus, error)
		// TryReserveAll atomically marks all refs as consumed by txid with the timestamp.
		// If any of refs is already consumed by another transaction, nothing is changed
		// and the already consumed subset is returned. States already consumed by the same txid
		// are not a conflict
		TryReserveAll(refs []ledger.StateRef, txid ledger.TransactionID, ts time.Time) ([]ledger.StateRef, error)
		// ProduceUnspent creates unspent states (txid, 0..count-1). States which already exist are left untouched
		ProduceUnspent(txid ledger.TransactionID, count uint32) error
	}

	// OutcomeStore is the idempotency cache. Implementations must be safe for concurrent use
	OutcomeStore interface {
		// Get returns nil, nil if there's no record
		Get(txid ledger.TransactionID) (*TransactionRecord, error)
		// PutIfAbsent stores the record if there's no record for the txid yet.
		// Returns the record which is in the store after the call
		PutIfAbsent(rec *TransactionRecord) (*TransactionRecord, error)
	}

	Clock interface {
		Now() time.Time
	}

	// UnknownStatePolicy determines how states the ledger has no record of are treated
	UnknownStatePolicy byte
)

const (
	StateUnknown = StateStatusKind(iota)
	StateUnspent
	StateConsumed
)

const (
	// RejectUnknownStates unknown input and reference states make the transaction fail with InputStateUnknown
	RejectUnknownStates = UnknownStatePolicy(iota)
	// AcceptUnknownStates unknown states are treated as unspent
	AcceptUnknownStates
)

func (k StateStatusKind) String() string {
	switch k {
	case StateUnknown:
		return "unknown"
	case StateUnspent:
		return "unspent"
	case StateConsumed:
		return "consumed"
	}
	return fmt.Sprintf("StateStatusKind(%d)", k)
}

func (s StateStatus) String() string {
	if s.Kind != StateConsumed {
		return s.Kind.String()
	}
	return fmt.Sprintf("consumed by %s at %s", s.ConsumingTx.StringShort(), s.CommitTimestamp.Format(time.RFC3339Nano))
}

func UnknownStatePolicyFromString(s string) (UnknownStatePolicy, error) {
	switch s {
	case "", "reject":
		return RejectUnknownStates, nil
	case "accept":
		return AcceptUnknownStates, nil
	}
	return RejectUnknownStates, fmt.Errorf("wrong unknown state policy '%s'. Must be one of: reject | accept", s)
}

func (p UnknownStatePolicy) String() string {
	if p == AcceptUnknownStates {
		return "accept"
	}
	return "reject"
}

// MaxStatesPerRequest limits inputs and references of one request together.
// It keeps any rejection listing the states within the size limit of a stored value
const MaxStatesPerRequest = 10_000

// Validate checks what does not depend on the ledger
func (r *Request) Validate() error {
	if n := len(r.Inputs) + len(r.References); n > MaxStatesPerRequest {
		return fmt.Errorf("%s: too many states: %d inputs and %d references, maximum is %d",
			r.TxID.StringShort(), len(r.Inputs), len(r.References), MaxStatesPerRequest)
	}
	return nil
}

func (r *Request) String() string {
	return fmt.Sprintf("%s: inputs: %d, references: %d, outputs: %d, time window: %s",
		r.TxID.StringShort(), len(r.Inputs), len(r.References), r.NumOutputs, r.TimeWindow.String())
}

func (r *TransactionRecord) String() string {
	return fmt.Sprintf("%s: %s", r.TxID.StringShort(), r.Result.String())
}

func (r *TransactionRecord) Clone() *TransactionRecord {
	return &TransactionRecord{
		TxID:   r.TxID,
		Result: r.Result.Clone(),
	}
}
