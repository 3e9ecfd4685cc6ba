package uniqueness

import (
	"fmt"

	"github.com/lunfardo314/notary/ledger"
)

type (
	// ConflictResolver classifies input and reference states of the request against the ledger view.
	// The ledger already contains reservations of earlier requests of the same batch,
	// so those are indistinguishable from previously committed ones
	ConflictResolver struct {
		Ledger StateLedger
		Policy UnknownStatePolicy
	}

	// Conflicts all lists are sorted and without duplicates
	Conflicts struct {
		UnknownInputs      []ledger.StateRef
		ConsumedInputs     []ledger.StateRef
		UnknownReferences  []ledger.StateRef
		ConsumedReferences []ledger.StateRef
	}
)

func (r ConflictResolver) Resolve(req *Request) (*Conflicts, error) {
	ret := &Conflicts{}
	var err error
	if ret.UnknownInputs, ret.ConsumedInputs, err = r.classify(req.TxID, req.Inputs); err != nil {
		return nil, fmt.Errorf("resolving inputs of %s: %w", req.TxID.StringShort(), err)
	}
	if ret.UnknownReferences, ret.ConsumedReferences, err = r.classify(req.TxID, req.References); err != nil {
		return nil, fmt.Errorf("resolving references of %s: %w", req.TxID.StringShort(), err)
	}
	return ret, nil
}

// classify states consumed by the same transaction are not conflicting. It makes resubmission
// after a failure between reservation and recording of the outcome converge to success
func (r ConflictResolver) classify(txid ledger.TransactionID, refs []ledger.StateRef) (unknown, consumed []ledger.StateRef, err error) {
	for _, ref := range ledger.SortedUnique(refs) {
		var status StateStatus
		if status, err = r.Ledger.StatusOf(ref); err != nil {
			return nil, nil, err
		}
		switch status.Kind {
		case StateUnknown:
			if r.Policy == RejectUnknownStates {
				unknown = append(unknown, ref)
			}
		case StateConsumed:
			if status.ConsumingTx != txid {
				consumed = append(consumed, ref)
			}
		}
	}
	return
}

func (c *Conflicts) IsEmpty() bool {
	return len(c.UnknownInputs) == 0 && len(c.ConsumedInputs) == 0 &&
		len(c.UnknownReferences) == 0 && len(c.ConsumedReferences) == 0
}

// Result returns the rejection which follows from the conflicts, or false if there's nothing to reject.
// Priority: unknown inputs, consumed inputs, unknown references, consumed references.
// Unknown references are reported as InputStateUnknown
func (c *Conflicts) Result() (Result, bool) {
	switch {
	case len(c.UnknownInputs) > 0:
		return InputStateUnknown(c.UnknownInputs...), true
	case len(c.ConsumedInputs) > 0:
		return InputStateConflict(c.ConsumedInputs...), true
	case len(c.UnknownReferences) > 0:
		return InputStateUnknown(c.UnknownReferences...), true
	case len(c.ConsumedReferences) > 0:
		return ReferenceStateConflict(c.ConsumedReferences...), true
	}
	return Result{}, false
}
