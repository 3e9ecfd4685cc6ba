package api

import (
	"fmt"
	"time"

	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/partition"
	"github.com/lunfardo314/notary/uniqueness"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func RequestFromPartition(req *partition.Request) Request {
	ret := Request{
		Notary:     req.Notary,
		TxID:       req.TxID.String(),
		Inputs:     ledger.StateRefsStrings(req.Inputs),
		References: ledger.StateRefsStrings(req.References),
		NumOutputs: req.NumOutputs,
	}
	if req.TimeWindow.HasLowerBound() || req.TimeWindow.HasUpperBound() {
		ret.TimeWindow = &TimeWindow{
			LowerBound: formatTime(req.TimeWindow.LowerBound),
			UpperBound: formatTime(req.TimeWindow.UpperBound),
		}
	}
	return ret
}

func (r *Request) Parse() (*partition.Request, error) {
	txid, err := ledger.TransactionIDFromHexString(r.TxID)
	if err != nil {
		return nil, fmt.Errorf("wrong txid '%s': %w", r.TxID, err)
	}
	ret := &partition.Request{
		Notary: r.Notary,
		Request: &uniqueness.Request{
			TxID:       txid,
			NumOutputs: r.NumOutputs,
		},
	}
	if ret.Inputs, err = ledger.ParseStateRefs(r.Inputs); err != nil {
		return nil, fmt.Errorf("wrong input of %s: %w", txid.StringShort(), err)
	}
	if ret.References, err = ledger.ParseStateRefs(r.References); err != nil {
		return nil, fmt.Errorf("wrong reference of %s: %w", txid.StringShort(), err)
	}
	if r.TimeWindow != nil {
		if ret.TimeWindow.LowerBound, err = parseTime(r.TimeWindow.LowerBound); err != nil {
			return nil, fmt.Errorf("wrong time window lower bound of %s: %w", txid.StringShort(), err)
		}
		if ret.TimeWindow.UpperBound, err = parseTime(r.TimeWindow.UpperBound); err != nil {
			return nil, fmt.Errorf("wrong time window upper bound of %s: %w", txid.StringShort(), err)
		}
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// ParseBatch the whole batch is rejected if any of the requests is malformed
func (b *ProcessBatch) Parse() ([]*partition.Request, error) {
	ret := make([]*partition.Request, len(b.Requests))
	var err error
	for i := range b.Requests {
		if ret[i], err = b.Requests[i].Parse(); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
	}
	return ret, nil
}

func ResultFromCore(res *uniqueness.Result) Result {
	ret := Result{
		Kind:            res.Kind.String(),
		CommitTimestamp: formatTime(res.CommitTimestamp),
		LowerBound:      formatTime(res.LowerBound),
		UpperBound:      formatTime(res.UpperBound),
		EvaluatedAt:     formatTime(res.EvaluatedAt),
		ErrorDetail:     res.ErrorDetail,
	}
	if len(res.States) > 0 {
		ret.States = ledger.StateRefsStrings(res.States)
	}
	return ret
}

func (r *Result) Parse() (ret uniqueness.Result, err error) {
	if ret.Kind, err = uniqueness.ResultKindFromString(r.Kind); err != nil {
		return
	}
	if ret.CommitTimestamp, err = parseTime(r.CommitTimestamp); err != nil {
		return
	}
	if ret.LowerBound, err = parseTime(r.LowerBound); err != nil {
		return
	}
	if ret.UpperBound, err = parseTime(r.UpperBound); err != nil {
		return
	}
	if ret.EvaluatedAt, err = parseTime(r.EvaluatedAt); err != nil {
		return
	}
	if len(r.States) > 0 {
		if ret.States, err = ledger.ParseStateRefs(r.States); err != nil {
			return
		}
	}
	ret.ErrorDetail = r.ErrorDetail
	return
}

func RecordFromCore(notary string, rec *uniqueness.TransactionRecord) TransactionRecord {
	return TransactionRecord{
		Notary: notary,
		TxID:   rec.TxID.String(),
		Result: ResultFromCore(&rec.Result),
	}
}

func RecordsFromResults(results []partition.Result) []TransactionRecord {
	ret := make([]TransactionRecord, len(results))
	for i := range results {
		ret[i] = RecordFromCore(results[i].Notary, &results[i].TransactionRecord)
	}
	return ret
}

func (r *TransactionRecord) Parse() (*partition.Result, error) {
	txid, err := ledger.TransactionIDFromHexString(r.TxID)
	if err != nil {
		return nil, fmt.Errorf("wrong txid '%s': %w", r.TxID, err)
	}
	res, err := r.Result.Parse()
	if err != nil {
		return nil, fmt.Errorf("wrong result of %s: %w", txid.StringShort(), err)
	}
	return &partition.Result{
		Notary: r.Notary,
		TransactionRecord: uniqueness.TransactionRecord{
			TxID:   txid,
			Result: res,
		},
	}, nil
}

func StateStatusFromCore(notary string, ref ledger.StateRef, st uniqueness.StateStatus) StateStatus {
	ret := StateStatus{
		Notary: notary,
		Ref:    ref.String(),
		Status: st.Kind.String(),
	}
	if st.Kind == uniqueness.StateConsumed {
		ret.ConsumingTx = st.ConsumingTx.String()
		ret.CommitTimestamp = formatTime(st.CommitTimestamp)
	}
	return ret
}

func (s *StateStatus) Parse() (ret uniqueness.StateStatus, err error) {
	switch s.Status {
	case uniqueness.StateUnknown.String():
		ret.Kind = uniqueness.StateUnknown
	case uniqueness.StateUnspent.String():
		ret.Kind = uniqueness.StateUnspent
	case uniqueness.StateConsumed.String():
		ret.Kind = uniqueness.StateConsumed
		if ret.ConsumingTx, err = ledger.TransactionIDFromHexString(s.ConsumingTx); err != nil {
			return
		}
		ret.CommitTimestamp, err = parseTime(s.CommitTimestamp)
	default:
		err = fmt.Errorf("wrong state status '%s'", s.Status)
	}
	return
}
