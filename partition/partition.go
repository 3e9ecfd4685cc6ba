package partition

import (
	"context"
	"fmt"

	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/util"
	"golang.org/x/sync/errgroup"
)

type (
	// Request is a uniqueness check request addressed to the notary identity
	Request struct {
		Notary string
		*uniqueness.Request
	}

	Result struct {
		Notary string
		uniqueness.TransactionRecord
	}

	// SubBatch requests of one notary in the order they appear in the inbound batch
	SubBatch struct {
		Notary    string
		Requests  []*uniqueness.Request
		positions []int
	}

	Processor interface {
		ProcessRequests(requests []*uniqueness.Request) []uniqueness.TransactionRecord
	}

	// Dispatcher processes sub-batches of different notaries in parallel
	Dispatcher struct {
		processors  map[string]Processor
		maxParallel int
	}
)

// Split groups requests by notary. Sub-batches are ordered by the first appearance of the notary
func Split(requests []*Request) []*SubBatch {
	ret := make([]*SubBatch, 0)
	byNotary := make(map[string]*SubBatch)
	for i, req := range requests {
		var notary string
		var r *uniqueness.Request
		if req != nil {
			notary, r = req.Notary, req.Request
		}
		sb, found := byNotary[notary]
		if !found {
			sb = &SubBatch{Notary: notary}
			byNotary[notary] = sb
			ret = append(ret, sb)
		}
		sb.Requests = append(sb.Requests, r)
		sb.positions = append(sb.positions, i)
	}
	return ret
}

// NewDispatcher maxParallel <= 0 means no limit
func NewDispatcher(processors map[string]Processor, maxParallel int) *Dispatcher {
	return &Dispatcher{
		processors:  processors,
		maxParallel: maxParallel,
	}
}

func (d *Dispatcher) Notaries() []string {
	return util.KeysSorted(d.processors, func(k1, k2 string) bool { return k1 < k2 })
}

func (d *Dispatcher) HasNotary(notary string) bool {
	_, found := d.processors[notary]
	return found
}

// Process returns exactly one result per request, in the order of requests
func (d *Dispatcher) Process(ctx context.Context, requests []*Request) []Result {
	ret := make([]Result, len(requests))
	var g errgroup.Group
	if d.maxParallel > 0 {
		g.SetLimit(d.maxParallel)
	}
	for _, sb := range Split(requests) {
		sb := sb
		g.Go(func() error {
			records := d.processSubBatch(ctx, sb)
			for i, pos := range sb.positions {
				ret[pos] = Result{Notary: sb.Notary, TransactionRecord: records[i]}
			}
			return nil
		})
	}
	_ = g.Wait()
	return ret
}

func (d *Dispatcher) processSubBatch(ctx context.Context, sb *SubBatch) (ret []uniqueness.TransactionRecord) {
	proc, found := d.processors[sb.Notary]
	if !found {
		return sb.failAll("unknown notary '%s'", sb.Notary)
	}
	if err := ctx.Err(); err != nil {
		return sb.failAll("sub-batch of notary '%s' not processed: %v", sb.Notary, err)
	}
	err := util.CatchPanicOrError(func() error {
		ret = proc.ProcessRequests(sb.Requests)
		if len(ret) != len(sb.Requests) {
			return fmt.Errorf("expected %d results, got %d", len(sb.Requests), len(ret))
		}
		return nil
	})
	if err != nil {
		return sb.failAll("processing sub-batch of notary '%s': %v", sb.Notary, err)
	}
	return ret
}

func (sb *SubBatch) failAll(format string, args ...any) []uniqueness.TransactionRecord {
	ret := make([]uniqueness.TransactionRecord, len(sb.Requests))
	for i, req := range sb.Requests {
		if req != nil {
			ret[i].TxID = req.TxID
		}
		ret[i].Result = uniqueness.UnhandledError(format, args...)
	}
	return ret
}

func (sb *SubBatch) Len() int {
	return len(sb.Requests)
}
