package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/partition"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/util"
	"github.com/lunfardo314/notary/util/queue"
	"go.uber.org/atomic"
)

type (
	Environment interface {
		global.NodeGlobal
	}

	// Notary is the state space of one notary identity
	Notary struct {
		Name     string
		Ledger   uniqueness.StateLedger
		Outcomes uniqueness.OutcomeStore
	}

	// Workflow accepts submissions, merges them into inbound batches and runs the batches through
	// the checkers of the notaries. Submissions are accepted only when the workflow is ready
	Workflow struct {
		Environment
		cfg        ConfigParams
		notaries   map[string]*Notary
		dispatcher *partition.Dispatcher
		queue      *queue.Queue[*submission]
		ready      atomic.Bool
		started    atomic.Bool
		startOnce  sync.Once
		stopOnce   sync.Once
		metrics    metrics
	}

	submission struct {
		requests []*partition.Request
		result   chan []partition.Result
	}
)

const (
	Name     = "workflow"
	TraceTag = "workflow"
)

var (
	ErrNotReady      = errors.New("notary is not ready")
	ErrUnknownNotary = errors.New("unknown notary")
	ErrWrongRequest  = errors.New("wrong request")
)

func New(env Environment, notaries []*Notary, opts ...ConfigOption) *Workflow {
	cfg := defaultConfigParams()
	for _, opt := range opts {
		opt(&cfg)
	}
	ret := &Workflow{
		Environment: env,
		cfg:         cfg,
		notaries:    make(map[string]*Notary),
	}
	processors := make(map[string]partition.Processor)
	for _, n := range notaries {
		util.Assertf(ret.notaries[n.Name] == nil, "workflow.New: repeating notary '%s'", n.Name)
		ret.notaries[n.Name] = n
		processors[n.Name] = uniqueness.New(env.SubLogger("checker-"+n.Name), n.Ledger, n.Outcomes,
			uniqueness.WithClock(cfg.clock),
			uniqueness.WithUnknownStatePolicy(cfg.unknownStates),
		)
	}
	ret.dispatcher = partition.NewDispatcher(processors, cfg.maxParallel)
	ret.registerMetrics()
	return ret
}

func (w *Workflow) Start() {
	w.startOnce.Do(func() {
		w.queue = queue.New(w.consume, w.cfg.maxBatchSize)
		w.started.Store(true)
		w.MarkWorkProcessStarted(Name)
		w.Log().Infof("[%s] STARTED. Notaries: %v, max batch size: %s, max parallel: %d, unknown states: %s",
			Name, w.Notaries(), util.GoThousands(w.cfg.maxBatchSize), w.cfg.maxParallel, w.cfg.unknownStates.String())

		go func() {
			// work process stops by observing closing global context
			<-w.Ctx().Done()
			w.Stop()
		}()
	})
}

// Stop rejects new submissions, processes all accepted ones and stops the consumer
func (w *Workflow) Stop() {
	w.stopOnce.Do(func() {
		w.SetReady(false)
		if !w.started.Load() {
			return
		}
		w.queue.Close(true)
		w.queue.WaitStopped()
		w.MarkWorkProcessStopped(Name)
		w.Log().Infof("[%s] STOPPED", Name)
	})
}

// SetReady opens or closes the readiness gate
func (w *Workflow) SetReady(ready bool) {
	util.Assertf(!ready || w.started.Load(), "workflow.SetReady: workflow is not started")
	if w.ready.Swap(ready) != ready {
		w.Log().Infof("[%s] ready: %v", Name, ready)
	}
}

func (w *Workflow) IsReady() bool {
	return w.ready.Load()
}

func (w *Workflow) Notaries() []string {
	return w.dispatcher.Notaries()
}

func (w *Workflow) notary(name string) (*Notary, error) {
	if n, found := w.notaries[name]; found {
		return n, nil
	}
	return nil, fmt.Errorf("%w '%s'", ErrUnknownNotary, name)
}

// Submit returns exactly one result per request in the order of requests.
// The whole submission is rejected if the workflow is not ready or any request is malformed.
// If ctx is done before results are available, requests may still be processed
// and their outcomes can be retrieved by resubmission
func (w *Workflow) Submit(ctx context.Context, requests []*partition.Request) ([]partition.Result, error) {
	if !w.IsReady() {
		return nil, ErrNotReady
	}
	for i, req := range requests {
		if req == nil || req.Request == nil {
			return nil, fmt.Errorf("%w: nil request at position %d", ErrWrongRequest, i)
		}
		if _, err := w.notary(req.Notary); err != nil {
			return nil, fmt.Errorf("request %d (%s): %w", i, req.TxID.StringShort(), err)
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("%w: request %d: %v", ErrWrongRequest, i, err)
		}
	}
	if len(requests) == 0 {
		return []partition.Result{}, nil
	}
	sub := &submission{
		requests: requests,
		result:   make(chan []partition.Result, 1),
	}
	if !w.queue.Push(sub) {
		return nil, ErrNotReady
	}
	w.metrics.queueSize.Set(float64(w.queue.Len()))

	select {
	case res := <-sub.result:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Workflow) consume(subs []*submission) {
	w.metrics.queueSize.Set(float64(w.queue.Len()))
	for _, batch := range w.mergeSubmissions(subs) {
		w.processBatch(batch)
	}
}

// mergeSubmissions groups consecutive submissions into batches of at most maxBatchSize requests.
// A submission is never split between batches
func (w *Workflow) mergeSubmissions(subs []*submission) [][]*submission {
	ret := make([][]*submission, 0)
	var current []*submission
	size := 0
	for _, sub := range subs {
		if len(current) > 0 && size+len(sub.requests) > w.cfg.maxBatchSize {
			ret = append(ret, current)
			current, size = nil, 0
		}
		current = append(current, sub)
		size += len(sub.requests)
	}
	if len(current) > 0 {
		ret = append(ret, current)
	}
	return ret
}

func (w *Workflow) processBatch(subs []*submission) {
	batchID := uuid.New()
	requests := make([]*partition.Request, 0)
	for _, sub := range subs {
		requests = append(requests, sub.requests...)
	}
	start := time.Now()
	results := w.dispatcher.Process(w.Ctx(), requests)
	elapsed := time.Since(start)

	w.updateMetrics(results, elapsed)
	w.Log().Debugf("[%s] batch %s: %s requests from %d submissions processed in %v",
		Name, batchID.String(), util.GoThousands(len(requests)), len(subs), elapsed)
	w.Tracef(TraceTag, "batch %s results:\n%s", batchID.String, func() string { return resultLines(results) })

	offset := 0
	for _, sub := range subs {
		sub.result <- results[offset : offset+len(sub.requests)]
		offset += len(sub.requests)
	}
}

func (w *Workflow) GetOutcome(notary string, txid ledger.TransactionID) (*uniqueness.TransactionRecord, error) {
	n, err := w.notary(notary)
	if err != nil {
		return nil, err
	}
	return n.Outcomes.Get(txid)
}

func (w *Workflow) GetStateStatus(notary string, ref ledger.StateRef) (uniqueness.StateStatus, error) {
	n, err := w.notary(notary)
	if err != nil {
		return uniqueness.StateStatus{}, err
	}
	return n.Ledger.StatusOf(ref)
}

func resultLines(results []partition.Result) string {
	ret := ""
	for i := range results {
		ret += fmt.Sprintf("    %s/%s\n", results[i].Notary, results[i].String())
	}
	return ret
}
