package uniqueness

import (
	"fmt"
	"sync"
	"time"

	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/util"
)

type (
	Environment interface {
		global.Logging
	}

	// Checker decides commit or rejection of transactions against one state ledger.
	// Calls of ProcessRequests are serialized
	Checker struct {
		Environment
		mutex    sync.Mutex
		ledger   StateLedger
		outcomes OutcomeStore
		resolver ConflictResolver
		clock    Clock
		commit   commitClock
	}

	Option func(c *Checker)
)

const TraceTag = "checker"

func WithClock(clock Clock) Option {
	return func(c *Checker) {
		c.clock = clock
	}
}

func WithUnknownStatePolicy(policy UnknownStatePolicy) Option {
	return func(c *Checker) {
		c.resolver.Policy = policy
	}
}

func New(env Environment, stateLedger StateLedger, outcomes OutcomeStore, opts ...Option) *Checker {
	util.Assertf(stateLedger != nil && outcomes != nil, "uniqueness.New: state ledger and outcome store must not be nil")
	ret := &Checker{
		Environment: env,
		ledger:      stateLedger,
		outcomes:    outcomes,
		resolver: ConflictResolver{
			Ledger: stateLedger,
			Policy: RejectUnknownStates,
		},
		clock: SystemClock{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// ProcessRequests returns exactly one record per request, in the order of requests.
// Requests are processed sequentially, each one sees the effects of the previous ones
func (c *Checker) ProcessRequests(requests []*Request) []TransactionRecord {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ret := make([]TransactionRecord, len(requests))
	for i, req := range requests {
		ret[i] = c.processRequest(req)
	}
	return ret
}

func (c *Checker) processRequest(req *Request) (ret TransactionRecord) {
	if req == nil {
		return TransactionRecord{Result: UnhandledError("nil request")}
	}
	err := util.CatchPanicOrError(func() error {
		var err error
		ret, err = c.checkAndCommit(req)
		return err
	})
	if err != nil {
		c.Log().Errorf("unhandled error while processing %s: %v", req.TxID.StringShort(), err)
		return TransactionRecord{TxID: req.TxID, Result: UnhandledError("%v", err)}
	}
	c.Tracef(TraceTag, "%s -> %s", req.TxID.StringShort, ret.Result.String)
	return ret
}

func (c *Checker) checkAndCommit(req *Request) (TransactionRecord, error) {
	rec, err := c.outcomes.Get(req.TxID)
	if err != nil {
		return TransactionRecord{}, fmt.Errorf("reading outcome of %s: %w", req.TxID.StringShort(), err)
	}
	if rec != nil {
		c.Tracef(TraceTag, "%s: outcome already known", req.TxID.StringShort)
		return *rec, nil
	}
	result, err := c.decide(req)
	if err != nil {
		return TransactionRecord{}, err
	}
	stored, err := c.outcomes.PutIfAbsent(&TransactionRecord{TxID: req.TxID, Result: result})
	if err != nil {
		return TransactionRecord{}, fmt.Errorf("storing outcome of %s: %w", req.TxID.StringShort(), err)
	}
	return *stored, nil
}

func (c *Checker) decide(req *Request) (Result, error) {
	reservedAt, reserved, err := c.reservedAt(req)
	if err != nil {
		return Result{}, err
	}
	if reserved {
		c.Tracef(TraceTag, "%s: resuming commit of %s", req.TxID.StringShort, reservedAt.String)
		return c.commitAt(req, reservedAt)
	}

	now := c.clock.Now()
	if violation := req.TimeWindow.Validate(now); !violation.IsValid() {
		return TimeWindowOutOfBounds(req.TimeWindow, violation, now), nil
	}
	conflicts, err := c.resolver.Resolve(req)
	if err != nil {
		return Result{}, err
	}
	if rejection, rejected := conflicts.Result(); rejected {
		return rejection, nil
	}
	return c.commitAt(req, c.commit.next(now))
}

// reservedAt returns the commit timestamp of an earlier attempt which reserved inputs of the request
// but failed before its outcome was recorded. Time window and conflicts were checked by that attempt
func (c *Checker) reservedAt(req *Request) (time.Time, bool, error) {
	for _, ref := range req.Inputs {
		st, err := c.ledger.StatusOf(ref)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("reading status of input %s of %s: %w", ref.String(), req.TxID.StringShort(), err)
		}
		if st.Kind == StateConsumed && st.ConsumingTx == req.TxID {
			return st.CommitTimestamp, true, nil
		}
	}
	return time.Time{}, false, nil
}

func (c *Checker) commitAt(req *Request, ts time.Time) (Result, error) {
	consumed, err := c.ledger.TryReserveAll(req.Inputs, req.TxID, ts)
	if err != nil {
		return Result{}, fmt.Errorf("reserving inputs of %s: %w", req.TxID.StringShort(), err)
	}
	if len(consumed) > 0 {
		// only possible if the ledger is shared with another writer
		return InputStateConflict(consumed...), nil
	}
	if err = c.ledger.ProduceUnspent(req.TxID, req.NumOutputs); err != nil {
		return Result{}, fmt.Errorf("producing outputs of %s: %w", req.TxID.StringShort(), err)
	}
	return Success(ts), nil
}
