package uniqueness

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

var testStartTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	*testing.T
	glb      *global.Global
	ledger   *InMemoryStateLedger
	outcomes *InMemoryOutcomeStore
	clock    *ManualClock
	checker  *Checker
	genesis  ledger.TransactionID
}

func newTestEnv(t *testing.T, genesisOutputs uint32, opts ...Option) *testEnv {
	ret := &testEnv{
		T:        t,
		glb:      global.NewDefault(),
		ledger:   NewInMemoryStateLedger(),
		outcomes: NewInMemoryOutcomeStore(),
		clock:    NewManualClock(testStartTime),
		genesis:  ledger.HashTransactionBytes([]byte("genesis")),
	}
	require.NoError(t, ret.ledger.ProduceUnspent(ret.genesis, genesisOutputs))
	opts = append([]Option{WithClock(ret.clock)}, opts...)
	ret.checker = New(ret.glb, ret.ledger, ret.outcomes, opts...)
	return ret
}

func (e *testEnv) genesisState(idx uint32) ledger.StateRef {
	return ledger.NewStateRef(e.genesis, idx)
}

func txid(name string) ledger.TransactionID {
	return ledger.HashTransactionBytes([]byte(name))
}

func TestCheckerScenarios(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		env := newTestEnv(t, 0)
		require.EqualValues(t, 0, len(env.checker.ProcessRequests(nil)))
		require.EqualValues(t, 0, len(env.checker.ProcessRequests([]*Request{})))
	})
	t.Run("spend one state", func(t *testing.T) {
		env := newTestEnv(t, 1)
		res := env.checker.ProcessRequests([]*Request{{
			TxID:       txid("tx1"),
			Inputs:     []ledger.StateRef{env.genesisState(0)},
			NumOutputs: 2,
		}})
		require.EqualValues(t, 1, len(res))
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
		require.True(t, res[0].Result.CommitTimestamp.Equal(testStartTime))

		st, err := env.ledger.StatusOf(env.genesisState(0))
		require.NoError(t, err)
		require.EqualValues(t, StateConsumed, st.Kind)
		require.EqualValues(t, txid("tx1"), st.ConsumingTx)
		require.True(t, st.CommitTimestamp.Equal(res[0].Result.CommitTimestamp))

		for i := uint32(0); i < 2; i++ {
			st, err = env.ledger.StatusOf(ledger.NewStateRef(txid("tx1"), i))
			require.NoError(t, err)
			require.EqualValues(t, StateUnspent, st.Kind)
		}
		st, err = env.ledger.StatusOf(ledger.NewStateRef(txid("tx1"), 2))
		require.NoError(t, err)
		require.EqualValues(t, StateUnknown, st.Kind)
	})
	t.Run("empty request", func(t *testing.T) {
		env := newTestEnv(t, 0)
		res := env.checker.ProcessRequests([]*Request{{TxID: txid("empty")}})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
	})
	t.Run("overlap in one batch", func(t *testing.T) {
		env := newTestEnv(t, 4)
		s0, s1, s2, s3 := env.genesisState(0), env.genesisState(1), env.genesisState(2), env.genesisState(3)
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), Inputs: []ledger.StateRef{s0, s1, s2}},
			{TxID: txid("tx2"), Inputs: []ledger.StateRef{s3, s2, s1}},
		})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
		require.EqualValues(t, ResultInputStateConflict, res[1].Result.Kind)
		require.EqualValues(t, ledger.SortedUnique([]ledger.StateRef{s1, s2}), res[1].Result.States)

		// the rejected transaction did not consume anything
		st, err := env.ledger.StatusOf(s3)
		require.NoError(t, err)
		require.EqualValues(t, StateUnspent, st.Kind)
	})
	t.Run("overlap in separate batches", func(t *testing.T) {
		env := newTestEnv(t, 4)
		s0, s1, s2, s3 := env.genesisState(0), env.genesisState(1), env.genesisState(2), env.genesisState(3)
		res1 := env.checker.ProcessRequests([]*Request{{TxID: txid("tx1"), Inputs: []ledger.StateRef{s0, s1, s2}}})
		res2 := env.checker.ProcessRequests([]*Request{{TxID: txid("tx2"), Inputs: []ledger.StateRef{s1, s2, s3}}})
		require.EqualValues(t, ResultSuccess, res1[0].Result.Kind)
		require.EqualValues(t, ResultInputStateConflict, res2[0].Result.Kind)
		require.EqualValues(t, ledger.SortedUnique([]ledger.StateRef{s1, s2}), res2[0].Result.States)
	})
	t.Run("reference conflict", func(t *testing.T) {
		env := newTestEnv(t, 2)
		s0, s1 := env.genesisState(0), env.genesisState(1)
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), Inputs: []ledger.StateRef{s0}},
			{TxID: txid("tx2"), Inputs: []ledger.StateRef{s1}, References: []ledger.StateRef{s0}},
		})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
		require.EqualValues(t, ResultReferenceStateConflict, res[1].Result.Kind)
		require.EqualValues(t, []ledger.StateRef{s0}, res[1].Result.States)
	})
	t.Run("input conflict takes priority", func(t *testing.T) {
		env := newTestEnv(t, 3)
		s0, s1, s2 := env.genesisState(0), env.genesisState(1), env.genesisState(2)
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), Inputs: []ledger.StateRef{s0, s1}},
			{TxID: txid("tx2"), Inputs: []ledger.StateRef{s0, s2}, References: []ledger.StateRef{s1}},
		})
		require.EqualValues(t, ResultInputStateConflict, res[1].Result.Kind)
		require.EqualValues(t, []ledger.StateRef{s0}, res[1].Result.States)
	})
	t.Run("reference to unspent state", func(t *testing.T) {
		env := newTestEnv(t, 2)
		s0, s1 := env.genesisState(0), env.genesisState(1)
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), Inputs: []ledger.StateRef{s0}, References: []ledger.StateRef{s1}},
			{TxID: txid("tx2"), Inputs: []ledger.StateRef{s1}},
		})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
		require.EqualValues(t, ResultSuccess, res[1].Result.Kind)
	})
	t.Run("input is also reference", func(t *testing.T) {
		env := newTestEnv(t, 1)
		s0 := env.genesisState(0)
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), Inputs: []ledger.StateRef{s0}, References: []ledger.StateRef{s0}},
		})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
	})
	t.Run("duplicate inputs", func(t *testing.T) {
		env := newTestEnv(t, 1)
		s0 := env.genesisState(0)
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), Inputs: []ledger.StateRef{s0, s0}},
		})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
	})
	t.Run("chain in one batch", func(t *testing.T) {
		env := newTestEnv(t, 1)
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), Inputs: []ledger.StateRef{env.genesisState(0)}, NumOutputs: 1},
			{TxID: txid("tx2"), Inputs: []ledger.StateRef{ledger.NewStateRef(txid("tx1"), 0)}, NumOutputs: 1},
			{TxID: txid("tx3"), Inputs: []ledger.StateRef{ledger.NewStateRef(txid("tx1"), 0)}},
		})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
		require.EqualValues(t, ResultSuccess, res[1].Result.Kind)
		require.EqualValues(t, ResultInputStateConflict, res[2].Result.Kind)
		require.True(t, res[0].Result.CommitTimestamp.Before(res[1].Result.CommitTimestamp))
	})
	t.Run("nil request", func(t *testing.T) {
		env := newTestEnv(t, 0)
		res := env.checker.ProcessRequests([]*Request{nil, {TxID: txid("tx1")}})
		require.EqualValues(t, 2, len(res))
		require.EqualValues(t, ResultUnhandledError, res[0].Result.Kind)
		require.EqualValues(t, ResultSuccess, res[1].Result.Kind)
	})
}

func TestUnknownStates(t *testing.T) {
	unknown := ledger.NewStateRef(txid("nowhere"), 5)
	t.Run("reject input", func(t *testing.T) {
		env := newTestEnv(t, 1)
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), Inputs: []ledger.StateRef{env.genesisState(0), unknown}},
		})
		require.EqualValues(t, ResultInputStateUnknown, res[0].Result.Kind)
		require.EqualValues(t, []ledger.StateRef{unknown}, res[0].Result.States)

		st, err := env.ledger.StatusOf(env.genesisState(0))
		require.NoError(t, err)
		require.EqualValues(t, StateUnspent, st.Kind)
	})
	t.Run("reject reference", func(t *testing.T) {
		env := newTestEnv(t, 1)
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), Inputs: []ledger.StateRef{env.genesisState(0)}, References: []ledger.StateRef{unknown}},
		})
		require.EqualValues(t, ResultInputStateUnknown, res[0].Result.Kind)
		require.EqualValues(t, []ledger.StateRef{unknown}, res[0].Result.States)
	})
	t.Run("accept", func(t *testing.T) {
		env := newTestEnv(t, 0, WithUnknownStatePolicy(AcceptUnknownStates))
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), Inputs: []ledger.StateRef{unknown}},
			{TxID: txid("tx2"), Inputs: []ledger.StateRef{unknown}},
		})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
		require.EqualValues(t, ResultInputStateConflict, res[1].Result.Kind)
	})
	t.Run("policy names", func(t *testing.T) {
		p, err := UnknownStatePolicyFromString("accept")
		require.NoError(t, err)
		require.EqualValues(t, AcceptUnknownStates, p)
		p, err = UnknownStatePolicyFromString("")
		require.NoError(t, err)
		require.EqualValues(t, RejectUnknownStates, p)
		_, err = UnknownStatePolicyFromString("ignore")
		require.Error(t, err)
	})
}

func TestIdempotency(t *testing.T) {
	t.Run("success replay", func(t *testing.T) {
		env := newTestEnv(t, 1)
		req := &Request{TxID: txid("tx1"), Inputs: []ledger.StateRef{env.genesisState(0)}, NumOutputs: 1}
		res1 := env.checker.ProcessRequests([]*Request{req})
		env.clock.Advance(time.Hour)
		res2 := env.checker.ProcessRequests([]*Request{req})
		require.EqualValues(t, res1, res2)
		require.EqualValues(t, res1[0].Result.MustBytes(), res2[0].Result.MustBytes())
	})
	t.Run("replay in the same batch", func(t *testing.T) {
		env := newTestEnv(t, 1)
		req := &Request{TxID: txid("tx1"), Inputs: []ledger.StateRef{env.genesisState(0)}}
		res := env.checker.ProcessRequests([]*Request{req, req})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
		require.EqualValues(t, res[0], res[1])
	})
	t.Run("conflict replay", func(t *testing.T) {
		env := newTestEnv(t, 1)
		s0 := env.genesisState(0)
		env.checker.ProcessRequests([]*Request{{TxID: txid("tx1"), Inputs: []ledger.StateRef{s0}}})
		req := &Request{TxID: txid("tx2"), Inputs: []ledger.StateRef{s0}}
		res1 := env.checker.ProcessRequests([]*Request{req})
		res2 := env.checker.ProcessRequests([]*Request{req})
		require.EqualValues(t, ResultInputStateConflict, res1[0].Result.Kind)
		require.EqualValues(t, res1, res2)
	})
	t.Run("time window replay", func(t *testing.T) {
		env := newTestEnv(t, 1)
		req := &Request{
			TxID:       txid("tx1"),
			Inputs:     []ledger.StateRef{env.genesisState(0)},
			TimeWindow: TimeWindow{UpperBound: testStartTime.Add(-time.Second)},
		}
		res1 := env.checker.ProcessRequests([]*Request{req})
		require.EqualValues(t, ResultTimeWindowOutOfBounds, res1[0].Result.Kind)
		require.True(t, res1[0].Result.UpperBound.Equal(req.TimeWindow.UpperBound))
		require.True(t, res1[0].Result.LowerBound.IsZero())
		require.True(t, res1[0].Result.EvaluatedAt.Equal(testStartTime))

		// window would be valid now, the recorded outcome still wins
		env.clock.Set(testStartTime.Add(-time.Hour))
		res2 := env.checker.ProcessRequests([]*Request{req})
		require.EqualValues(t, res1, res2)

		st, err := env.ledger.StatusOf(env.genesisState(0))
		require.NoError(t, err)
		require.EqualValues(t, StateUnspent, st.Kind)
	})
	t.Run("time window boundaries", func(t *testing.T) {
		env := newTestEnv(t, 0)
		res := env.checker.ProcessRequests([]*Request{
			{TxID: txid("tx1"), TimeWindow: TimeWindow{LowerBound: testStartTime}},
			{TxID: txid("tx2"), TimeWindow: TimeWindow{UpperBound: testStartTime}},
			{TxID: txid("tx3"), TimeWindow: TimeWindow{LowerBound: testStartTime.Add(time.Nanosecond)}},
		})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
		require.EqualValues(t, ResultSuccess, res[1].Result.Kind)
		require.EqualValues(t, ResultTimeWindowOutOfBounds, res[2].Result.Kind)
		require.False(t, res[2].Result.LowerBound.IsZero())
	})
}

func TestCommitTimestamps(t *testing.T) {
	env := newTestEnv(t, 0)
	const n = 20
	reqs := make([]*Request, n)
	for i := range reqs {
		reqs[i] = &Request{TxID: txid(fmt.Sprintf("tx%d", i))}
	}
	// clock does not move
	res := env.checker.ProcessRequests(reqs[:n/2])
	// clock moves back
	env.clock.Advance(-time.Second)
	res = append(res, env.checker.ProcessRequests(reqs[n/2:])...)
	for i := 1; i < n; i++ {
		require.True(t, res[i-1].Result.CommitTimestamp.Before(res[i].Result.CommitTimestamp))
	}
	require.True(t, res[0].Result.CommitTimestamp.Equal(testStartTime))
	require.True(t, res[n-1].Result.CommitTimestamp.Equal(testStartTime.Add((n-1)*time.Nanosecond)))
}

type faultyLedger struct {
	StateLedger
	failReserve atomic.Int32
	failProduce atomic.Int32
	panicStatus atomic.Bool
}

var errInjected = errors.New("injected failure")

func (f *faultyLedger) StatusOf(ref ledger.StateRef) (StateStatus, error) {
	if f.panicStatus.Load() {
		panic("injected panic")
	}
	return f.StateLedger.StatusOf(ref)
}

func (f *faultyLedger) TryReserveAll(refs []ledger.StateRef, txid ledger.TransactionID, ts time.Time) ([]ledger.StateRef, error) {
	if f.failReserve.Dec() >= 0 {
		return nil, errInjected
	}
	return f.StateLedger.TryReserveAll(refs, txid, ts)
}

func (f *faultyLedger) ProduceUnspent(txid ledger.TransactionID, count uint32) error {
	if f.failProduce.Dec() >= 0 {
		return errInjected
	}
	return f.StateLedger.ProduceUnspent(txid, count)
}

func TestUnhandledErrors(t *testing.T) {
	newFaultyEnv := func(t *testing.T) (*testEnv, *faultyLedger) {
		env := newTestEnv(t, 2)
		faulty := &faultyLedger{StateLedger: env.ledger}
		env.checker = New(env.glb, faulty, env.outcomes, WithClock(env.clock))
		return env, faulty
	}
	t.Run("not recorded and retried", func(t *testing.T) {
		env, faulty := newFaultyEnv(t)
		faulty.failReserve.Store(1)
		req := &Request{TxID: txid("tx1"), Inputs: []ledger.StateRef{env.genesisState(0)}}
		res := env.checker.ProcessRequests([]*Request{req, {TxID: txid("tx2"), Inputs: []ledger.StateRef{env.genesisState(1)}}})
		require.EqualValues(t, ResultUnhandledError, res[0].Result.Kind)
		require.Contains(t, res[0].Result.ErrorDetail, "injected failure")
		// failures are independent per request
		require.EqualValues(t, ResultSuccess, res[1].Result.Kind)

		rec, err := env.outcomes.Get(req.TxID)
		require.NoError(t, err)
		require.Nil(t, rec)

		res = env.checker.ProcessRequests([]*Request{req})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
	})
	t.Run("resume after partial commit", func(t *testing.T) {
		env, faulty := newFaultyEnv(t)
		faulty.failProduce.Store(1)
		req := &Request{TxID: txid("tx1"), Inputs: []ledger.StateRef{env.genesisState(0)}, NumOutputs: 1}
		res := env.checker.ProcessRequests([]*Request{req})
		require.EqualValues(t, ResultUnhandledError, res[0].Result.Kind)

		// inputs are already reserved by the same transaction
		st, err := env.ledger.StatusOf(env.genesisState(0))
		require.NoError(t, err)
		require.EqualValues(t, StateConsumed, st.Kind)

		reservedAt := st.CommitTimestamp
		env.clock.Advance(time.Second)
		res = env.checker.ProcessRequests([]*Request{req})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
		// the commit timestamp is the one of the reservation
		require.True(t, reservedAt.Equal(res[0].Result.CommitTimestamp))
		st, err = env.ledger.StatusOf(env.genesisState(0))
		require.NoError(t, err)
		require.True(t, st.CommitTimestamp.Equal(res[0].Result.CommitTimestamp))
		st, err = env.ledger.StatusOf(ledger.NewStateRef(req.TxID, 0))
		require.NoError(t, err)
		require.EqualValues(t, StateUnspent, st.Kind)

		// other transactions still see the conflict
		res = env.checker.ProcessRequests([]*Request{{TxID: txid("tx2"), Inputs: []ledger.StateRef{env.genesisState(0)}}})
		require.EqualValues(t, ResultInputStateConflict, res[0].Result.Kind)
	})
	t.Run("resume after time window closed", func(t *testing.T) {
		env, faulty := newFaultyEnv(t)
		faulty.failProduce.Store(1)
		req := &Request{
			TxID:       txid("tx1"),
			Inputs:     []ledger.StateRef{env.genesisState(0)},
			NumOutputs: 1,
			TimeWindow: TimeWindow{UpperBound: testStartTime.Add(time.Minute)},
		}
		res := env.checker.ProcessRequests([]*Request{req})
		require.EqualValues(t, ResultUnhandledError, res[0].Result.Kind)

		env.clock.Advance(time.Hour)
		res = env.checker.ProcessRequests([]*Request{req})
		require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
		require.True(t, res[0].Result.CommitTimestamp.Equal(testStartTime))

		rec, err := env.outcomes.Get(req.TxID)
		require.NoError(t, err)
		require.NotNil(t, rec)
		require.EqualValues(t, ResultSuccess, rec.Result.Kind)

		// the state is consumed by a successful transaction
		res = env.checker.ProcessRequests([]*Request{{TxID: txid("tx2"), Inputs: []ledger.StateRef{env.genesisState(0)}}})
		require.EqualValues(t, ResultInputStateConflict, res[0].Result.Kind)
		st, err := env.ledger.StatusOf(env.genesisState(0))
		require.NoError(t, err)
		require.EqualValues(t, req.TxID, st.ConsumingTx)
		require.True(t, st.CommitTimestamp.Equal(rec.Result.CommitTimestamp))
	})
	t.Run("panic", func(t *testing.T) {
		env, faulty := newFaultyEnv(t)
		faulty.panicStatus.Store(true)
		res := env.checker.ProcessRequests([]*Request{{TxID: txid("tx1"), Inputs: []ledger.StateRef{env.genesisState(0)}}})
		require.EqualValues(t, ResultUnhandledError, res[0].Result.Kind)
		require.Contains(t, res[0].Result.ErrorDetail, "injected panic")
		require.EqualValues(t, 0, env.outcomes.Len())
	})
}

func TestConcurrentCalls(t *testing.T) {
	const (
		numStates     = 50
		numGoroutines = 8
	)
	env := newTestEnv(t, numStates)
	var wg sync.WaitGroup
	var numSuccess atomic.Int32
	spentBy := make([][]TransactionRecord, numGoroutines)
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			reqs := make([]*Request, numStates)
			for i := range reqs {
				reqs[i] = &Request{
					TxID:   txid(fmt.Sprintf("g%d-tx%d", g, i)),
					Inputs: []ledger.StateRef{env.genesisState(uint32(i))},
				}
			}
			spentBy[g] = env.checker.ProcessRequests(reqs)
			for _, rec := range spentBy[g] {
				if rec.Result.IsSuccess() {
					numSuccess.Inc()
				}
			}
		}(g)
	}
	wg.Wait()
	require.EqualValues(t, numStates, numSuccess.Load())
	require.EqualValues(t, numStates*numGoroutines, env.outcomes.Len())
}

func TestFarTimeWindow(t *testing.T) {
	env := newTestEnv(t, 2)
	never := time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
	longAgo := time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)

	res := env.checker.ProcessRequests([]*Request{
		{
			TxID:       txid("tx1"),
			Inputs:     []ledger.StateRef{env.genesisState(0)},
			TimeWindow: TimeWindow{LowerBound: longAgo, UpperBound: never},
		},
		{
			TxID:       txid("tx2"),
			Inputs:     []ledger.StateRef{env.genesisState(1)},
			TimeWindow: TimeWindow{LowerBound: never},
		},
	})
	require.EqualValues(t, ResultSuccess, res[0].Result.Kind)
	require.EqualValues(t, ResultTimeWindowOutOfBounds, res[1].Result.Kind)
	require.True(t, never.Equal(res[1].Result.LowerBound))

	back, err := ResultFromBytes(res[1].Result.MustBytes())
	require.NoError(t, err)
	require.True(t, never.Equal(back.LowerBound))
}

func TestRequestValidate(t *testing.T) {
	refs := make([]ledger.StateRef, MaxStatesPerRequest)
	for i := range refs {
		refs[i] = ledger.NewStateRef(txid("genesis"), uint32(i))
	}
	req := &Request{TxID: txid("tx1"), Inputs: refs}
	require.NoError(t, req.Validate())

	req.References = []ledger.StateRef{ledger.NewStateRef(txid("other"), 0)}
	util.RequireErrorWith(t, req.Validate(), "too many states")

	// the largest possible rejection fits the serialization
	res := InputStateConflict(refs...)
	data, err := res.Bytes()
	require.NoError(t, err)
	back, err := ResultFromBytes(data)
	require.NoError(t, err)
	require.EqualValues(t, MaxStatesInResult, len(back.States))

	res = InputStateConflict(append(refs, req.References...)...)
	_, err = res.Bytes()
	require.True(t, errors.Is(err, ErrWrongResultData))
	require.Panics(t, func() { res.MustBytes() })
}
