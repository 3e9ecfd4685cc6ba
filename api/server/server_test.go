package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lunfardo314/notary/api"
	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/partition"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var genesis = ledger.HashTransactionBytes([]byte("genesis"))

type testEnv struct {
	*workflow.Workflow
}

func (e testEnv) GetNodeInfo() *global.NodeInfo {
	return &global.NodeInfo{
		Name:     "test",
		Version:  global.Version,
		Notaries: e.Notaries(),
		DBType:   "memory",
		Ready:    e.IsReady(),
	}
}

func newTestServer(t *testing.T) (*Server, *workflow.Workflow) {
	glb := global.NewDefault()
	stateLedger := uniqueness.NewInMemoryStateLedger()
	require.NoError(t, stateLedger.ProduceUnspent(genesis, 2))
	w := workflow.New(glb, []*workflow.Notary{{
		Name:     "n1",
		Ledger:   stateLedger,
		Outcomes: uniqueness.NewInMemoryOutcomeStore(),
	}})
	w.Start()
	w.SetReady(true)
	t.Cleanup(func() {
		glb.Stop()
		glb.MustWaitAllWorkProcessesStop(5 * time.Second)
	})
	return New(testEnv{w}), w
}

func doRequest(t *testing.T, srv *Server, method, path string, body any, ret any) int {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if ret != nil {
		require.NoError(t, json.Unmarshal(data, ret))
	}
	return resp.StatusCode
}

func spendRequest(name string, idx uint32) api.Request {
	return api.RequestFromPartition(&partition.Request{
		Notary: "n1",
		Request: &uniqueness.Request{
			TxID:   ledger.HashTransactionBytes([]byte(name)),
			Inputs: []ledger.StateRef{ledger.NewStateRef(genesis, idx)},
		},
	})
}

func TestProcessBatch(t *testing.T) {
	srv, w := newTestServer(t)

	var resp api.BatchResults
	status := doRequest(t, srv, http.MethodPost, api.PathProcessBatch, &api.ProcessBatch{
		Requests: []api.Request{spendRequest("tx1", 0), spendRequest("tx2", 0)},
	}, &resp)
	require.EqualValues(t, http.StatusOK, status)
	require.EqualValues(t, "", resp.Error.Error)
	require.EqualValues(t, 2, len(resp.Results))
	assert.EqualValues(t, "Success", resp.Results[0].Result.Kind)
	assert.EqualValues(t, "InputStateConflict", resp.Results[1].Result.Kind)
	assert.EqualValues(t, []string{ledger.NewStateRef(genesis, 0).String()}, resp.Results[1].Result.States)

	t.Run("malformed", func(t *testing.T) {
		var resp api.BatchResults
		status := doRequest(t, srv, http.MethodPost, api.PathProcessBatch, &api.ProcessBatch{
			Requests: []api.Request{spendRequest("tx3", 1), {Notary: "n1", TxID: "xyz"}},
		}, &resp)
		require.EqualValues(t, http.StatusBadRequest, status)
		require.Contains(t, resp.Error.Error, "wrong txid")
		require.EqualValues(t, 0, len(resp.Results))
	})
	t.Run("unknown notary", func(t *testing.T) {
		req := spendRequest("tx3", 1)
		req.Notary = "n2"
		var resp api.BatchResults
		status := doRequest(t, srv, http.MethodPost, api.PathProcessBatch, &api.ProcessBatch{Requests: []api.Request{req}}, &resp)
		require.EqualValues(t, http.StatusBadRequest, status)
		require.Contains(t, resp.Error.Error, "unknown notary")
	})
	t.Run("not ready", func(t *testing.T) {
		w.SetReady(false)
		defer w.SetReady(true)

		var resp api.BatchResults
		status := doRequest(t, srv, http.MethodPost, api.PathProcessBatch, &api.ProcessBatch{Requests: []api.Request{spendRequest("tx3", 1)}}, &resp)
		require.EqualValues(t, http.StatusServiceUnavailable, status)
		require.Contains(t, resp.Error.Error, "not ready")

		var ready api.Ready
		status = doRequest(t, srv, http.MethodGet, api.PathReady, nil, &ready)
		require.EqualValues(t, http.StatusServiceUnavailable, status)
		require.False(t, ready.Ready)
	})
	t.Run("wrong body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, api.PathProcessBatch, bytes.NewReader([]byte("{{{")))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		require.EqualValues(t, http.StatusBadRequest, rec.Code)
	})
}

func TestQueries(t *testing.T) {
	srv, _ := newTestServer(t)
	var batch api.BatchResults
	status := doRequest(t, srv, http.MethodPost, api.PathProcessBatch, &api.ProcessBatch{
		Requests: []api.Request{spendRequest("tx1", 0)},
	}, &batch)
	require.EqualValues(t, http.StatusOK, status)
	txid := ledger.HashTransactionBytes([]byte("tx1"))

	t.Run("outcome", func(t *testing.T) {
		var resp api.Outcome
		status := doRequest(t, srv, http.MethodGet, api.PathGetOutcome+"?notary=n1&txid="+txid.String(), nil, &resp)
		require.EqualValues(t, http.StatusOK, status)
		require.True(t, resp.Found)
		require.EqualValues(t, batch.Results[0], *resp.Record)

		resp = api.Outcome{}
		status = doRequest(t, srv, http.MethodGet, api.PathGetOutcome+"?notary=n1&txid="+ledger.RandomTransactionID().String(), nil, &resp)
		require.EqualValues(t, http.StatusOK, status)
		require.False(t, resp.Found)

		status = doRequest(t, srv, http.MethodGet, api.PathGetOutcome+"?notary=n1&txid=123", nil, &resp)
		require.EqualValues(t, http.StatusBadRequest, status)

		resp = api.Outcome{}
		status = doRequest(t, srv, http.MethodGet, api.PathGetOutcome+"?notary=xx&txid="+txid.String(), nil, &resp)
		require.EqualValues(t, http.StatusBadRequest, status)
		require.Contains(t, resp.Error.Error, "unknown notary")
	})
	t.Run("state status", func(t *testing.T) {
		var resp api.StateStatus
		ref := ledger.NewStateRef(genesis, 0)
		status := doRequest(t, srv, http.MethodGet, api.PathGetStateStatus+"?notary=n1&ref="+ref.String(), nil, &resp)
		require.EqualValues(t, http.StatusOK, status)
		require.EqualValues(t, "consumed", resp.Status)
		require.EqualValues(t, txid.String(), resp.ConsumingTx)
		require.EqualValues(t, batch.Results[0].Result.CommitTimestamp, resp.CommitTimestamp)

		resp = api.StateStatus{}
		status = doRequest(t, srv, http.MethodGet, api.PathGetStateStatus+"?notary=n1&ref="+ledger.NewStateRef(genesis, 1).StringHex(), nil, &resp)
		require.EqualValues(t, http.StatusOK, status)
		require.EqualValues(t, "unspent", resp.Status)

		status = doRequest(t, srv, http.MethodGet, api.PathGetStateStatus+"?notary=n1&ref=nothing", nil, &resp)
		require.EqualValues(t, http.StatusBadRequest, status)
	})
	t.Run("node info", func(t *testing.T) {
		var resp global.NodeInfo
		status := doRequest(t, srv, http.MethodGet, api.PathGetNodeInfo, nil, &resp)
		require.EqualValues(t, http.StatusOK, status)
		require.EqualValues(t, []string{"n1"}, resp.Notaries)
		require.True(t, resp.Ready)
	})
	t.Run("ready", func(t *testing.T) {
		var resp api.Ready
		status := doRequest(t, srv, http.MethodGet, api.PathReady, nil, &resp)
		require.EqualValues(t, http.StatusOK, status)
		require.True(t, resp.Ready)
	})
}

func TestStart(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NoError(t, srv.Start(0))
	t.Cleanup(func() { _ = srv.Close() })

	port := srv.ListenerAddr().(*net.TCPAddr).Port
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d%s", port, api.PathReady))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.EqualValues(t, http.StatusOK, resp.StatusCode)

	// port is busy
	other, _ := newTestServer(t)
	err = other.Start(port)
	require.Error(t, err)
	require.Contains(t, err.Error(), "API server")
}
