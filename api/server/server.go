package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lunfardo314/notary/api"
	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/partition"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/workflow"
)

type (
	environment interface {
		global.Logging
		global.Metrics
		GetNodeInfo() *global.NodeInfo
		IsReady() bool
		Submit(ctx context.Context, requests []*partition.Request) ([]partition.Result, error)
		GetOutcome(notary string, txid ledger.TransactionID) (*uniqueness.TransactionRecord, error)
		GetStateStatus(notary string, ref ledger.StateRef) (uniqueness.StateStatus, error)
	}

	Server struct {
		*echo.Echo
		environment
		metrics
	}
)

const TraceTag = "apiServer"

func New(env environment) *Server {
	srv := &Server{
		Echo:        echo.New(),
		environment: env,
	}
	srv.HideBanner = true
	srv.HidePort = true
	srv.registerMetrics()
	srv.registerHandlers()
	return srv
}

func (srv *Server) registerHandlers() {
	// POST request, body is api.ProcessBatch. Returns api.BatchResults
	srv.addHandler(http.MethodPost, api.PathProcessBatch, srv.processBatch)
	// GET request format: '/get_outcome?notary=<notary>&txid=<hex-encoded transaction ID>'
	srv.addHandler(http.MethodGet, api.PathGetOutcome, srv.getOutcome)
	// GET request format: '/get_state_status?notary=<notary>&ref=<hex-encoded transaction ID>:<index>'
	srv.addHandler(http.MethodGet, api.PathGetStateStatus, srv.getStateStatus)
	// GET node info
	srv.addHandler(http.MethodGet, api.PathGetNodeInfo, srv.getNodeInfo)
	// GET readiness. Status 503 when not ready
	srv.addHandler(http.MethodGet, api.PathReady, srv.getReady)
}

func (srv *Server) addHandler(method, path string, handler echo.HandlerFunc) {
	srv.Add(method, path, func(c echo.Context) error {
		srv.metrics.totalRequests.Inc()
		return handler(c)
	})
}

// Start binds the port and serves in the background. Stop with Shutdown
func (srv *Server) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("API server: %w", err)
	}
	srv.Listener = ln
	srv.Log().Infof("API server is listening on %s", ln.Addr().String())
	go func() {
		if err := srv.Echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.Log().Errorf("API server: %v", err)
		}
	}()
	return nil
}

func (srv *Server) processBatch(c echo.Context) error {
	var batch api.ProcessBatch
	if err := c.Bind(&batch); err != nil {
		return writeErr(c, http.StatusBadRequest, fmt.Sprintf("wrong request body: %v", err))
	}
	requests, err := batch.Parse()
	if err != nil {
		return writeErr(c, http.StatusBadRequest, err.Error())
	}
	srv.Tracef(TraceTag, "process_batch: %d requests", len(requests))

	results, err := srv.Submit(c.Request().Context(), requests)
	if err != nil {
		return writeErr(c, statusCode(err), err.Error())
	}
	return c.JSON(http.StatusOK, &api.BatchResults{Results: api.RecordsFromResults(results)})
}

func (srv *Server) getOutcome(c echo.Context) error {
	notary := c.QueryParam("notary")
	txid, err := ledger.TransactionIDFromHexString(c.QueryParam("txid"))
	if err != nil {
		return writeErr(c, http.StatusBadRequest, fmt.Sprintf("wrong parameter 'txid': %v", err))
	}
	srv.Tracef(TraceTag, "get_outcome: %s %s", notary, txid.StringShort)

	rec, err := srv.GetOutcome(notary, txid)
	if err != nil {
		return writeErr(c, statusCode(err), err.Error())
	}
	resp := &api.Outcome{}
	if rec != nil {
		wire := api.RecordFromCore(notary, rec)
		resp.Found = true
		resp.Record = &wire
	}
	return c.JSON(http.StatusOK, resp)
}

func (srv *Server) getStateStatus(c echo.Context) error {
	notary := c.QueryParam("notary")
	ref, err := ledger.ParseStateRef(c.QueryParam("ref"))
	if err != nil {
		return writeErr(c, http.StatusBadRequest, fmt.Sprintf("wrong parameter 'ref': %v", err))
	}
	srv.Tracef(TraceTag, "get_state_status: %s %s", notary, ref.StringShort)

	st, err := srv.GetStateStatus(notary, ref)
	if err != nil {
		return writeErr(c, statusCode(err), err.Error())
	}
	resp := api.StateStatusFromCore(notary, ref, st)
	return c.JSON(http.StatusOK, &resp)
}

func (srv *Server) getNodeInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, srv.GetNodeInfo())
}

func (srv *Server) getReady(c echo.Context) error {
	if !srv.IsReady() {
		return c.JSON(http.StatusServiceUnavailable, &api.Ready{})
	}
	return c.JSON(http.StatusOK, &api.Ready{Ready: true})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, workflow.ErrUnknownNotary), errors.Is(err, workflow.ErrWrongRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func writeErr(c echo.Context, status int, errStr string) error {
	return c.JSON(status, &api.Error{Error: errStr})
}
