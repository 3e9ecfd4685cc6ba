package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lunfardo314/notary/api"
	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/partition"
	"github.com/lunfardo314/notary/uniqueness"
)

const apiDefaultClientTimeout = 30 * time.Second

type APIClient struct {
	c      http.Client
	prefix string
}

func New(serverURL string, timeout ...time.Duration) *APIClient {
	to := apiDefaultClientTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		to = timeout[0]
	}
	return &APIClient{
		c:      http.Client{Timeout: to},
		prefix: serverURL,
	}
}

// ProcessBatch returns one result per request in the order of requests
func (c *APIClient) ProcessBatch(requests []*partition.Request) ([]partition.Result, error) {
	batch := api.ProcessBatch{Requests: make([]api.Request, len(requests))}
	for i, req := range requests {
		batch.Requests[i] = api.RequestFromPartition(req)
	}
	body, err := c.postBody(api.PathProcessBatch, &batch)
	if err != nil {
		return nil, err
	}
	var res api.BatchResults
	if err = json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	if res.Error.Error != "" {
		return nil, fmt.Errorf("ProcessBatch: from server: %s", res.Error.Error)
	}
	if len(res.Results) != len(requests) {
		return nil, fmt.Errorf("ProcessBatch: expected %d results, got %d", len(requests), len(res.Results))
	}
	ret := make([]partition.Result, len(res.Results))
	for i := range res.Results {
		r, err := res.Results[i].Parse()
		if err != nil {
			return nil, fmt.Errorf("ProcessBatch: wrong data from server: %w", err)
		}
		ret[i] = *r
	}
	return ret, nil
}

// GetOutcome returns nil, nil if the notary has no outcome of the transaction
func (c *APIClient) GetOutcome(notary string, txid ledger.TransactionID) (*uniqueness.TransactionRecord, error) {
	path := fmt.Sprintf(api.PathGetOutcome+"?notary=%s&txid=%s", url.QueryEscape(notary), txid.String())
	body, err := c.getBody(path)
	if err != nil {
		return nil, err
	}
	var res api.Outcome
	if err = json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	if res.Error.Error != "" {
		return nil, fmt.Errorf("GetOutcome: from server: %s", res.Error.Error)
	}
	if !res.Found || res.Record == nil {
		return nil, nil
	}
	r, err := res.Record.Parse()
	if err != nil {
		return nil, fmt.Errorf("GetOutcome: wrong data from server: %w", err)
	}
	return &r.TransactionRecord, nil
}

func (c *APIClient) GetStateStatus(notary string, ref ledger.StateRef) (uniqueness.StateStatus, error) {
	path := fmt.Sprintf(api.PathGetStateStatus+"?notary=%s&ref=%s", url.QueryEscape(notary), url.QueryEscape(ref.String()))
	body, err := c.getBody(path)
	if err != nil {
		return uniqueness.StateStatus{}, err
	}
	var res api.StateStatus
	if err = json.Unmarshal(body, &res); err != nil {
		return uniqueness.StateStatus{}, err
	}
	if res.Error.Error != "" {
		return uniqueness.StateStatus{}, fmt.Errorf("GetStateStatus: from server: %s", res.Error.Error)
	}
	return res.Parse()
}

func (c *APIClient) GetNodeInfo() (*global.NodeInfo, error) {
	body, err := c.getBody(api.PathGetNodeInfo)
	if err != nil {
		return nil, err
	}
	return global.NodeInfoFromBytes(body)
}

func (c *APIClient) IsReady() (bool, error) {
	body, err := c.getBody(api.PathReady)
	if err != nil {
		return false, err
	}
	var res api.Ready
	if err = json.Unmarshal(body, &res); err != nil {
		return false, err
	}
	return res.Ready, nil
}

// getBody server errors come back as api.Error in the body, so the status code is not checked here
func (c *APIClient) getBody(path string) ([]byte, error) {
	resp, err := c.c.Get(c.prefix + path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	return io.ReadAll(resp.Body)
}

func (c *APIClient) postBody(path string, obj any) ([]byte, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	resp, err := c.c.Post(c.prefix+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	return io.ReadAll(resp.Body)
}
