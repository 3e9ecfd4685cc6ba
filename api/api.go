package api

const (
	PrefixAPIV1 = "/api/v1"

	PathProcessBatch   = PrefixAPIV1 + "/process_batch"
	PathGetOutcome     = PrefixAPIV1 + "/get_outcome"
	PathGetStateStatus = PrefixAPIV1 + "/get_state_status"
	PathGetNodeInfo    = PrefixAPIV1 + "/node_info"
	PathReady          = PrefixAPIV1 + "/ready"
)

type (
	Error struct {
		// empty string when no error
		Error string `json:"error,omitempty" yaml:"error,omitempty"`
	}

	// TimeWindow bounds are RFC3339Nano timestamps, empty string means no bound
	TimeWindow struct {
		LowerBound string `json:"lower_bound,omitempty" yaml:"lower_bound,omitempty"`
		UpperBound string `json:"upper_bound,omitempty" yaml:"upper_bound,omitempty"`
	}

	// Request is an element of the 'process_batch' request body
	Request struct {
		Notary string `json:"notary" yaml:"notary"`
		// hex-encoded transaction ID
		TxID string `json:"txid" yaml:"txid"`
		// state references in the form '<hex-encoded transaction ID>:<output index>'
		Inputs     []string    `json:"inputs,omitempty" yaml:"inputs,omitempty"`
		References []string    `json:"references,omitempty" yaml:"references,omitempty"`
		NumOutputs uint32      `json:"num_outputs" yaml:"num_outputs"`
		TimeWindow *TimeWindow `json:"time_window,omitempty" yaml:"time_window,omitempty"`
	}

	// ProcessBatch is the body of the 'process_batch' POST request
	ProcessBatch struct {
		Requests []Request `json:"requests" yaml:"requests"`
	}

	// Result timestamps are RFC3339Nano
	Result struct {
		Kind            string   `json:"kind" yaml:"kind"`
		CommitTimestamp string   `json:"commit_timestamp,omitempty" yaml:"commit_timestamp,omitempty"`
		States          []string `json:"states,omitempty" yaml:"states,omitempty"`
		LowerBound      string   `json:"lower_bound,omitempty" yaml:"lower_bound,omitempty"`
		UpperBound      string   `json:"upper_bound,omitempty" yaml:"upper_bound,omitempty"`
		EvaluatedAt     string   `json:"evaluated_at,omitempty" yaml:"evaluated_at,omitempty"`
		ErrorDetail     string   `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`
	}

	TransactionRecord struct {
		Notary string `json:"notary" yaml:"notary"`
		TxID   string `json:"txid" yaml:"txid"`
		Result Result `json:"result" yaml:"result"`
	}

	// BatchResults is returned by 'process_batch', one record per request in the order of requests
	BatchResults struct {
		Error   `yaml:",inline"`
		Results []TransactionRecord `json:"results,omitempty" yaml:"results,omitempty"`
	}

	// Outcome is returned by 'get_outcome'
	Outcome struct {
		Error  `yaml:",inline"`
		Found  bool               `json:"found" yaml:"found"`
		Record *TransactionRecord `json:"record,omitempty" yaml:"record,omitempty"`
	}

	// StateStatus is returned by 'get_state_status'
	StateStatus struct {
		Error           `yaml:",inline"`
		Notary          string `json:"notary" yaml:"notary"`
		Ref             string `json:"ref" yaml:"ref"`
		Status          string `json:"status" yaml:"status"`
		ConsumingTx     string `json:"consuming_tx,omitempty" yaml:"consuming_tx,omitempty"`
		CommitTimestamp string `json:"commit_timestamp,omitempty" yaml:"commit_timestamp,omitempty"`
	}

	// Ready is returned by 'ready'
	Ready struct {
		Error `yaml:",inline"`
		Ready bool `json:"ready" yaml:"ready"`
	}
)
