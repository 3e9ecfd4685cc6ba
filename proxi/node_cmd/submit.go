package node_cmd

import (
	"fmt"
	"time"

	"github.com/lunfardo314/notary/api"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/partition"
	"github.com/lunfardo314/notary/proxi/glb"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/spf13/cobra"
)

type submitParams struct {
	txid       string
	txData     string
	inputs     []string
	references []string
	numOutputs uint32
	notBefore  string
	notAfter   string
}

var submitFlags submitParams

func initSubmitCmd() *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: `submits a transaction to the notary and displays the result`,
		Long: `submits a transaction to the notary and displays the result.
A transaction without inputs issues new states.
Time window bounds are RFC3339 timestamps or durations relative to now, for example '-1m' or '30s'`,
		Args: cobra.NoArgs,
		Run:  runSubmitCmd,
	}
	submitCmd.Flags().StringVar(&submitFlags.txid, "txid", "", "hex-encoded transaction ID")
	submitCmd.Flags().StringVar(&submitFlags.txData, "tx_data", "", "transaction ID is hash of the data. Random ID if neither txid nor tx_data is specified")
	submitCmd.Flags().StringSliceVarP(&submitFlags.inputs, "inputs", "i", nil, "input states '<hex-encoded transaction ID>:<index>'")
	submitCmd.Flags().StringSliceVarP(&submitFlags.references, "refs", "r", nil, "reference states '<hex-encoded transaction ID>:<index>'")
	submitCmd.Flags().Uint32VarP(&submitFlags.numOutputs, "outputs", "o", 1, "number of output states")
	submitCmd.Flags().StringVar(&submitFlags.notBefore, "not_before", "", "lower bound of the time window")
	submitCmd.Flags().StringVar(&submitFlags.notAfter, "not_after", "", "upper bound of the time window")

	submitCmd.InitDefaultHelpCmd()
	return submitCmd
}

func runSubmitCmd(_ *cobra.Command, _ []string) {
	req, err := submitFlags.request(glb.Notary(), time.Now())
	glb.AssertNoError(err)

	glb.Verbosef("submitting transaction %s with %d inputs, %d references and %d outputs",
		req.TxID.String(), len(req.Inputs), len(req.References), req.NumOutputs)

	res, err := glb.GetClient().ProcessBatch([]*partition.Request{req})
	glb.AssertNoError(err)
	glb.PrintYAML(api.RecordsFromResults(res))
}

func (p *submitParams) request(notary string, now time.Time) (*partition.Request, error) {
	ret := &partition.Request{
		Notary:  notary,
		Request: &uniqueness.Request{NumOutputs: p.numOutputs},
	}
	var err error
	switch {
	case p.txid != "" && p.txData != "":
		return nil, fmt.Errorf("only one of txid and tx_data can be specified")
	case p.txid != "":
		if ret.TxID, err = ledger.TransactionIDFromHexString(p.txid); err != nil {
			return nil, err
		}
	case p.txData != "":
		ret.TxID = ledger.HashTransactionBytes([]byte(p.txData))
	default:
		ret.TxID = ledger.RandomTransactionID()
	}
	if ret.Inputs, err = ledger.ParseStateRefs(p.inputs); err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	if ret.References, err = ledger.ParseStateRefs(p.references); err != nil {
		return nil, fmt.Errorf("references: %w", err)
	}
	if ret.TimeWindow.LowerBound, err = parseBound(p.notBefore, now); err != nil {
		return nil, fmt.Errorf("not_before: %w", err)
	}
	if ret.TimeWindow.UpperBound, err = parseBound(p.notAfter, now); err != nil {
		return nil, fmt.Errorf("not_after: %w", err)
	}
	return ret, nil
}

// parseBound empty string means no bound
func parseBound(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
