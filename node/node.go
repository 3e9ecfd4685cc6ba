package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/lunfardo314/notary/api/server"
	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/metrics"
	"github.com/lunfardo314/notary/partition"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/lunfardo314/notary/util"
	"github.com/lunfardo314/notary/workflow"
	"github.com/spf13/viper"
)

type NotaryNode struct {
	*global.Global
	dbType    string
	db        *badger.DB
	notaries  []*workflow.Notary
	workflow  *workflow.Workflow
	apiServer *server.Server
	started   time.Time
	stopOnce  sync.Once
	stopped   chan struct{}
}

const stopTimeout = 10 * time.Second

// New creates node with the logger and trace tags taken from the configuration
func New() *NotaryNode {
	ret := &NotaryNode{
		Global:  global.NewFromConfig(),
		stopped: make(chan struct{}),
	}
	ret.StartTracingTags(viper.GetStringSlice("trace_tags")...)
	return ret
}

// Start starts all components of the node and opens the readiness gate.
// On error, already started components are stopped
func (p *NotaryNode) Start() error {
	p.Log().Info(global.BannerString())
	p.Log().Infof("---------------- starting up notary node '%s' --------------", viper.GetString("name"))
	p.started = time.Now()

	err := util.CatchPanicOrError(func() error {
		p.startPProfIfEnabled()
		if err := p.initStores(); err != nil {
			return err
		}
		if err := p.startWorkflow(); err != nil {
			return err
		}
		if err := p.startAPIServer(); err != nil {
			return err
		}
		p.startMetrics()
		p.startMemoryLogging()
		return nil
	})
	if err != nil {
		p.Log().Errorf("error on startup: %v", err)
		p.Stop()
		return err
	}
	p.workflow.SetReady(true)
	p.Log().Infof("notary node has been started successfully. Notaries: %v", p.workflow.Notaries())
	p.Log().Debug("running in debug mode")
	return nil
}

// Stop closes readiness gate, stops API server, processes all accepted submissions,
// stops remaining work processes and closes the database
func (p *NotaryNode) Stop() {
	p.stopOnce.Do(func() {
		p.Log().Info("stopping the notary node..")
		if p.workflow != nil {
			p.workflow.SetReady(false)
		}
		p.stopAPIServer()
		if p.workflow != nil {
			p.workflow.Stop()
		}
		p.Global.Stop()
		p.MustWaitAllWorkProcessesStop(stopTimeout)
		p.closeDB()
		p.Log().Infof("notary node stopped. Up time: %v", p.UpTime())
		close(p.stopped)
	})
}

// WaitStop blocks until Stop completes
func (p *NotaryNode) WaitStop() {
	<-p.stopped
}

func (p *NotaryNode) UpTime() time.Duration {
	return time.Since(p.started)
}

func (p *NotaryNode) startWorkflow() error {
	policy, err := uniqueness.UnknownStatePolicyFromString(viper.GetString("ledger.unknown_states"))
	if err != nil {
		return err
	}
	p.workflow = workflow.New(p, p.notaries,
		workflow.WithGlobalConfigOptions,
		workflow.WithUnknownStatePolicy(policy),
	)
	p.workflow.Start()
	return nil
}

func (p *NotaryNode) startMetrics() {
	if !viper.GetBool("metrics.enable") {
		p.Log().Infof("Prometheus metrics disabled")
		return
	}
	metrics.Start(p)
}

func (p *NotaryNode) GetNodeInfo() *global.NodeInfo {
	ret := &global.NodeInfo{
		Name:    viper.GetString("name"),
		Version: global.Version,
		Commit:  global.CommitHash,
		DBType:  p.dbType,
	}
	if p.workflow != nil {
		ret.Notaries = p.workflow.Notaries()
		ret.Ready = p.workflow.IsReady()
	}
	return ret
}

func (p *NotaryNode) IsReady() bool {
	return p.workflow != nil && p.workflow.IsReady()
}

func (p *NotaryNode) Submit(ctx context.Context, requests []*partition.Request) ([]partition.Result, error) {
	if p.workflow == nil {
		return nil, workflow.ErrNotReady
	}
	return p.workflow.Submit(ctx, requests)
}

func (p *NotaryNode) GetOutcome(notary string, txid ledger.TransactionID) (*uniqueness.TransactionRecord, error) {
	if p.workflow == nil {
		return nil, fmt.Errorf("%w '%s'", workflow.ErrUnknownNotary, notary)
	}
	return p.workflow.GetOutcome(notary, txid)
}

func (p *NotaryNode) GetStateStatus(notary string, ref ledger.StateRef) (uniqueness.StateStatus, error) {
	if p.workflow == nil {
		return uniqueness.StateStatus{}, fmt.Errorf("%w '%s'", workflow.ErrUnknownNotary, notary)
	}
	return p.workflow.GetStateStatus(notary, ref)
}
