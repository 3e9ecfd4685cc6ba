package global

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lunfardo314/notary/util"
	"github.com/lunfardo314/notary/util/set"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	Logging interface {
		Log() *zap.SugaredLogger
		Tracef(tag string, format string, args ...any)
	}

	Metrics interface {
		MetricsRegistry() *prometheus.Registry
	}

	NodeGlobal interface {
		Logging
		Metrics
		Ctx() context.Context
		MarkWorkProcessStarted(name string)
		MarkWorkProcessStopped(name string)
		SubLogger(name string) Logging
	}

	Global struct {
		*zap.SugaredLogger
		ctx            context.Context
		stopFun        context.CancelFunc
		stopOnce       *sync.Once
		enabledTrace   atomic.Bool
		traceTagsMutex *sync.RWMutex
		traceTags      set.Set[string]
		// work processes
		wgWorkProcesses *sync.WaitGroup
		mutex           *sync.Mutex
		workProcesses   set.Set[string]
		registry        *prometheus.Registry
	}
)

func _new(logger *zap.SugaredLogger) *Global {
	ctx, cancelFun := context.WithCancel(context.Background())
	return &Global{
		SugaredLogger:   logger,
		ctx:             ctx,
		stopFun:         cancelFun,
		stopOnce:        &sync.Once{},
		traceTagsMutex:  &sync.RWMutex{},
		traceTags:       set.New[string](),
		wgWorkProcesses: &sync.WaitGroup{},
		mutex:           &sync.Mutex{},
		workProcesses:   set.New[string](),
		registry:        prometheus.NewRegistry(),
	}
}

// NewDefault creates Global with info level logger to stdout. Mostly used in tests
func NewDefault(logLevel ...zapcore.Level) *Global {
	lvl := zapcore.InfoLevel
	if len(logLevel) > 0 {
		lvl = logLevel[0]
	}
	return _new(NewLogger("", lvl, []string{"stdout"}, ""))
}

// NewFromConfig creates Global with the logger configured from viper keys 'logger.*'
func NewFromConfig() *Global {
	lvl := zapcore.InfoLevel
	if viper.GetString("logger.level") == "debug" {
		lvl = zapcore.DebugLevel
	}
	var outputs []string
	if outputStr := viper.GetString("logger.output"); outputStr != "" {
		for _, o := range strings.Split(outputStr, ",") {
			outputs = append(outputs, strings.TrimSpace(o))
		}
	}
	if util.Find(outputs, "stdout") < 0 {
		outputs = append(outputs, "stdout")
	}
	return _new(NewLogger("", lvl, outputs, viper.GetString("logger.timelayout")))
}

func (l *Global) MarkWorkProcessStarted(name string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	util.Assertf(!l.workProcesses.Contains(name), "global: repeating work process %s", name)
	l.wgWorkProcesses.Add(1)
	l.workProcesses.Insert(name)
}

func (l *Global) MarkWorkProcessStopped(name string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	util.Assertf(l.workProcesses.Contains(name), "global: unknown component %s", name)
	l.wgWorkProcesses.Done()
	l.workProcesses.Remove(name)
}

func (l *Global) Stop() {
	l.stopOnce.Do(func() {
		l.Log().Info("global STOP invoked..")
		l.stopFun()
	})
}

func (l *Global) Ctx() context.Context {
	return l.ctx
}

// RepeatInBackground runs fun every period as a work process until fun returns false or global context is closed
func (l *Global) RepeatInBackground(name string, period time.Duration, fun func() bool) {
	l.MarkWorkProcessStarted(name)
	l.Log().Infof("[%s] STARTED", name)

	go func() {
		defer func() {
			l.MarkWorkProcessStopped(name)
			l.Log().Infof("[%s] STOPPED", name)
		}()
		for {
			select {
			case <-l.ctx.Done():
				return
			case <-time.After(period):
			}
			if !fun() {
				return
			}
		}
	}()
}

// MustWaitAllWorkProcessesStop waits for all registered work processes to stop, panics after timeout
func (l *Global) MustWaitAllWorkProcessesStop(timeout ...time.Duration) {
	deadline := time.Now().Add(time.Minute)
	if len(timeout) > 0 {
		deadline = time.Now().Add(timeout[0])
	}
	for {
		l.mutex.Lock()
		if len(l.workProcesses) == 0 {
			l.mutex.Unlock()
			l.wgWorkProcesses.Wait()
			l.Log().Info("all work processes stopped")
			return
		}
		if time.Now().After(deadline) {
			lst := l.workProcesses.Ordered(func(el1, el2 string) bool { return el1 < el2 })
			l.mutex.Unlock()
			util.Panicf("MustWaitAllWorkProcessesStop: exceeded timeout. Still running: %s", strings.Join(lst, ","))
		}
		l.mutex.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
}

func (l *Global) Log() *zap.SugaredLogger {
	return l.SugaredLogger
}

func (l *Global) MetricsRegistry() *prometheus.Registry {
	return l.registry
}

func (l *Global) StartTracingTags(tags ...string) {
	l.traceTagsMutex.Lock()
	for _, t := range tags {
		for _, t1 := range strings.Split(t, ",") {
			if t1 = strings.TrimSpace(t1); t1 != "" {
				l.traceTags.Insert(t1)
				l.enabledTrace.Store(true)
			}
		}
	}
	l.traceTagsMutex.Unlock()
	for _, tag := range tags {
		l.Tracef(tag, "trace tag enabled")
	}
}

func (l *Global) StopTracingTag(tag string) {
	l.traceTagsMutex.Lock()
	defer l.traceTagsMutex.Unlock()

	l.traceTags.Remove(tag)
	if len(l.traceTags) == 0 {
		l.enabledTrace.Store(false)
	}
}

func (l *Global) TraceLog(log *zap.SugaredLogger, tag string, format string, args ...any) {
	if !l.enabledTrace.Load() {
		return
	}

	l.traceTagsMutex.RLock()
	defer l.traceTagsMutex.RUnlock()

	for _, t := range strings.Split(tag, ",") {
		if l.traceTags.Contains(t) {
			log.Infof("TRACE(%s) %s", t, fmt.Sprintf(format, util.EvalLazyArgs(args...)...))
			return
		}
	}
}

func (l *Global) Tracef(tag string, format string, args ...any) {
	l.TraceLog(l.Log(), tag, format, args...)
}

type subLogger struct {
	*zap.SugaredLogger
	tracer *Global
}

func (s subLogger) Log() *zap.SugaredLogger {
	return s.SugaredLogger
}

func (s subLogger) Tracef(tag string, format string, args ...any) {
	s.tracer.TraceLog(s.SugaredLogger, tag, format, args...)
}

// MakeSubLogger named logger which shares trace tags with the parent Global
func MakeSubLogger(l *Global, name string) Logging {
	return subLogger{
		SugaredLogger: l.Log().Named(name),
		tracer:        l,
	}
}

func (l *Global) SubLogger(name string) Logging {
	return MakeSubLogger(l, name)
}
