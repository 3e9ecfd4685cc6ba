package global

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestLogOutputPaths(t *testing.T) {
	require.EqualValues(t,
		[]string{"stdout", "stderr", "lumberjack:notary.log", "file:///tmp/x.log"},
		logOutputPaths([]string{"stdout", "stderr", "notary.log", "file:///tmp/x.log"}),
	)
}

func TestWorkProcesses(t *testing.T) {
	glb := NewDefault()
	glb.MarkWorkProcessStarted("one")
	glb.MarkWorkProcessStarted("two")
	require.Panics(t, func() {
		glb.MarkWorkProcessStarted("one")
	})
	go func() {
		<-glb.Ctx().Done()
		glb.MarkWorkProcessStopped("one")
		glb.MarkWorkProcessStopped("two")
	}()
	glb.Stop()
	glb.MustWaitAllWorkProcessesStop(time.Second)
}

func TestRepeatInBackground(t *testing.T) {
	t.Run("until false", func(t *testing.T) {
		glb := NewDefault()
		var count atomic.Int32
		glb.RepeatInBackground("counter", time.Millisecond, func() bool {
			return count.Inc() < 3
		})
		glb.MustWaitAllWorkProcessesStop(time.Second)
		require.EqualValues(t, 3, count.Load())
	})
	t.Run("until stop", func(t *testing.T) {
		glb := NewDefault()
		glb.RepeatInBackground("forever", time.Millisecond, func() bool {
			return true
		})
		time.Sleep(10 * time.Millisecond)
		glb.Stop()
		glb.MustWaitAllWorkProcessesStop(time.Second)
	})
}

func TestTraceTags(t *testing.T) {
	glb := NewDefault()
	glb.StartTracingTags("checker, api")
	require.True(t, glb.enabledTrace.Load())
	require.True(t, glb.traceTags.Contains("checker"))
	require.True(t, glb.traceTags.Contains("api"))

	called := false
	glb.Tracef("checker", "lazy arg: %s", func() string {
		called = true
		return "ok"
	})
	require.True(t, called)

	glb.StopTracingTag("checker")
	glb.StopTracingTag("api")
	require.False(t, glb.enabledTrace.Load())
	called = false
	glb.Tracef("checker", "lazy arg: %s", func() string {
		called = true
		return "ok"
	})
	require.False(t, called)

	sub := MakeSubLogger(glb, "[sub]")
	sub.Tracef("checker", "not traced")
}

func TestNodeInfo(t *testing.T) {
	ni := &NodeInfo{
		Name:     "n1",
		Version:  Version,
		Notaries: []string{"alpha", "beta"},
		DBType:   "memory",
		Ready:    true,
	}
	back, err := NodeInfoFromBytes(ni.Bytes())
	require.NoError(t, err)
	require.EqualValues(t, ni, back)
	t.Logf("\n%s", ni.Lines().String())
}
