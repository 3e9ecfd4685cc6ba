package util

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// EvalLazyArgs replaces func() string and func() any arguments with their values.
// Used for trace messages which are formatted only when the trace tag is enabled
func EvalLazyArgs(args ...any) []any {
	ret := make([]any, 0, len(args))
	for _, arg := range args {
		if fun, ok := arg.(func() string); ok {
			ret = append(ret, fun())
			continue
		}
		if fun, ok := arg.(func() any); ok {
			ret = append(ret, fun())
			continue
		}
		ret = append(ret, arg)
	}
	return ret
}

// Assertf panics with an error if cond is false. Arguments may be lazy
func Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	Panicf(format, args...)
}

func Panicf(format string, args ...any) {
	panic(fmt.Errorf("assertion failed: "+format, EvalLazyArgs(args...)...))
}

// AssertNoError panics with err wrapped into the optional context
func AssertNoError(err error, context ...string) {
	if err == nil {
		return
	}
	panic(fmt.Errorf("%s%w", strings.Join(context, ""), err))
}

// RequireErrorWith checks that err is not nil and its message contains all fragments
func RequireErrorWith(t *testing.T, err error, fragments ...string) {
	t.Helper()
	require.Error(t, err)
	for _, f := range fragments {
		require.Contains(t, err.Error(), f)
	}
}
