package util

import (
	"fmt"
	"runtime/debug"
)

// CatchPanicOrError runs f and converts panic into error. The original error of the panic is wrapped.
// With includeStack, the stack trace of the panic is appended to the error message
func CatchPanicOrError(f func() error, includeStack ...bool) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, isErr := r.(error)
		if !isErr {
			e = fmt.Errorf("panic: %v", r)
		}
		if len(includeStack) > 0 && includeStack[0] {
			err = fmt.Errorf("%w\n%s", e, string(debug.Stack()))
			return
		}
		err = e
	}()
	return f()
}
