package glb

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"
)

var out io.Writer = os.Stdout

// SetOutput redirects console output of the commands
func SetOutput(w io.Writer) {
	out = w
}

func Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(out, format, args...)
}

func Infof(format string, args ...any) {
	_, _ = fmt.Fprintf(out, format+"\n", args...)
}

func Verbosef(format string, args ...any) {
	if viper.GetBool("verbose") {
		Infof(format, args...)
	}
}

func Fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func AssertNoError(err error) {
	if err != nil {
		Fatalf("%v", err)
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		Fatalf(format, args...)
	}
}
