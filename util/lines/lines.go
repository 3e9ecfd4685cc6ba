package lines

import (
	"fmt"
	"strings"
)

// Lines collects multi-line text for logs and console output. Each line starts with the prefix
type Lines struct {
	prefix string
	l      []string
}

func New(prefix ...string) *Lines {
	return &Lines{prefix: strings.Join(prefix, "")}
}

func (l *Lines) Add(format string, args ...any) *Lines {
	l.l = append(l.l, l.prefix+fmt.Sprintf(format, args...))
	return l
}

func (l *Lines) Len() int {
	return len(l.l)
}

func (l *Lines) Join(sep string) string {
	return strings.Join(l.l, sep)
}

func (l *Lines) String() string {
	return l.Join("\n")
}
