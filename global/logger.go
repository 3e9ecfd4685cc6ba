package global

import (
	"net/url"
	"strings"
	"sync"

	"github.com/lunfardo314/notary/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	TimeLayoutDefault = "01-02 15:04:05.000"

	lumberjackScheme  = "lumberjack"
	logFileMaxSizeMB  = 100
	logFileMaxBackups = 5
	logFileMaxAgeDays = 30
)

// lumberjackSink adds Sync to the rotating file writer
type lumberjackSink struct {
	*lumberjack.Logger
}

func (lumberjackSink) Sync() error {
	return nil
}

var registerSinkOnce sync.Once

func registerLumberjackSink() {
	registerSinkOnce.Do(func() {
		err := zap.RegisterSink(lumberjackScheme, func(u *url.URL) (zap.Sink, error) {
			fname := u.Opaque
			if fname == "" {
				fname = u.Path
			}
			return lumberjackSink{&lumberjack.Logger{
				Filename:   fname,
				MaxSize:    logFileMaxSizeMB,
				MaxBackups: logFileMaxBackups,
				MaxAge:     logFileMaxAgeDays,
			}}, nil
		})
		util.AssertNoError(err)
	})
}

// logOutputPaths 'stdout' and 'stderr' go to console, everything else is a rotated log file
func logOutputPaths(outputs []string) []string {
	ret := make([]string, 0, len(outputs))
	for _, o := range outputs {
		switch {
		case o == "stdout", o == "stderr", strings.Contains(o, ":"):
			ret = append(ret, o)
		default:
			ret = append(ret, lumberjackScheme+":"+o)
		}
	}
	return ret
}

func NewLogger(name string, level zapcore.Level, outputs []string, timeLayout string) *zap.SugaredLogger {
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	registerLumberjackSink()
	paths := logOutputPaths(outputs)

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      paths,
		ErrorOutputPaths: paths,
		DisableCaller:    true,
	}

	if timeLayout == "" {
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(TimeLayoutDefault)
	} else {
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	}

	log, err := cfg.Build()
	util.AssertNoError(err)
	log = log.WithOptions(zap.IncreaseLevel(level), zap.AddStacktrace(zapcore.FatalLevel))

	return log.Sugar().Named(name)
}
