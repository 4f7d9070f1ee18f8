package commands

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

// SetLogger replaces the default no-op logger with a production logger, at debug
// level if debug is set.
func SetLogger(debug bool) error {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true

	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := config.Build()
	if err != nil {
		return err
	}

	logger = l.Named(APP)

	return nil
}

func FlushLogs() {
	logger.Sync()
}

func debugf(format string, args ...any) {
	logger.Sugar().Debugf(format, args...)
}

func infof(format string, args ...any) {
	logger.Sugar().Infof(format, args...)
}

func warnf(format string, args ...any) {
	logger.Sugar().Warnf(format, args...)
}

func errorf(format string, args ...any) {
	logger.Sugar().Errorf(format, args...)
}
