package erl

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ILogger interface {
	Println(v ...any)
	Printf(format string, v ...any)
}

// ZapLogger is the default [ILogger], writing through a zap SugaredLogger. Debug output
// is governed by [SetDebugLog].
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ ILogger = &ZapLogger{}

var logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var Logger ILogger = NewZapLogger(os.Stdout)

// NewZapLogger creates a logger writing console encoded entries to [w]. It also becomes
// zap's global logger, so packages logging through zap.S() share its output.
func NewZapLogger(w io.Writer) *ZapLogger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(config), zapcore.AddSync(w), logLevel)
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named("erl-recv")
	zap.ReplaceGlobals(zapLogger)

	return &ZapLogger{sugar: zapLogger.Sugar()}
}

func (z *ZapLogger) Println(v ...any) {
	z.sugar.Infoln(v...)
}

func (z *ZapLogger) Printf(format string, v ...any) {
	z.sugar.Infof(format, v...)
}

// Sugar exposes the underlying zap logger for structured logging.
func (z *ZapLogger) Sugar() *zap.SugaredLogger {
	return z.sugar
}

// SetLogger replaces the package [Logger].
func SetLogger(l ILogger) {
	Logger = l
}

func DebugLogEnabled() bool {
	return logLevel.Enabled(zapcore.DebugLevel)
}

func SetDebugLog(v bool) {
	if v {
		logLevel.SetLevel(zapcore.DebugLevel)
	} else {
		logLevel.SetLevel(zapcore.InfoLevel)
	}
}

func DebugPrintln(v ...any) {
	if DebugLogEnabled() {
		Logger.Println(v...)
	}
}

func DebugPrintf(format string, v ...any) {
	if DebugLogEnabled() {
		Logger.Printf(format, v...)
	}
}
