// pkg/logger/logger.go
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.SugaredLogger
}

// New builds the JSON production logger. An unknown level falls back to info.
func New(level string) *Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		logger = zap.NewExample()
	}
	return &Logger{logger.Sugar()}
}

// NewDevelopment builds a colored console logger for local runs.
func NewDevelopment(level string) *Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		parseLevel(level),
	)
	return &Logger{zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Sugar()}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// With returns a child logger that adds the given key/value pairs to every entry.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{l.SugaredLogger.With(args...)}
}

func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// MigrationLogger adapts Logger to the golang-migrate logging interface.
type MigrationLogger struct {
	*Logger
}

func (l MigrationLogger) Printf(format string, v ...any) {
	l.Infof(format, v...)
}

func (l MigrationLogger) Verbose() bool {
	return l.Desugar().Core().Enabled(zapcore.DebugLevel)
}
