package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{level: "debug", expected: zapcore.DebugLevel},
		{level: "warn", expected: zapcore.WarnLevel},
		{level: "ERROR", expected: zapcore.ErrorLevel},
		{level: "", expected: zapcore.InfoLevel},
		{level: "loud", expected: zapcore.InfoLevel},
	}

	for _, test := range tests {
		t.Run(test.level, func(t *testing.T) {
			assert.Equal(t, test.expected, parseLevel(test.level))
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	l := New("warn")
	assert.False(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Desugar().Core().Enabled(zapcore.WarnLevel))

	dev := NewDevelopment("debug")
	assert.True(t, dev.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestWith_AddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{zap.New(core).Sugar()}

	l.With("component", "http").Infow("Request handled", "status", 200)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "http", fields["component"])
		assert.EqualValues(t, 200, fields["status"])
	}
}

func TestMigrationLogger_Verbose(t *testing.T) {
	assert.False(t, MigrationLogger{New("info")}.Verbose())
	assert.True(t, MigrationLogger{NewDevelopment("debug")}.Verbose())
}
