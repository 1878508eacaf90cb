package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level logrus.Level) (Logger, *bytes.Buffer) {
	logrusLogger := logrus.New()
	var buf bytes.Buffer
	logrusLogger.SetOutput(&buf)
	logrusLogger.SetLevel(level)
	logrusLogger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return NewLogrusAdapterFromLogger(logrusLogger), &buf
}

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		expectLevel logrus.Level
	}{
		{name: "debug level with text format", level: "debug", format: "text", expectLevel: logrus.DebugLevel},
		{name: "info level with json format", level: "info", format: "json", expectLevel: logrus.InfoLevel},
		{name: "upper case level", level: "WARN", format: "text", expectLevel: logrus.WarnLevel},
		{name: "invalid level defaults to info", level: "invalid", format: "text", expectLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogrusAdapter(tt.level, tt.format)
			require.NotNil(t, logger)

			adapter, ok := logger.(*LogrusAdapter)
			require.True(t, ok, "logger should be a LogrusAdapter")
			assert.Equal(t, tt.expectLevel, adapter.logger.Level)

			if tt.format == "json" {
				_, ok := adapter.logger.Formatter.(*logrus.JSONFormatter)
				assert.True(t, ok, "formatter should be JSONFormatter")
			} else {
				_, ok := adapter.logger.Formatter.(*logrus.TextFormatter)
				assert.True(t, ok, "formatter should be TextFormatter")
			}
		})
	}
}

func TestNewLogrusAdapterFromLogger_Nil(t *testing.T) {
	logger := NewLogrusAdapterFromLogger(nil)
	adapter, ok := logger.(*LogrusAdapter)
	require.True(t, ok)
	assert.NotNil(t, adapter.logger)
}

func TestLogrusAdapter_LoggingMethods(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(Logger, string, ...Field)
		message string
	}{
		{name: "Debug", logFunc: func(l Logger, m string, f ...Field) { l.Debug(m, f...) }, message: "debug message"},
		{name: "Info", logFunc: func(l Logger, m string, f ...Field) { l.Info(m, f...) }, message: "info message"},
		{name: "Warn", logFunc: func(l Logger, m string, f ...Field) { l.Warn(m, f...) }, message: "warn message"},
		{name: "Error", logFunc: func(l Logger, m string, f ...Field) { l.Error(m, f...) }, message: "error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferedLogger(logrus.DebugLevel)

			tt.logFunc(logger, tt.message, F(FieldTable, "Cleaned_Data"))

			output := buf.String()
			assert.Contains(t, output, tt.message)
			assert.Contains(t, output, FieldTable)
			assert.Contains(t, output, "Cleaned_Data")
		})
	}
}

func TestLogrusAdapter_ChainedCalls(t *testing.T) {
	logger, buf := newBufferedLogger(logrus.InfoLevel)

	logger.
		WithField(FieldRunID, "run-1").
		WithFields(F(FieldStore, "csv"), F(FieldRows, 3)).
		WithError(errors.New("disk full")).
		Error("write failed")

	output := buf.String()
	assert.Contains(t, output, "write failed")
	assert.Contains(t, output, "run-1")
	assert.Contains(t, output, "csv")
	assert.Contains(t, output, "disk full")
}

func TestLogrusAdapter_SetOutput(t *testing.T) {
	logger := NewLogrusAdapter("info", "json")
	var buf bytes.Buffer
	logger.(*LogrusAdapter).SetOutput(&buf)

	logger.Info("redirected")
	assert.Contains(t, buf.String(), `"msg":"redirected"`)
}

func TestConvertFields(t *testing.T) {
	logrusFields := convertFields([]Field{
		{Key: "key1", Value: "value1"},
		{Key: "key2", Value: 42},
	})

	assert.Len(t, logrusFields, 2)
	assert.Equal(t, "value1", logrusFields["key1"])
	assert.Equal(t, 42, logrusFields["key2"])
	assert.Len(t, convertFields(nil), 0)
}

func TestLogrusAdapter_ImplementsInterface(t *testing.T) {
	var _ Logger = (*LogrusAdapter)(nil)
	var _ Logger = (*MockLogger)(nil)
}

func TestMockLogger_SharedSink(t *testing.T) {
	mock := NewMockLogger()

	child := mock.WithField(FieldRunID, "abc").WithError(errors.New("boom"))
	child.Warn("derived entry", F(FieldCount, 2))
	mock.Info("root entry")

	entries := mock.GetEntries()
	require.Len(t, entries, 2)
	assert.True(t, mock.HasEntry("WARN", "derived entry"))
	assert.EqualError(t, entries[0].Error, "boom")

	v, ok := mock.FieldValue("derived entry", FieldRunID)
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	assert.Len(t, mock.GetEntriesByLevel("INFO"), 1)

	mock.Clear()
	assert.Empty(t, mock.GetEntries())
}
