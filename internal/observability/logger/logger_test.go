package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	require.Equal(t, zapcore.WarnLevel, parseLevel(" warn "))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, parseLevel(""))
	require.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestBaseFields(t *testing.T) {
	fs := baseFields(Config{})
	require.Equal(t, []zap.Field{zap.String("service", DefaultServiceName)}, fs)

	fs = baseFields(Config{Env: "PROD", ServiceName: "api", Version: "1.2.0"})
	require.Equal(t, []zap.Field{
		zap.String("service", "api"),
		zap.String("version", "1.2.0"),
		zap.String("env", "prod"),
	}, fs)
}

func TestFrom_FallsBackAndCarriesFields(t *testing.T) {
	require.NotNil(t, From(context.Background()))
	require.NotNil(t, From(nil))

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core))
	ctx = WithFields(ctx, RequestID("req-1"))
	From(ctx).Info("hello", Op("Test"))

	entries := logs.All()
	require.Len(t, entries, 1)
	m := entries[0].ContextMap()
	require.Equal(t, "req-1", m["request_id"])
	require.Equal(t, "Test", m["op"])
}
