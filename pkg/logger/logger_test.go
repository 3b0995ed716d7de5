package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSlogLoggerAttrs(t *testing.T) {
	var buf bytes.Buffer

	log := NewSlogLoggerWithWriter(EnvLocal, &buf)
	log.Info("relay tick", String("type", "payment_request"), Int("rows", 3))

	out := buf.String()
	require.Contains(t, out, "msg=\"relay tick\"")
	require.Contains(t, out, "type=payment_request")
	require.Contains(t, out, "rows=3")
}

func TestZapLoggerAttrs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	log := NewZapLoggerFrom(zap.New(core))
	log.Warn("stale outbox update", String("saga_id", "42"), Err(nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "stale outbox update", entries[0].Message)
	require.Equal(t, "42", entries[0].ContextMap()["saga_id"])
}

func TestSetupLogger(t *testing.T) {
	tCases := []struct {
		name string
		env  string
		want any
	}{
		{name: "local", env: "local", want: &SlogLogger{}},
		{name: "dev", env: "dev", want: &SlogLogger{}},
		{name: "prod", env: "prod", want: &ZapLogger{}},
		{name: "unknown", env: "", want: &SlogLogger{}},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			require.IsType(t, tCase.want, SetupLogger(tCase.env))
		})
	}
}
