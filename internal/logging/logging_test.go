package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	buf.Reset()
	return out
}

func TestTemporalLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTemporalLogger(New(&buf, "debug", "worker"))

	logger.Info("Order created", "orderID", 42, "referenceID", "ref-001")
	line := decodeLine(t, &buf)
	require.Equal(t, "info", line["level"])
	require.Equal(t, "Order created", line["message"])
	require.Equal(t, float64(42), line["orderID"])
	require.Equal(t, "ref-001", line["referenceID"])
	require.Equal(t, "worker", line["service"])

	logger.Error("Activity failed", "error", errors.New("boom"), "dangling")
	line = decodeLine(t, &buf)
	require.Equal(t, "boom", line["error"])
	require.Equal(t, "(MISSING)", line["dangling"])
}

func TestTemporalLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTemporalLogger(New(&buf, "info", "worker")).With("workflowID", "login-a@b.com")

	logger.Debug("skipped")
	require.Zero(t, buf.Len())

	logger.Warn("Login cancelled")
	line := decodeLine(t, &buf)
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "login-a@b.com", line["workflowID"])
}
