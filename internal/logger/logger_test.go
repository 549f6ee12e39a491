package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()
	reconfigure()

	return buf, func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Run("debug level shows everything", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		for _, want := range []string{"DEBUG", "INFO", "WARN", "ERROR", "debug message", "info message", "warn message", "error message"} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("info level filters debug", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		Debug("debug message")
		Info("info message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.Contains(t, out, "info message")
	})
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetFormat("json")
	SetLevel("INFO")
	defer SetFormat("text")

	Info("connected", KeyBrokerAddr, "tcp://broker:3755")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "connected", rec["msg"])
	assert.Equal(t, "tcp://broker:3755", rec[KeyBrokerAddr])
}

func TestCtxVariantsPrependContextFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetLevel("DEBUG")

	ctx := WithContext(context.Background(), NewLogContext("conn-1").WithRequest(42, "get", "device/status"))
	InfoCtx(ctx, "dispatching")

	out := buf.String()
	assert.Contains(t, out, "connection_id=conn-1")
	assert.Contains(t, out, "request_id=42")
	assert.Contains(t, out, "method=get")
	assert.Contains(t, out, "shv_path=device/status")
}

func TestFromContextNilIsSafe(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Nil(t, FromContext(nil))
}
