package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates text logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatText, Output: &buf})
		require.NotNil(t, logger)

		logger.Info("payment settled", "amount", 5000)

		assert.Contains(t, buf.String(), "payment settled")
		assert.Contains(t, buf.String(), "amount=5000")
	})

	t.Run("creates JSON logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON, Output: &buf})

		logger.Info("payment settled", "provider", "Paystack")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "payment settled", entry["msg"])
		assert.Equal(t, "Paystack", entry["provider"])
	})

	t.Run("respects log level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelWarn, Format: LogFormatText, Output: &buf})

		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warn message")
		logger.Error("error message")

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.NotContains(t, output, "info message")
		assert.Contains(t, output, "warn message")
		assert.Contains(t, output, "error message")
	})

	t.Run("adds service attributes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{
			Level:          LogLevelInfo,
			Format:         LogFormatJSON,
			Output:         &buf,
			ServiceName:    ServiceName,
			ServiceVersion: "1.2.3",
		})
		logger.Info("boot")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "paysmallsmall", entry["service"])
		assert.Equal(t, "1.2.3", entry["version"])
	})

	t.Run("adds context identifiers", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON, Output: &buf})

		ctx := WithCorrelationID(context.Background(), "corr-1")
		ctx = WithRequestID(ctx, "req-1")
		ctx = WithUserID(ctx, "user_001")
		logger.InfoContext(ctx, "scan complete")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "corr-1", entry[CorrelationIDKey])
		assert.Equal(t, "req-1", entry[RequestIDKey])
		assert.Equal(t, "user_001", entry[UserIDKey])
	})

	t.Run("defaults output to stderr", func(t *testing.T) {
		logger := NewLogger(LogConfig{})
		assert.NotNil(t, logger)
	})
}

func TestLoggerFromEnv(t *testing.T) {
	keys := []string{"APP_ENV", "PAYSMALL_LOG_LEVEL", "LOG_LEVEL", "PAYSMALL_LOG_FORMAT", "PAYSMALL_VERSION"}
	unset := func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	}
	unset()
	defer unset()

	os.Setenv("APP_ENV", "production")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("PAYSMALL_VERSION", "0.9.0")

	logger := LoggerFromEnv()
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), parseSlogLevel(LogLevelDebug)))
}

func TestParseSlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseSlogLevel(LogLevelDebug).String())
	assert.Equal(t, "INFO", parseSlogLevel(LogLevelInfo).String())
	assert.Equal(t, "WARN", parseSlogLevel(LogLevelWarn).String())
	assert.Equal(t, "ERROR", parseSlogLevel(LogLevelError).String())
	assert.Equal(t, "INFO", parseSlogLevel("verbose").String())
}

func TestLogOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON, Output: &buf})

	LogOperation(logger, "ledger.record_payment", SubscriptionIDKey, "sub_1").Info("recorded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ledger.record_payment", entry[OperationKey])
	assert.Equal(t, "sub_1", entry[SubscriptionIDKey])
}

func TestLogDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON, Output: &buf})

	LogDuration(context.Background(), logger, "monitor.scan", time.Now().Add(-50*time.Millisecond))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "monitor.scan", entry[OperationKey])
	assert.GreaterOrEqual(t, entry[DurationKey].(float64), float64(50))
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))

	generated := WithCorrelationID(ctx, "")
	assert.NotEmpty(t, CorrelationIDFromContext(generated))

	req := NewRequestContext(ctx, "parent")
	assert.Equal(t, "parent", CorrelationIDFromContext(req))
	assert.NotEmpty(t, RequestIDFromContext(req))
}
