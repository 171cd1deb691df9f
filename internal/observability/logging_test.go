package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/config"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: format}, "battle")
		require.NoError(t, err, "format %q", format)
		assert.NotNil(t, logger)
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json"}, "")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "trace", Format: "json"}, "battle")
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "xml"}, "battle")
	assert.Error(t, err)
}

func TestNewLoggerTo_JSONCarriesServiceAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(config.LoggingConfig{Level: "debug", Format: "json"}, "somen", &buf)
	require.NoError(t, err)

	logger.Info("turn resolved", Session("b1"), Participant("p1"), Turn(3))
	require.NoError(t, logger.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "turn resolved", line["msg"])
	assert.Equal(t, "somen", line["service"])
	assert.Equal(t, "b1", line[KeySession])
	assert.Equal(t, "p1", line[KeyParticipant])
	assert.Equal(t, float64(3), line[KeyTurn])
}

func TestNewLoggerTo_NoSampling(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(config.LoggingConfig{Level: "info", Format: "json"}, "", &buf)
	require.NoError(t, err)
	for i := 0; i < 500; i++ {
		logger.Info("same line")
	}
	assert.Equal(t, 500, bytes.Count(buf.Bytes(), []byte("\n")))
}
