package common

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{JSON: true, Service: "license-server", Version: "v1.2.3", Output: &buf})
	log.Info("hello", "key", "ABC")
	log.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "license-server", entry["service"])
	assert.Equal(t, "v1.2.3", entry["version"])
	assert.Equal(t, "ABC", entry["key"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestSetupLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{Debug: true, Output: &buf})
	log.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}
