package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("EXPORTER_TEST_STRING", "  value  ")
	t.Setenv("EXPORTER_TEST_INT", "0x10")
	t.Setenv("EXPORTER_TEST_BOOL", "true")
	t.Setenv("EXPORTER_TEST_DURATION", "90s")
	t.Setenv("EXPORTER_TEST_BAD_DURATION", "soon")
	t.Setenv("EXPORTER_TEST_FLOAT", "2.5")

	assert.Equal(t, "value", GetEnvStringOrDefault("EXPORTER_TEST_STRING", "x"))
	assert.Equal(t, "x", GetEnvStringOrDefault("EXPORTER_TEST_UNSET", "x"))
	assert.Equal(t, 16, GetEnvIntOrDefault("EXPORTER_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvIntOrDefault("EXPORTER_TEST_STRING", 1))
	assert.True(t, GetEnvBoolOrDefault("EXPORTER_TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, GetEnvDurationOrDefault("EXPORTER_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, GetEnvDurationOrDefault("EXPORTER_TEST_BAD_DURATION", time.Second))
	assert.Equal(t, 2.5, GetEnvFloat64OrDefault("EXPORTER_TEST_FLOAT", 1))
}

func TestSanitizeEnvRejectsEmpty(t *testing.T) {
	t.Setenv("EXPORTER_TEST_BLANK", "   ")

	_, err := SanitizeEnv("EXPORTER_TEST_BLANK")
	assert.Error(t, err)

	_, err = SanitizeEnv("")
	assert.Error(t, err)
}
