package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-04-09")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), *d)

	d, err = ParseDate("2026-04-09T17:45:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), *d)

	d, err = ParseDate("  ")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseDate("09/04/2026")
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "N/A", FormatDate(nil))
	d := time.Date(2026, 4, 9, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-04-09", FormatDate(&d))
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("ACCOMMODATION_TEST_VAR", " ")
	assert.Equal(t, "fallback", EnvOrDefault("ACCOMMODATION_TEST_VAR", "fallback"))
	t.Setenv("ACCOMMODATION_TEST_VAR", "set")
	assert.Equal(t, "set", EnvOrDefault("ACCOMMODATION_TEST_VAR", "fallback"))
}
