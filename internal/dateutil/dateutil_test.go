package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptsBothLayouts(t *testing.T) {
	dashed, err := Parse("2025-06-15")
	require.NoError(t, err)

	slashed, err := Parse("2025/06/15")
	require.NoError(t, err)

	assert.True(t, dashed.Equal(slashed))
	assert.Equal(t, 2025, dashed.Year())
	assert.Equal(t, time.June, dashed.Month())
	assert.Equal(t, 15, dashed.Day())
}

func TestParseTrimsWhitespace(t *testing.T) {
	parsed, err := Parse("  2025-01-02  ")
	require.NoError(t, err)
	assert.Equal(t, 2, parsed.Day())
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not a date", "15-06-2025", "2025-6-15"} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrUnparseable, "input %q", raw)
	}
}

func TestDaysBetween(t *testing.T) {
	a, _ := Parse("2025-06-15")
	b, _ := Parse("2025-06-20")

	assert.Equal(t, 5, DaysBetween(a, b))
	assert.Equal(t, 5, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestMonthNormalizesSeparator(t *testing.T) {
	assert.Equal(t, "2025-06", Month("2025-06-15"))
	assert.Equal(t, "2025-06", Month("2025/06/15"))
	assert.Equal(t, "", Month("2025"))
}
