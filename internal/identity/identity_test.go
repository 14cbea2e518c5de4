package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveByName(t *testing.T) {
	assert.True(t, Resolve("Studio North", "", "Studio North", ""))
	assert.True(t, Resolve("  Studio North ", "", "Studio North", ""))
	assert.False(t, Resolve("Studio North", "", "Studio South", ""))
}

func TestResolveByCode(t *testing.T) {
	assert.True(t, Resolve("renamed partner", "092011", "old partner name", "092011"))
	assert.True(t, Resolve("", "0001", "", "1"), "numeric codes are zero-padded before comparison")
	assert.True(t, Resolve("", "A001", "", "A001"))
	assert.False(t, Resolve("", "A001", "", "A1"))
}

func TestResolveIsOr(t *testing.T) {
	// Stable code with a changed name is still the same counterparty,
	// and vice versa.
	assert.True(t, Resolve("New Name Inc", "092011", "Old Name Inc", "092011"))
	assert.True(t, Resolve("Same Name", "1111", "Same Name", "2222"))
}

func TestResolveNeverMatchesOnAbsence(t *testing.T) {
	assert.False(t, Resolve("", "", "", ""))
	assert.False(t, Resolve("   ", "  ", "", ""))
	assert.False(t, Resolve("Studio North", "", "", "092011"))
}

func TestResolveIsCommutative(t *testing.T) {
	cases := [][4]string{
		{"Studio North", "092011", "Studio North", ""},
		{"A", "1", "B", "0001"},
		{"", "", "X", "9"},
		{"Same", "", "Same", ""},
	}
	for _, c := range cases {
		assert.Equal(t,
			Resolve(c[0], c[1], c[2], c[3]),
			Resolve(c[2], c[3], c[0], c[1]),
			"case %v", c)
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "0042", NormalizeCode("42"))
	assert.Equal(t, "092011", NormalizeCode(" 092011 "))
	assert.Equal(t, "A001", NormalizeCode("A001"))
	assert.Equal(t, "", NormalizeCode("   "))
}
