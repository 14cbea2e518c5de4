package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleBoundsLines(t *testing.T) {
	sample := NewSample("affected", 3)
	for i := 0; i < 8; i++ {
		sample.Add("line %d", i)
	}

	assert.Len(t, sample.Lines, 3)
	assert.Equal(t, 5, sample.Omitted)
}

func TestSampleDefaultLimit(t *testing.T) {
	sample := NewSample("affected", 0)
	for i := 0; i < DefaultSampleLimit+2; i++ {
		sample.Add("line %d", i)
	}
	assert.Len(t, sample.Lines, DefaultSampleLimit)
	assert.Equal(t, 2, sample.Omitted)
}

func TestRenderIncludesContinuationMarker(t *testing.T) {
	summary := NewSummary("dedup")
	summary.AddCount("deleted", 12)

	sample := NewSample("collapsed groups", 2)
	sample.Add("kept #1")
	sample.Add("kept #2")
	sample.Add("kept #3")
	sample.Add("kept #4")
	summary.AddSample(sample)

	text := summary.Finish().Render()
	assert.Contains(t, text, "dedup pass")
	assert.Contains(t, text, "deleted:")
	assert.Contains(t, text, "... +2 more")
}

func TestRenderSkippedRecords(t *testing.T) {
	summary := NewSummary("match")
	summary.AddCount("matched", 0)
	summary.AddIssue(42, "unparseable date")

	text := summary.Finish().Render()
	assert.Contains(t, text, "skipped records (1)")
	assert.Contains(t, text, "#42: unparseable date")
}

func TestEmptySampleIsDropped(t *testing.T) {
	summary := NewSummary("repair")
	summary.AddSample(NewSample("relinked", 5))
	summary.AddSample(nil)

	require.Empty(t, summary.Samples)
	assert.False(t, strings.Contains(summary.Finish().Render(), "relinked"))
}

func TestSummaryHasRunIdentity(t *testing.T) {
	a := NewSummary("match")
	b := NewSummary("match")
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.False(t, a.StartedAt.IsZero())
	assert.False(t, a.Finish().FinishedAt.IsZero())
}
