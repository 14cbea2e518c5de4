// Package report carries the structured summary every pass returns: counts,
// a bounded sample of affected records with an explicit continuation marker,
// and the per-record issues that were skipped over.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultSampleLimit = 10

type Count struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Sample holds the first N affected records plus how many were omitted.
type Sample struct {
	Title   string   `json:"title"`
	Lines   []string `json:"lines"`
	Omitted int      `json:"omitted"`

	limit int
}

func NewSample(title string, limit int) *Sample {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	return &Sample{Title: title, limit: limit}
}

func (s *Sample) Add(format string, args ...interface{}) {
	if len(s.Lines) >= s.limit {
		s.Omitted++
		return
	}
	s.Lines = append(s.Lines, fmt.Sprintf(format, args...))
}

type Issue struct {
	RecordID int64  `json:"record_id"`
	Reason   string `json:"reason"`
}

type Summary struct {
	RunID      uuid.UUID `json:"run_id"`
	Pass       string    `json:"pass"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Counts     []Count   `json:"counts"`
	Samples    []*Sample `json:"samples,omitempty"`
	Skipped    []Issue   `json:"skipped,omitempty"`
}

func NewSummary(pass string) *Summary {
	return &Summary{
		RunID:     uuid.New(),
		Pass:      pass,
		StartedAt: time.Now(),
	}
}

func (s *Summary) AddCount(label string, value int) {
	s.Counts = append(s.Counts, Count{Label: label, Value: value})
}

func (s *Summary) AddSample(sample *Sample) {
	if sample == nil || (len(sample.Lines) == 0 && sample.Omitted == 0) {
		return
	}
	s.Samples = append(s.Samples, sample)
}

func (s *Summary) AddIssue(recordID int64, reason string) {
	s.Skipped = append(s.Skipped, Issue{RecordID: recordID, Reason: reason})
}

func (s *Summary) Finish() *Summary {
	s.FinishedAt = time.Now()
	return s
}

// Render produces the textual report consumed by the CLI and by humans
// auditing a run after the fact.
func (s *Summary) Render() string {
	var b strings.Builder
	rule := strings.Repeat("=", 72)

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%s pass - run %s\n", s.Pass, s.RunID)
	fmt.Fprintln(&b, rule)
	for _, count := range s.Counts {
		fmt.Fprintf(&b, "  %-12s %d\n", count.Label+":", count.Value)
	}

	for _, sample := range s.Samples {
		fmt.Fprintln(&b, strings.Repeat("-", 72))
		fmt.Fprintf(&b, "%s:\n", sample.Title)
		for i, line := range sample.Lines {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, line)
		}
		if sample.Omitted > 0 {
			fmt.Fprintf(&b, "  ... +%d more\n", sample.Omitted)
		}
	}

	if len(s.Skipped) > 0 {
		fmt.Fprintln(&b, strings.Repeat("-", 72))
		fmt.Fprintf(&b, "skipped records (%d):\n", len(s.Skipped))
		for _, issue := range s.Skipped {
			fmt.Fprintf(&b, "  #%d: %s\n", issue.RecordID, issue.Reason)
		}
	}

	fmt.Fprintln(&b, rule)
	return b.String()
}
