package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/rws-cli/internal/model"
	"github.com/sells-group/rws-cli/internal/monitoring"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Name:      "maize",
			Country:   "Kenya",
			Method:    model.MethodZonal,
			Status:    model.RunStatusComplete,
			Coverage:  17.25,
			Result:    &model.Result{Representative: []model.BufferShare{{Station: "A"}, {Station: "B"}}},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Name:      "a-very-long-run-name-that-overflows",
			Method:    model.MethodPoints,
			Status:    model.RunStatusFailed,
			Error:     "rws: scope: stations span 2 countries",
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-59 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "COUNTRY")
	assert.Contains(t, output, "COVERAGE")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "maize")
	assert.Contains(t, output, "Kenya")
	assert.Contains(t, output, "17.25")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "a-very-long-run-name-...")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "2025-06-15 10:30")
}

func TestFormatRunStats(t *testing.T) {
	s := &monitoring.Snapshot{
		Total:       4,
		Complete:    3,
		Failed:      1,
		FailRate:    0.25,
		AvgCoverage: 12.5,
		AvgDCZ:      3,
		AvgRWS:      4.5,
		Warned:      1,
		Countries:   []monitoring.CountryCount{{Country: "Kenya", Runs: 3}, {Country: "Ghana", Runs: 1}},
	}

	var buf bytes.Buffer
	formatRunStats(&buf, s)

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "25.0%")
	assert.Contains(t, output, "12.50%")
	assert.Contains(t, output, "4.5")
	assert.Contains(t, output, "Kenya:")
	assert.Contains(t, output, "Ghana:")
}

func TestFormatRunStats_NoCompleteRuns(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, &monitoring.Snapshot{Total: 1, Failed: 1, FailRate: 1})

	output := buf.String()
	assert.Contains(t, output, "100.0%")
	assert.NotContains(t, output, "Avg coverage")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
