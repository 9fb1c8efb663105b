package narrative

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAppend(t *testing.T) {
	log := NewMemory()
	entry := Entry{
		ID:        "entry-1",
		ReportID:  "report-1",
		Kind:      "AAR",
		Title:     "Operation Overdrive after action",
		CreatedAt: time.Date(2953, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, log.Append(context.Background(), entry))

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "report-1", entries[0].ReportID)
}
