// Package narrative is the external narrative-log collaborator. Report
// generation mirrors OP_BRIEF and AAR artifacts into it best-effort; append
// failures only surface as warnings on the originating report.
package narrative

import (
	"context"
	"sync"
	"time"
)

type Entry struct {
	ID        string
	ReportID  string
	Kind      string
	Title     string
	Body      string
	CreatedBy string
	CreatedAt time.Time
}

type Log interface {
	Append(ctx context.Context, entry Entry) error
}

// Memory is the default sink.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
}

var _ Log = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Append(ctx context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *Memory) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entry(nil), m.entries...)
}
