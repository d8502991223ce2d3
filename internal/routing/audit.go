package routing

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"expert-router/internal/models"
)

const DefaultAuditLogSize = 1000

// AuditRecord is one analyzed query.
type AuditRecord struct {
	ID        string               `json:"id"`
	Timestamp time.Time            `json:"timestamp"`
	Query     string               `json:"query"`
	Analysis  models.QueryAnalysis `json:"analysis"`
}

// AuditSink receives every appended record. Submit must not block.
type AuditSink interface {
	Submit(rec AuditRecord)
}

// AuditLog is a fixed-capacity ring of recent analyses. The oldest record is
// overwritten once the ring is full.
type AuditLog struct {
	mu      sync.Mutex
	records []AuditRecord
	next    int
	full    bool
	sink    AuditSink
	now     func() time.Time
}

func NewAuditLog(size int, sink AuditSink) *AuditLog {
	if size <= 0 {
		size = DefaultAuditLogSize
	}
	return &AuditLog{
		records: make([]AuditRecord, size),
		sink:    sink,
		now:     time.Now,
	}
}

// Append stores a record for query and forwards it to the sink, if any.
func (l *AuditLog) Append(query string, analysis models.QueryAnalysis) AuditRecord {
	rec := AuditRecord{
		ID:        uuid.NewString(),
		Timestamp: l.now().UTC(),
		Query:     query,
		Analysis:  analysis,
	}

	l.mu.Lock()
	l.records[l.next] = rec
	l.next = (l.next + 1) % len(l.records)
	if l.next == 0 {
		l.full = true
	}
	l.mu.Unlock()

	if l.sink != nil {
		l.sink.Submit(rec)
	}
	return rec
}

// Len returns the number of retained records.
func (l *AuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.records)
	}
	return l.next
}

// Records returns retained records oldest first.
func (l *AuditLog) Records() []AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]AuditRecord(nil), l.records[:l.next]...)
	}
	out := make([]AuditRecord, 0, len(l.records))
	out = append(out, l.records[l.next:]...)
	return append(out, l.records[:l.next]...)
}
