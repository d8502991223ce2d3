package routing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"expert-router/internal/models"
)

type recordingSink struct {
	mu      sync.Mutex
	records []AuditRecord
}

func (s *recordingSink) Submit(rec AuditRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func TestAuditLog_RingOverwritesOldest(t *testing.T) {
	sink := &recordingSink{}
	log := NewAuditLog(3, sink)

	for i := 1; i <= 5; i++ {
		log.Append(fmt.Sprintf("q%d", i), models.QueryAnalysis{Intent: models.IntentGeneral})
	}

	assert.Equal(t, 3, log.Len())
	var queries []string
	for _, r := range log.Records() {
		queries = append(queries, r.Query)
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.Timestamp.IsZero())
	}
	assert.Equal(t, []string{"q3", "q4", "q5"}, queries)
	assert.Len(t, sink.records, 5)
}

func TestAuditLog_PartiallyFilled(t *testing.T) {
	log := NewAuditLog(0, nil)
	log.Append("only", models.QueryAnalysis{})

	assert.Equal(t, 1, log.Len())
	assert.Equal(t, "only", log.Records()[0].Query)
	assert.Len(t, log.records, DefaultAuditLogSize)
}
