package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"expert-router/internal/common/errors"
	"expert-router/internal/common/logger"
	"expert-router/internal/common/metrics"
	"expert-router/internal/routing"
)

const (
	DefaultIndex  = "query-analyses"
	DefaultBuffer = 256

	drainTimeout = 5 * time.Second
)

// IndexMapping is applied when the audit index does not exist yet.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "timestamp":       {"type": "date"},
      "query":           {"type": "text"},
      "intent":          {"type": "keyword"},
      "complexity":      {"type": "keyword"},
      "urgency":         {"type": "keyword"},
      "businessContext": {"type": "keyword"},
      "frameworks":      {"type": "keyword"},
      "confidence":      {"type": "float"}
    }
  }
}`

type document struct {
	Timestamp       time.Time `json:"timestamp"`
	Query           string    `json:"query"`
	Intent          string    `json:"intent"`
	Complexity      string    `json:"complexity"`
	Urgency         string    `json:"urgency"`
	BusinessContext []string  `json:"businessContext"`
	Frameworks      []string  `json:"frameworks"`
	Confidence      float64   `json:"confidence"`
}

func newDocument(rec routing.AuditRecord) document {
	a := rec.Analysis
	return document{
		Timestamp:       rec.Timestamp,
		Query:           rec.Query,
		Intent:          string(a.Intent),
		Complexity:      string(a.Complexity),
		Urgency:         string(a.Urgency),
		BusinessContext: a.BusinessContext,
		Frameworks:      a.Frameworks,
		Confidence:      a.Confidence,
	}
}

// ElasticsearchSink indexes audit records in the background. Submit never
// blocks; records arriving while the buffer is full are dropped and counted.
type ElasticsearchSink struct {
	client  *elasticsearch.Client
	index   string
	records chan routing.AuditRecord
	logger  logger.Logger
}

func NewElasticsearchSink(client *elasticsearch.Client, index string, buffer int, log logger.Logger) *ElasticsearchSink {
	if index == "" {
		index = DefaultIndex
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &ElasticsearchSink{
		client:  client,
		index:   index,
		records: make(chan routing.AuditRecord, buffer),
		logger:  logger.ForComponent(log, "audit-sink").WithFields(map[string]interface{}{"index": index}),
	}
}

func (s *ElasticsearchSink) Submit(rec routing.AuditRecord) {
	select {
	case s.records <- rec:
	default:
		metrics.AuditRecordsDropped.Inc()
		s.logger.Warn("audit buffer full, record dropped", map[string]interface{}{"recordId": rec.ID})
	}
}

// Run indexes submitted records until ctx is done, then flushes what is
// still buffered.
func (s *ElasticsearchSink) Run(ctx context.Context) {
	for {
		select {
		case rec := <-s.records:
			s.indexLogged(ctx, rec)
		case <-ctx.Done():
			s.drain()
			return
		}
	}
}

func (s *ElasticsearchSink) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case rec := <-s.records:
			s.indexLogged(ctx, rec)
		default:
			return
		}
	}
}

func (s *ElasticsearchSink) indexLogged(ctx context.Context, rec routing.AuditRecord) {
	if err := s.Index(ctx, rec); err != nil {
		s.logger.Warn("failed to index audit record", map[string]interface{}{
			"recordId": rec.ID,
			"error":    err,
		})
	}
}

// Index writes one record using its ID as the document ID.
func (s *ElasticsearchSink) Index(ctx context.Context, rec routing.AuditRecord) error {
	body, err := json.Marshal(newDocument(rec))
	if err != nil {
		return errors.NewAuditIndexFailedError(err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: rec.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.NewAuditIndexFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewAuditIndexFailedError(fmt.Errorf("index %s: %s", s.index, res.Status()))
	}
	return nil
}
