package advisor

import (
	"context"
	"time"

	"expert-router/internal/common/aws"
	"expert-router/internal/common/errors"
	"expert-router/internal/common/logger"
	"expert-router/internal/common/metrics"
	"expert-router/internal/models"
)

// Escalation describes a critical-urgency consultation for human follow-up.
type Escalation struct {
	Key          string         `json:"key"`
	Query        string         `json:"query"`
	PrimaryAgent string         `json:"primaryAgent"`
	Intent       models.Intent  `json:"intent"`
	Urgency      models.Urgency `json:"urgency"`
	Reasoning    string         `json:"reasoning"`
	RaisedAt     time.Time      `json:"raisedAt"`
}

type Escalator interface {
	Escalate(ctx context.Context, e Escalation) error
}

// SNSEscalator publishes escalations to an SNS topic.
type SNSEscalator struct {
	client *aws.SNSClient
	logger logger.Logger
}

func NewSNSEscalator(client *aws.SNSClient, log logger.Logger) *SNSEscalator {
	return &SNSEscalator{
		client: client,
		logger: logger.ForComponent(log, "sns-escalator"),
	}
}

func (s *SNSEscalator) Escalate(ctx context.Context, e Escalation) error {
	id, err := s.client.PublishJSON(ctx, "Critical consultation for "+e.PrimaryAgent, e, map[string]string{
		"urgency":      string(e.Urgency),
		"primaryAgent": e.PrimaryAgent,
	})
	if err != nil {
		metrics.EscalationsPublished.WithLabelValues("failed").Inc()
		return errors.NewEscalationPublishFailedError(err)
	}

	metrics.EscalationsPublished.WithLabelValues("published").Inc()
	s.logger.Info("escalation published", map[string]interface{}{
		"messageId":    id,
		"topicArn":     s.client.TopicARN(),
		"primaryAgent": e.PrimaryAgent,
	})
	return nil
}
