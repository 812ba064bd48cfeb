package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
)

const (
	// EventAttributionCalculated is the event type published after a result is stored.
	EventAttributionCalculated = "attribution.calculated"

	defaultPublishTimeout = 15 * time.Second
)

// CalculatedEvent is the payload of an attribution.calculated message.
type CalculatedEvent struct {
	EventID          uuid.UUID                  `json:"event_id"`
	ResultID         uuid.UUID                  `json:"result_id"`
	TenantID         uuid.UUID                  `json:"tenant_id"`
	CampaignID       uuid.UUID                  `json:"campaign_id"`
	ModelType        enums.AttributionModelType `json:"model_type"`
	TotalConversions int                        `json:"total_conversions"`
	ConfidenceScore  float64                    `json:"confidence_score"`
	CalculatedAt     time.Time                  `json:"calculated_at"`
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// PubSubNotifier publishes attribution.calculated messages.
type PubSubNotifier struct {
	pub     publisher
	timeout time.Duration
}

// NewPubSubNotifier wraps a Pub/Sub publisher.
func NewPubSubNotifier(p *gcppubsub.Publisher) (*PubSubNotifier, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return newNotifier(&gcpPublisher{Publisher: p}), nil
}

func newNotifier(pub publisher) *PubSubNotifier {
	return &PubSubNotifier{pub: pub, timeout: defaultPublishTimeout}
}

// ResultCalculated publishes one message and waits for the server ack.
func (n *PubSubNotifier) ResultCalculated(ctx context.Context, result types.Result) error {
	event := CalculatedEvent{
		EventID:          uuid.New(),
		ResultID:         result.ID,
		TenantID:         result.TenantID,
		CampaignID:       result.CampaignID,
		ModelType:        result.ModelType,
		TotalConversions: result.TotalConversions,
		ConfidenceScore:  result.ConfidenceScore,
		CalculatedAt:     result.CalculatedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":    event.EventID.String(),
			"event_type":  EventAttributionCalculated,
			"tenant_id":   result.TenantID.String(),
			"campaign_id": result.CampaignID.String(),
			"model_type":  string(result.ModelType),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	res := n.pub.Publish(publishCtx, msg)
	if res == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := res.Get(publishCtx); err != nil {
		return fmt.Errorf("publish %s: %w", EventAttributionCalculated, err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
