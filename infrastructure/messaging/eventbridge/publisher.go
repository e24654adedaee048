// Package eventbridge announces render cache invalidations on an EventBridge
// bus so other grapher instances can drop their local caches.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ixp-grapher/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Source is the EventBridge source of every grapher event
	Source = "ixp.grapher"

	// DetailTypeCacheInvalidated marks a render cache invalidation
	DetailTypeCacheInvalidated = "GraphCacheInvalidated"
)

// API is the subset of the EventBridge client the publisher uses.
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// CacheInvalidated is the event detail.
type CacheInvalidated struct {
	EventID    string    `json:"event_id"`
	Reason     string    `json:"reason"`
	Instance   string    `json:"instance"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher implements ports.InvalidationPublisher using AWS EventBridge
type Publisher struct {
	client       API
	eventBusName string
	instance     string
	logger       *zap.Logger
	now          func() time.Time
}

var _ ports.InvalidationPublisher = (*Publisher)(nil)

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client API, eventBusName string, logger *zap.Logger) *Publisher {
	instance, err := os.Hostname()
	if err != nil || instance == "" {
		instance = uuid.NewString()
	}
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		instance:     instance,
		logger:       logger,
		now:          time.Now,
	}
}

// PublishInvalidation sends one GraphCacheInvalidated event.
func (p *Publisher) PublishInvalidation(ctx context.Context, reason string) error {
	event := CacheInvalidated{
		EventID:    uuid.NewString(),
		Reason:     reason,
		Instance:   p.instance,
		OccurredAt: p.now().UTC(),
	}
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation event: %w", err)
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(Source),
			DetailType:   aws.String(DetailTypeCacheInvalidated),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.OccurredAt),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for _, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("Failed to publish event",
					zap.String("eventType", DetailTypeCacheInvalidated),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	p.logger.Debug("Invalidation published to EventBridge",
		zap.String("eventId", event.EventID),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}
