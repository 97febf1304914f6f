package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubPublisher publishes change events as JSON messages on one topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSubPublisher connects to the project and binds the topic.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSubPublisher{
		client: client,
		topic:  client.Topic(topicID),
		logger: logger,
	}, nil
}

// PublishChange sends one change event and waits for the server ack.
func (p *PubSubPublisher) PublishChange(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"slug": change.Slug,
			"site": change.Site,
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish change event for %s: %w", change.Slug, err)
	}
	p.logger.Debug("change event published",
		zap.String("slug", change.Slug),
		zap.String("message_id", id),
	)
	return nil
}

// Close flushes pending publishes and releases the client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
