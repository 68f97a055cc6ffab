package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/cloudevents/sdk-go/v2/event"
)

// PubSubAdapter provides message publishing using Google Cloud Pub/Sub
type PubSubAdapter struct {
	Client *pubsub.Client
}

// PublishCloudEvent sends e in structured mode with the ce- attributes set so
// subscribers can filter without decoding the body.
func (a *PubSubAdapter) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal cloudevent: %w", err)
	}
	res := a.Client.Topic(topicID).Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: ceAttributes(e),
	})
	return res.Get(ctx)
}

func ceAttributes(e event.Event) map[string]string {
	return map[string]string{
		"ce-id":          e.ID(),
		"ce-type":        e.Type(),
		"ce-source":      e.Source(),
		"ce-specversion": e.SpecVersion(),
		"content-type":   event.ApplicationCloudEventsJSON,
	}
}

// LogPublisher is a mock publisher for local development
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "MOCK PUBLISH", "component", "LogPublisher", "topic", topicID, "type", e.Type(), "data", string(e.Data()))
	return "mock-msg-id", nil
}
