package messaging

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlink-web/internal/reqmeta"
)

// MetadataRequestID is the message metadata key carrying the request id of
// the HTTP request that produced the event.
const MetadataRequestID = "request_id"

// Publish emits a typed event.
type Publish[T any] func(ctx context.Context, event *T) error

// identified is implemented by events that carry their own id; it becomes
// the message UUID so consumers can deduplicate.
type identified interface {
	MessageID() string
}

// NewPublishFunc creates a typed publish function for topic.
func NewPublishFunc[T any](publisher message.Publisher, topic string) Publish[T] {
	return func(ctx context.Context, event *T) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		id := watermill.NewUUID()
		if e, ok := any(event).(identified); ok && e.MessageID() != "" {
			id = e.MessageID()
		}

		msg := message.NewMessage(id, payload)
		msg.SetContext(ctx)

		if rid := reqmeta.FromContext(ctx).RequestID; rid != "" {
			msg.Metadata.Set(MetadataRequestID, rid)
		}

		return publisher.Publish(topic, msg)
	}
}

// Discard returns a publish function that drops every event.
func Discard[T any]() Publish[T] {
	return func(context.Context, *T) error { return nil }
}

// PublisherGroup owns the publisher shared by every publish function.
type PublisherGroup struct {
	publisher message.Publisher
}

func NewPublisherGroup(publisher message.Publisher) *PublisherGroup {
	return &PublisherGroup{publisher: publisher}
}

// Publisher returns the underlying message publisher.
func (g *PublisherGroup) Publisher() message.Publisher {
	return g.publisher
}

// Shutdown closes the underlying publisher.
func (g *PublisherGroup) Shutdown() error {
	return g.publisher.Close()
}

// discardPublisher accepts and drops messages.
type discardPublisher struct{}

// NewDiscardPublisher returns a publisher that drops every message. It
// stands in when events are disabled.
func NewDiscardPublisher() message.Publisher {
	return discardPublisher{}
}

func (discardPublisher) Publish(string, ...*message.Message) error { return nil }

func (discardPublisher) Close() error { return nil }
