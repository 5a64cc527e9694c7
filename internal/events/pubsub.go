package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
)

// PubSub publishes events as JSON messages on a single topic.
type PubSub struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSub constructs a Pub/Sub backed publisher.
func NewPubSub(topic *pubsub.Topic) (*PubSub, error) {
	if topic == nil {
		return nil, errors.New("events: pubsub topic is required")
	}
	return &PubSub{topic: topic, marshal: json.Marshal}, nil
}

func (p *PubSub) PagePublished(ctx context.Context, event PagePublished) error {
	attrs := map[string]string{"type": TypePagePublished}
	setAttr(attrs, "handle", event.Handle)
	setAttr(attrs, "role", event.Role)
	return p.publish(ctx, event, attrs)
}

func (p *PubSub) PaymentSimulated(ctx context.Context, event PaymentSimulated) error {
	attrs := map[string]string{"type": TypePaymentSimulated}
	setAttr(attrs, "handle", event.Handle)
	setAttr(attrs, "role", event.Role)
	setAttr(attrs, "currency", event.Currency)
	return p.publish(ctx, event, attrs)
}

func (p *PubSub) publish(ctx context.Context, payload any, attrs map[string]string) error {
	if p == nil || p.topic == nil {
		return errors.New("events: pubsub publisher not initialised")
	}
	data, err := p.marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", attrs["type"], err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("events: publish %s: %w", attrs["type"], err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *PubSub) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
