package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestTopic(t *testing.T) (*pstest.Server, *pubsub.Topic) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "onclick-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	return srv, topic
}

func TestPubSubPublishesPageEvent(t *testing.T) {
	srv, topic := newTestTopic(t)
	publisher, err := NewPubSub(topic)
	if err != nil {
		t.Fatalf("NewPubSub: %v", err)
	}
	defer publisher.Stop()

	published := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	event := PagePublished{
		ID:          NewID(published),
		Handle:      "ecotech",
		Role:        "crowdfunder",
		Layout:      "story",
		SessionID:   "sess-1",
		PublishedAt: published,
	}
	if err := publisher.PagePublished(context.Background(), event); err != nil {
		t.Fatalf("PagePublished: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	var payload PagePublished
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Handle != "ecotech" || payload.ID != event.ID {
		t.Fatalf("unexpected payload %#v", payload)
	}
	attrs := messages[0].Attributes
	if attrs["type"] != TypePagePublished || attrs["handle"] != "ecotech" || attrs["role"] != "crowdfunder" {
		t.Fatalf("unexpected attributes %#v", attrs)
	}
}

func TestPubSubOmitsEmptyAttributes(t *testing.T) {
	srv, topic := newTestTopic(t)
	publisher, err := NewPubSub(topic)
	if err != nil {
		t.Fatalf("NewPubSub: %v", err)
	}
	defer publisher.Stop()

	event := PaymentSimulated{ID: "evt", ReceiptID: "rcpt", TxID: "0xdeadbeef", Role: "creator", Amount: 10, Currency: "DOT", Method: "card"}
	if err := publisher.PaymentSimulated(context.Background(), event); err != nil {
		t.Fatalf("PaymentSimulated: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if _, ok := messages[0].Attributes["handle"]; ok {
		t.Fatalf("handle attribute should be omitted for handle-less payments")
	}
	if messages[0].Attributes["currency"] != "DOT" {
		t.Fatalf("expected currency attribute, got %#v", messages[0].Attributes)
	}
}

func TestRecorderCopies(t *testing.T) {
	rec := &Recorder{}
	_ = rec.PagePublished(context.Background(), PagePublished{Handle: "a"})
	pages := rec.Pages()
	pages[0].Handle = "mutated"
	if rec.Pages()[0].Handle != "a" {
		t.Fatal("Pages should return a copy")
	}
}

func TestNewPubSubRequiresTopic(t *testing.T) {
	if _, err := NewPubSub(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
}
