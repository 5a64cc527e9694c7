package events

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event type names, carried in the "type" message attribute.
const (
	TypePagePublished    = "page.published"
	TypePaymentSimulated = "payment.simulated"
)

// PagePublished is emitted after a draft becomes addressable under its handle.
type PagePublished struct {
	ID          string    `json:"id"`
	Handle      string    `json:"handle"`
	Role        string    `json:"role"`
	Layout      string    `json:"layout"`
	SessionID   string    `json:"sessionId"`
	MetadataURI string    `json:"metadataUri,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// PaymentSimulated is emitted for every completed mock payment.
type PaymentSimulated struct {
	ID         string    `json:"id"`
	ReceiptID  string    `json:"receiptId"`
	TxID       string    `json:"txId"`
	Handle     string    `json:"handle,omitempty"`
	Role       string    `json:"role"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Method     string    `json:"method"`
	MessageURI string    `json:"messageUri,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers domain events.
type Publisher interface {
	PagePublished(ctx context.Context, event PagePublished) error
	PaymentSimulated(ctx context.Context, event PaymentSimulated) error
}

// NewID returns a sortable event identifier.
func NewID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// Noop drops every event.
type Noop struct{}

func (Noop) PagePublished(context.Context, PagePublished) error       { return nil }
func (Noop) PaymentSimulated(context.Context, PaymentSimulated) error { return nil }

// Recorder keeps events in memory.
type Recorder struct {
	mu       sync.Mutex
	pages    []PagePublished
	payments []PaymentSimulated
}

func (r *Recorder) PagePublished(_ context.Context, event PagePublished) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, event)
	return nil
}

func (r *Recorder) PaymentSimulated(_ context.Context, event PaymentSimulated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, event)
	return nil
}

// Pages returns a copy of the recorded publish events.
func (r *Recorder) Pages() []PagePublished {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PagePublished(nil), r.pages...)
}

// Payments returns a copy of the recorded payment events.
func (r *Recorder) Payments() []PaymentSimulated {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PaymentSimulated(nil), r.payments...)
}
