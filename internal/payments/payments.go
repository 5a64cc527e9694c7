package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/events"
	"github.com/onclick-pay/onclick-web/internal/pinning"
	"github.com/onclick-pay/onclick-web/internal/platform/observability"
)

const (
	DefaultDelay    = 3 * time.Second
	DefaultCurrency = "DOT"
)

var (
	ErrInvalidAmount   = errors.New("payments: amount must be greater than zero")
	ErrUnknownCurrency = errors.New("payments: unsupported currency")
	ErrUnknownMethod   = errors.New("payments: unsupported payment method")
)

// Method is a way of paying offered on every page.
type Method struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Icon     string `json:"icon" yaml:"icon"`
	Provider string `json:"provider" yaml:"provider"`
}

// Currency is a settlement token with its display rate.
type Currency struct {
	Symbol string  `json:"symbol" yaml:"symbol"`
	Name   string  `json:"name" yaml:"name"`
	Rate   float64 `json:"rate" yaml:"rate"`
}

var methods = []Method{
	{ID: "card", Name: "Credit/Debit Card", Icon: "💳", Provider: "Transak"},
	{ID: "wallet", Name: "Polkadot Wallet", Icon: "🔗", Provider: "Polkadot.js"},
	{ID: "crypto", Name: "Direct Crypto", Icon: "₿", Provider: "Direct"},
}

var currencies = []Currency{
	{Symbol: "DOT", Name: "Polkadot", Rate: 1},
	{Symbol: "USDT", Name: "Tether USD", Rate: 0.15},
	{Symbol: "USDC", Name: "USD Coin", Rate: 0.15},
	{Symbol: "ETH", Name: "Ethereum", Rate: 0.002},
}

// QuickAmounts are the preset buttons under the amount field.
var QuickAmounts = []int{10, 25, 50}

func Methods() []Method {
	return append([]Method(nil), methods...)
}

func Currencies() []Currency {
	return append([]Currency(nil), currencies...)
}

func LookupMethod(id string) (Method, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, m := range methods {
		if m.ID == id {
			return m, true
		}
	}
	return Method{}, false
}

func LookupCurrency(symbol string) (Currency, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, c := range currencies {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return Currency{}, false
}

// Copy is the role-specific wording of the payment panel.
type Copy struct {
	Heading      string `json:"heading"`
	Button       string `json:"button"`
	Summary      string `json:"summary"`
	MessageLabel string `json:"messageLabel"`
	Placeholder  string `json:"placeholder"`
}

// Labels returns the payment panel copy. amount is shown as typed; empty renders as 0.
func Labels(role domain.Role, name, amount string) Copy {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		amount = "0"
	}
	switch role {
	case domain.RoleBusiness:
		return Copy{
			Heading:      "Make a Payment",
			Button:       "Pay $" + amount,
			Summary:      fmt.Sprintf("Pay %s with $%s", name, amount),
			MessageLabel: "Notes (optional)",
			Placeholder:  "Add order notes or special instructions...",
		}
	case domain.RoleCrowdfunder:
		return Copy{
			Heading:      "Support Campaign",
			Button:       "Support $" + amount,
			Summary:      fmt.Sprintf("Support %s with $%s", name, amount),
			MessageLabel: "Message (optional)",
			Placeholder:  "Leave a message of support...",
		}
	default:
		return Copy{
			Heading:      "Donate to " + name,
			Button:       "Donate $" + amount,
			Summary:      fmt.Sprintf("Donate to %s with $%s", name, amount),
			MessageLabel: "Message (optional)",
			Placeholder:  "Leave a message...",
		}
	}
}

// Request is a simulated payment towards one page.
type Request struct {
	Handle        string  `json:"handle"`
	Role          string  `json:"role"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Method        string  `json:"method"`
	Message       string  `json:"message"`
	SupporterName string  `json:"supporterName"`
	Public        bool    `json:"isPublic"`
}

// Receipt is the outcome of a simulated payment. TxID is not a real chain transaction.
type Receipt struct {
	ID         string    `json:"id"`
	TxID       string    `json:"txId"`
	Handle     string    `json:"handle,omitempty"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Method     string    `json:"method"`
	Provider   string    `json:"provider"`
	MessageURI string    `json:"messageUri,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Simulator stands in for a payment processor: it validates, waits, and returns a fake receipt.
type Simulator struct {
	delay     time.Duration
	pinner    pinning.Pinner
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Simulator)

func WithDelay(d time.Duration) Option {
	return func(s *Simulator) {
		if d >= 0 {
			s.delay = d
		}
	}
}

func WithPinner(p pinning.Pinner) Option {
	return func(s *Simulator) { s.pinner = p }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Simulator) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Simulator) { s.metrics = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		delay:     DefaultDelay,
		publisher: events.Noop{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Validate normalises req and rejects unusable amounts, currencies and methods.
func Validate(req Request) (Request, Method, error) {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return req, Method{}, ErrInvalidAmount
	}
	if strings.TrimSpace(req.Currency) == "" {
		req.Currency = DefaultCurrency
	}
	cur, ok := LookupCurrency(req.Currency)
	if !ok {
		return req, Method{}, ErrUnknownCurrency
	}
	req.Currency = cur.Symbol
	method, ok := LookupMethod(req.Method)
	if !ok {
		return req, Method{}, ErrUnknownMethod
	}
	req.Method = method.ID
	req.Handle = domain.SanitizeHandle(req.Handle)
	req.Role = string(domain.RoleOrDefault(req.Role))
	return req, method, nil
}

// Pay simulates processing req.
func (s *Simulator) Pay(ctx context.Context, req Request) (Receipt, error) {
	req, method, err := Validate(req)
	if err != nil {
		return Receipt{}, err
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
	}

	var messageURI string
	if s.pinner != nil {
		messageURI, err = pinning.PinTransactionMessage(ctx, s.pinner, pinning.TransactionMessage{
			Message:       req.Message,
			SupporterName: req.SupporterName,
			IsPublic:      req.Public,
		})
		if err != nil {
			return Receipt{}, fmt.Errorf("payments: pin message: %w", err)
		}
	}

	now := s.now().UTC()
	txID, err := mockTxID()
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{
		ID:         ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		TxID:       txID,
		Handle:     req.Handle,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Method:     method.ID,
		Provider:   method.Provider,
		MessageURI: messageURI,
		CreatedAt:  now,
	}

	s.metrics.RecordPayment(ctx, method.ID, req.Currency)
	event := events.PaymentSimulated{
		ID:         events.NewID(now),
		ReceiptID:  receipt.ID,
		TxID:       receipt.TxID,
		Handle:     receipt.Handle,
		Role:       req.Role,
		Amount:     receipt.Amount,
		Currency:   receipt.Currency,
		Method:     receipt.Method,
		MessageURI: messageURI,
		OccurredAt: now,
	}
	if err := s.publisher.PaymentSimulated(ctx, event); err != nil {
		s.logger.Warn("payment event not delivered", zap.String("receipt_id", receipt.ID), zap.Error(err))
	}
	return receipt, nil
}

func mockTxID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("payments: tx id: %w", err)
	}
	return "0x" + hex.EncodeToString(b[:]), nil
}
