// Package intents manages payment links: a fixed amount requested by a page owner, valid
// until it expires, is cancelled or has been paid a maximum number of times.
package intents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/drafts"
	"github.com/onclick-pay/onclick-web/internal/events"
)

const (
	intentPrefix = "intent:"
	indexPrefix  = "intents:"

	maxDescription = 280
)

var (
	ErrNotFound       = errors.New("intents: payment link not found")
	ErrPageNotFound   = errors.New("intents: page is not published")
	ErrNotOwner       = errors.New("intents: only the page owner can manage its payment links")
	ErrInvalidAmount  = errors.New("intents: amount must be greater than zero")
	ErrInvalidExpiry  = errors.New("intents: expiry must be in the future")
	ErrInvalidUsages  = errors.New("intents: max usages must not be negative")
	ErrAmountMismatch = errors.New("intents: amount does not match the payment link")
)

// UnusableError reports why a payment link cannot be paid.
type UnusableError struct {
	Status Status
}

func (e *UnusableError) Error() string {
	return "intents: payment link is " + string(e.Status)
}

// Status is the derived state of a payment link.
type Status string

const (
	StatusActive          Status = "active"
	StatusExpired         Status = "expired"
	StatusCancelled       Status = "cancelled"
	StatusMaxUsageReached Status = "max_usage_reached"
)

// Intent is a payment link. MaxUsages of zero means unlimited.
type Intent struct {
	ID          string    `json:"intentId"`
	Handle      string    `json:"handle"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Active      bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	UsageCount  int       `json:"usageCount"`
	MaxUsages   int       `json:"maxUsages"`
}

// StatusAt derives the link state at now. Cancellation wins over expiry, expiry over usage.
func (i Intent) StatusAt(now time.Time) Status {
	switch {
	case !i.Active:
		return StatusCancelled
	case now.After(i.ExpiresAt):
		return StatusExpired
	case i.MaxUsages > 0 && i.UsageCount >= i.MaxUsages:
		return StatusMaxUsageReached
	}
	return StatusActive
}

// Link is the shareable address: the public page with the amount prefilled.
func (i Intent) Link(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	q := url.Values{}
	q.Set("amount", strconv.FormatFloat(i.Amount, 'f', -1, 64))
	q.Set("intent", i.ID)
	return base + "/" + url.PathEscape(i.Handle) + "?" + q.Encode()
}

// stored keeps the owning session next to the public fields.
type stored struct {
	Intent Intent `json:"intent"`
	Owner  string `json:"owner"`
}

// Expiry units accepted by CreateRequest.
const (
	UnitHours = "hours"
	UnitDays  = "days"
	UnitWeeks = "weeks"
)

// CreateRequest describes a new payment link.
type CreateRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	ExpiryValue int     `json:"expiryValue"`
	ExpiryType  string  `json:"expiryType"`
	MaxUsages   int     `json:"maxUsages"`
}

// Lifetime converts the expiry fields to a duration. Unknown units count as days.
func (r CreateRequest) Lifetime() time.Duration {
	unit := 24 * time.Hour
	switch strings.ToLower(strings.TrimSpace(r.ExpiryType)) {
	case UnitHours:
		unit = time.Hour
	case UnitWeeks:
		unit = 7 * 24 * time.Hour
	}
	return time.Duration(r.ExpiryValue) * unit
}

// Pages resolves the published page a link belongs to.
type Pages interface {
	Lookup(ctx context.Context, handle string) (drafts.Record, bool, error)
}

// Stats summarises the payment links of one page.
type Stats struct {
	TotalCreated  int     `json:"totalCreated"`
	TotalActive   int     `json:"totalActive"`
	TotalPayments int     `json:"totalPayments"`
	TotalRevenue  float64 `json:"totalRevenue"`
	AverageAmount float64 `json:"averageAmount"`
}

// Summarise computes Stats at now.
func Summarise(list []Intent, now time.Time) Stats {
	var s Stats
	s.TotalCreated = len(list)
	for _, i := range list {
		if i.StatusAt(now) == StatusActive {
			s.TotalActive++
		}
		s.TotalPayments += i.UsageCount
		s.TotalRevenue += float64(i.UsageCount) * i.Amount
	}
	if s.TotalPayments > 0 {
		s.AverageAmount = s.TotalRevenue / float64(s.TotalPayments)
	}
	return s
}

// Service stores payment links in the draft KV.
type Service struct {
	kv     drafts.KV
	pages  Pages
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(kv drafts.KV, pages Pages, opts ...Option) (*Service, error) {
	if kv == nil {
		return nil, errors.New("intents: kv backend is required")
	}
	if pages == nil {
		return nil, errors.New("intents: page lookup is required")
	}
	s := &Service{kv: kv, pages: pages, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Create adds a payment link to a page published by sessionID.
func (s *Service) Create(ctx context.Context, sessionID, handle string, req CreateRequest) (Intent, error) {
	handle = domain.SanitizeHandle(handle)
	if err := s.authorise(ctx, sessionID, handle); err != nil {
		return Intent{}, err
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	lifetime := req.Lifetime()
	if lifetime <= 0 {
		return Intent{}, ErrInvalidExpiry
	}
	if req.MaxUsages < 0 {
		return Intent{}, ErrInvalidUsages
	}
	description := strings.TrimSpace(req.Description)
	if runes := []rune(description); len(runes) > maxDescription {
		description = string(runes[:maxDescription])
	}

	now := s.now().UTC()
	intent := Intent{
		ID:          events.NewID(now),
		Handle:      handle,
		Amount:      req.Amount,
		Description: description,
		Active:      true,
		CreatedAt:   now,
		ExpiresAt:   now.Add(lifetime),
		MaxUsages:   req.MaxUsages,
	}
	if err := s.put(ctx, stored{Intent: intent, Owner: sessionID}); err != nil {
		return Intent{}, err
	}
	err := s.kv.Update(ctx, indexPrefix+handle, func(current []byte) ([]byte, error) {
		var ids []string
		if current != nil {
			if err := json.Unmarshal(current, &ids); err != nil {
				s.logger.Warn("corrupt payment link index rebuilt", zap.String("handle", handle), zap.Error(err))
				ids = nil
			}
		}
		return json.Marshal(append(ids, intent.ID))
	})
	if err != nil {
		return Intent{}, fmt.Errorf("intents: index %s: %w", handle, err)
	}
	s.logger.Info("payment link created", zap.String("handle", handle), zap.String("intent_id", intent.ID))
	return intent, nil
}

// Get returns one payment link.
func (s *Service) Get(ctx context.Context, id string) (Intent, error) {
	rec, err := s.get(ctx, id)
	return rec.Intent, err
}

// ListByHandle returns the links of a page in creation order. Unreadable entries are skipped.
func (s *Service) ListByHandle(ctx context.Context, handle string) ([]Intent, error) {
	handle = domain.SanitizeHandle(handle)
	raw, err := s.kv.Get(ctx, indexPrefix+handle)
	if errors.Is(err, drafts.ErrNotFound) {
		return []Intent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("intents: list %s: %w", handle, err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		s.logger.Warn("corrupt payment link index ignored", zap.String("handle", handle), zap.Error(err))
		return []Intent{}, nil
	}
	list := make([]Intent, 0, len(ids))
	for _, id := range ids {
		rec, err := s.get(ctx, id)
		if err != nil {
			s.logger.Warn("payment link unreadable", zap.String("intent_id", id), zap.Error(err))
			continue
		}
		list = append(list, rec.Intent)
	}
	return list, nil
}

// ListOwned is ListByHandle for the session that owns the page.
func (s *Service) ListOwned(ctx context.Context, sessionID, handle string) ([]Intent, error) {
	handle = domain.SanitizeHandle(handle)
	if err := s.authorise(ctx, sessionID, handle); err != nil {
		return nil, err
	}
	return s.ListByHandle(ctx, handle)
}

// Cancel deactivates a link. Only the session that created it may cancel.
func (s *Service) Cancel(ctx context.Context, sessionID, id string) (Intent, error) {
	var out Intent
	err := s.update(ctx, id, func(rec *stored) error {
		if rec.Owner != sessionID {
			return ErrNotOwner
		}
		rec.Intent.Active = false
		out = rec.Intent
		return nil
	})
	return out, err
}

// Redeem records one payment of amount against the link. The usage check and increment are
// a single atomic update.
func (s *Service) Redeem(ctx context.Context, id string, amount float64) (Intent, error) {
	now := s.now().UTC()
	var out Intent
	err := s.update(ctx, id, func(rec *stored) error {
		if status := rec.Intent.StatusAt(now); status != StatusActive {
			return &UnusableError{Status: status}
		}
		if math.Abs(amount-rec.Intent.Amount) > 1e-9 {
			return ErrAmountMismatch
		}
		rec.Intent.UsageCount++
		out = rec.Intent
		return nil
	})
	return out, err
}

func (s *Service) authorise(ctx context.Context, sessionID, handle string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrNotOwner
	}
	rec, found, err := s.pages.Lookup(ctx, handle)
	if err != nil {
		return fmt.Errorf("intents: lookup page: %w", err)
	}
	if !found || !rec.Published() {
		return ErrPageNotFound
	}
	if rec.Owner != sessionID {
		return ErrNotOwner
	}
	return nil
}

func (s *Service) get(ctx context.Context, id string) (stored, error) {
	raw, err := s.kv.Get(ctx, intentPrefix+strings.TrimSpace(id))
	if errors.Is(err, drafts.ErrNotFound) {
		return stored{}, ErrNotFound
	}
	if err != nil {
		return stored{}, fmt.Errorf("intents: get %s: %w", id, err)
	}
	var rec stored
	if err := json.Unmarshal(raw, &rec); err != nil {
		return stored{}, fmt.Errorf("intents: decode %s: %w", id, err)
	}
	return rec, nil
}

func (s *Service) put(ctx context.Context, rec stored) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("intents: encode %s: %w", rec.Intent.ID, err)
	}
	if err := s.kv.Put(ctx, intentPrefix+rec.Intent.ID, raw); err != nil {
		return fmt.Errorf("intents: write %s: %w", rec.Intent.ID, err)
	}
	return nil
}

func (s *Service) update(ctx context.Context, id string, fn func(*stored) error) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	return s.kv.Update(ctx, intentPrefix+id, func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, ErrNotFound
		}
		var rec stored
		if err := json.Unmarshal(current, &rec); err != nil {
			return nil, fmt.Errorf("intents: decode %s: %w", id, err)
		}
		if err := fn(&rec); err != nil {
			return nil, err
		}
		return json.Marshal(rec)
	})
}
