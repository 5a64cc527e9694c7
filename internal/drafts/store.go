package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/domain"
)

var (
	ErrNotFound    = errors.New("drafts: not found")
	ErrHandleOwned = errors.New("drafts: handle is owned by another session")
)

const (
	scratchPrefix = "scratch:"
	pagePrefix    = "page:"
)

// UpdateFunc maps the current value of a key (nil when absent) to the value to write.
// Returning an error aborts the write.
type UpdateFunc func(current []byte) ([]byte, error)

// KV is the durable key-value shim the store persists into. Put is last-write-wins; Update
// is an atomic read-modify-write of one key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}

// Record is the stored value of both slot kinds.
type Record struct {
	Draft       domain.PageDraft `json:"draft"`
	Owner       string           `json:"owner,omitempty"`
	PublishedAt *time.Time       `json:"publishedAt,omitempty"`
}

// Published reports whether the record was written by a publish.
func (r Record) Published() bool {
	return r.PublishedAt != nil
}

// Source tells callers which slot Load resolved.
type Source string

const (
	SourceHandle   Source = "handle"
	SourceScratch  Source = "scratch"
	SourceDefaults Source = "defaults"
)

// Store keeps one scratch draft per session and one draft per handle.
type Store struct {
	kv     KV
	logger *zap.Logger
	now    func() time.Time
}

// Option customises the store.
type Option func(*Store)

// WithLogger sets the logger used for degraded reads.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for publish timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore wraps a KV backend.
func NewStore(kv KV, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, errors.New("drafts: kv backend is required")
	}
	s := &Store{kv: kv, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Backend is the KV the store writes into, shared with other record kinds.
func (s *Store) Backend() KV {
	return s.kv
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

// Save writes the scratch slot and, when handle is non-empty, the handle slot.
func (s *Store) Save(ctx context.Context, sessionID, handle string, draft domain.PageDraft) error {
	return s.write(ctx, sessionID, handle, draft, nil)
}

// MarkPublished writes both slots and stamps the handle slot as published.
func (s *Store) MarkPublished(ctx context.Context, sessionID, handle string, draft domain.PageDraft) error {
	if strings.TrimSpace(handle) == "" {
		return errors.New("drafts: publish requires a handle")
	}
	now := s.now().UTC()
	return s.write(ctx, sessionID, handle, draft, &now)
}

func (s *Store) write(ctx context.Context, sessionID, handle string, draft domain.PageDraft, publishedAt *time.Time) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("drafts: session id is required")
	}
	handle = strings.TrimSpace(handle)

	if handle != "" {
		if err := s.claim(ctx, sessionID, handle, draft, publishedAt); err != nil {
			return err
		}
		// Editing one page never discards the scratch draft of another.
		if scratch, ok := s.read(ctx, scratchPrefix+sessionID); ok && scratch.Draft.Handle != "" && scratch.Draft.Handle != handle {
			return nil
		}
	}
	return s.put(ctx, scratchPrefix+sessionID, Record{Draft: draft, Owner: sessionID})
}

// claim writes the handle slot only if it is unowned or owned by sessionID. The ownership
// check and the write happen atomically in the backend.
func (s *Store) claim(ctx context.Context, sessionID, handle string, draft domain.PageDraft, publishedAt *time.Time) error {
	key := pagePrefix + handle
	update := func(current []byte) ([]byte, error) {
		record := Record{Draft: draft, Owner: sessionID, PublishedAt: publishedAt}
		if current != nil {
			var existing Record
			if err := json.Unmarshal(current, &existing); err != nil {
				s.logger.Warn("corrupt handle record overwritten", zap.String("handle", handle), zap.Error(err))
			} else {
				if existing.Owner != "" && existing.Owner != sessionID {
					return nil, ErrHandleOwned
				}
				if publishedAt == nil {
					record.PublishedAt = existing.PublishedAt
				}
			}
		}
		return json.Marshal(record)
	}

	err := s.kv.Update(ctx, key, update)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrHandleOwned):
		return ErrHandleOwned
	}
	return fmt.Errorf("drafts: write %s: %w", key, err)
}

// Load resolves the draft to show for handle and never fails: the handle slot wins, then the
// session's scratch slot when its handle matches (or is empty), then the role placeholders.
func (s *Store) Load(ctx context.Context, sessionID, handle string, fallbackRole domain.Role) (domain.PageDraft, Source) {
	handle = strings.TrimSpace(handle)
	if handle != "" {
		if rec, ok := s.read(ctx, pagePrefix+handle); ok {
			return rec.Draft, SourceHandle
		}
	}
	if sessionID != "" {
		if rec, ok := s.read(ctx, scratchPrefix+sessionID); ok {
			if handle == "" || rec.Draft.Handle == "" || rec.Draft.Handle == handle {
				return rec.Draft, SourceScratch
			}
		}
	}
	return domain.PlaceholderDraft(fallbackRole), SourceDefaults
}

// Scratch returns the session's scratch draft if one exists.
func (s *Store) Scratch(ctx context.Context, sessionID string) (domain.PageDraft, bool) {
	rec, ok := s.read(ctx, scratchPrefix+sessionID)
	return rec.Draft, ok
}

// Lookup returns the handle slot, surfacing backend errors to the caller.
func (s *Store) Lookup(ctx context.Context, handle string) (Record, bool, error) {
	raw, err := s.kv.Get(ctx, pagePrefix+strings.TrimSpace(handle))
	if errors.Is(err, ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("drafts: lookup %q: %w", handle, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("corrupt handle record ignored", zap.String("handle", handle), zap.Error(err))
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) read(ctx context.Context, key string) (Record, bool) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("draft read failed, using fallback", zap.String("key", key), zap.Error(err))
		}
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("corrupt draft ignored", zap.String("key", key), zap.Error(err))
		return Record{}, false
	}
	return rec, true
}

func (s *Store) put(ctx context.Context, key string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("drafts: encode %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("drafts: write %s: %w", key, err)
	}
	return nil
}
