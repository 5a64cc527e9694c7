package wizard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/drafts"
	"github.com/onclick-pay/onclick-web/internal/events"
	"github.com/onclick-pay/onclick-web/internal/platform/observability"
	"github.com/onclick-pay/onclick-web/internal/registry"
)

var (
	ErrLastStep        = errors.New("wizard: already at the last step")
	ErrNotAtPreview    = errors.New("wizard: publish is only available from the preview step")
	ErrHandleImmutable = errors.New("wizard: a published handle cannot change")
)

// Exit is returned by Back on the first step; the wizard is left for Location.
type Exit struct {
	Location string
}

func (e *Exit) Error() string {
	return "wizard: exit to " + e.Location
}

// UnavailableError reports a handle that cannot be published.
type UnavailableError struct {
	Handle string
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("wizard: handle %q is unavailable (%s)", e.Handle, e.Reason)
}

// Availability resolves whether a session may claim a handle.
type Availability interface {
	Verify(ctx context.Context, sessionID, handle string) (registry.Result, error)
}

// Grants receives owner flags after a publish. An empty handle is the global flag.
type Grants interface {
	GrantOwner(handle string)
}

// Outcome is where control goes after Publish.
type Outcome struct {
	Location    string
	Addressable bool
}

type settings struct {
	registry  Availability
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures Open and Begin.
type Option func(*settings)

func WithRegistry(a Availability) Option {
	return func(s *settings) { s.registry = a }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *settings) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{publisher: events.Noop{}, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// Controller walks one session through the four steps. Every edit is persisted immediately.
type Controller struct {
	settings
	store     *drafts.Store
	sessionID string
	draft     domain.PageDraft
	step      Step
	published string
}

// Open resumes the session's draft and applies the route parameters to it.
func Open(ctx context.Context, store *drafts.Store, sessionID string, params RouteParams, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("wizard: draft store is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("wizard: session id is required")
	}
	c := &Controller{settings: newSettings(opts), store: store, sessionID: sessionID}

	stored := c.resume(ctx, domain.SanitizeHandle(params.Handle))
	c.draft, c.step = Reconcile(params, stored)
	return c, nil
}

// resume finds the draft this session may keep editing: its own handle slot first, then its
// scratch slot when the handles agree.
func (c *Controller) resume(ctx context.Context, handle string) domain.PageDraft {
	if handle != "" {
		rec, found, err := c.store.Lookup(ctx, handle)
		if err != nil {
			c.logger.Warn("handle slot unreadable, resuming from scratch", zap.String("handle", handle), zap.Error(err))
		} else if found && rec.Owner == c.sessionID {
			if rec.Published() {
				c.published = handle
			}
			return rec.Draft
		}
	}
	scratch, ok := c.store.Scratch(ctx, c.sessionID)
	if !ok {
		return domain.PageDraft{}
	}
	if handle == "" || scratch.Handle == "" || scratch.Handle == handle {
		if scratch.Handle != "" && handle == "" {
			if rec, found, err := c.store.Lookup(ctx, scratch.Handle); err == nil && found && rec.Owner == c.sessionID && rec.Published() {
				c.published = scratch.Handle
			}
		}
		return scratch
	}
	return domain.PageDraft{}
}

func (c *Controller) Draft() domain.PageDraft { return c.draft }
func (c *Controller) Step() Step              { return c.step }

// PublishedHandle is the handle this draft is already live under, if any.
func (c *Controller) PublishedHandle() string { return c.published }

// URL is the resumable address of the current position.
func (c *Controller) URL() string {
	return StepURL(c.draft, c.step)
}

// Next advances one step. No field is required to move forward.
func (c *Controller) Next() error {
	if c.step >= StepPreview {
		return ErrLastStep
	}
	c.step++
	return nil
}

// Back returns one step, or an *Exit from the first step.
func (c *Controller) Back() error {
	if c.step <= StepBasicInfo {
		return &Exit{Location: HandleSelectionURL(c.draft.Role)}
	}
	c.step--
	return nil
}

// Goto moves to an explicit step.
func (c *Controller) Goto(step Step) {
	c.step = step.Clamp()
}

// Update merge-patches the draft and persists it. Before a publish only the scratch slot is
// written so unpublished handles are never claimed.
func (c *Controller) Update(ctx context.Context, patch domain.Patch) error {
	if c.published != "" && patch.Handle != nil && domain.SanitizeHandle(*patch.Handle) != c.published {
		return ErrHandleImmutable
	}
	next := c.draft.Apply(patch)
	next.UpdatedAt = c.now().UTC()
	if err := c.store.Save(ctx, c.sessionID, c.published, next); err != nil {
		return fmt.Errorf("wizard: save draft: %w", err)
	}
	c.draft = next
	return nil
}

// Publish makes the draft addressable under its handle, or falls back to the handle-less
// preview when the handle is empty.
func (c *Controller) Publish(ctx context.Context, grants Grants) (Outcome, error) {
	if c.step != StepPreview {
		return Outcome{}, ErrNotAtPreview
	}
	draft := c.draft
	draft.UpdatedAt = c.now().UTC()

	if draft.Handle == "" {
		if err := c.store.Save(ctx, c.sessionID, "", draft); err != nil {
			return Outcome{}, fmt.Errorf("wizard: save preview: %w", err)
		}
		c.draft = draft
		if grants != nil {
			grants.GrantOwner("")
		}
		c.metrics.RecordPublish(ctx, string(draft.Role), false)
		return Outcome{Location: PreviewURL(draft, true)}, nil
	}

	if err := domain.ValidateForPublish(draft); err != nil {
		return Outcome{}, err
	}
	if c.registry != nil {
		res, err := c.registry.Verify(ctx, c.sessionID, draft.Handle)
		if err != nil {
			return Outcome{}, fmt.Errorf("wizard: verify handle: %w", err)
		}
		if res.Status != registry.StatusAvailable {
			return Outcome{}, &UnavailableError{Handle: draft.Handle, Reason: res.Reason}
		}
	}

	err := c.store.MarkPublished(ctx, c.sessionID, draft.Handle, draft)
	if errors.Is(err, drafts.ErrHandleOwned) {
		return Outcome{}, &UnavailableError{Handle: draft.Handle, Reason: registry.ReasonTaken}
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("wizard: publish: %w", err)
	}
	c.draft = draft
	c.published = draft.Handle
	if grants != nil {
		grants.GrantOwner(draft.Handle)
		grants.GrantOwner("")
	}
	c.metrics.RecordPublish(ctx, string(draft.Role), true)

	event := events.PagePublished{
		ID:          events.NewID(draft.UpdatedAt),
		Handle:      draft.Handle,
		Role:        string(draft.Role),
		Layout:      string(draft.Layout),
		SessionID:   c.sessionID,
		MetadataURI: draft.MetadataURI,
		PublishedAt: draft.UpdatedAt,
	}
	if err := c.publisher.PagePublished(ctx, event); err != nil {
		c.logger.Warn("page published event not delivered", zap.String("handle", draft.Handle), zap.Error(err))
	}
	c.logger.Info("page published", zap.String("handle", draft.Handle), zap.String("role", string(draft.Role)))
	return Outcome{Location: "/" + draft.Handle, Addressable: true}, nil
}

// Begin records the handle-selection result as a fresh scratch draft and returns the first
// wizard step. The handle must be valid and available.
func Begin(ctx context.Context, store *drafts.Store, sessionID, role, name, handle string, opts ...Option) (string, error) {
	if store == nil {
		return "", errors.New("wizard: draft store is required")
	}
	s := newSettings(opts)
	r := domain.RoleOrDefault(role)
	name = strings.TrimSpace(name)
	handle = domain.SanitizeHandle(handle)

	fields := make(map[string]string)
	if name == "" {
		fields["name"] = "name is required"
	}
	if err := domain.ValidateHandle(handle); err != nil {
		fields["handle"] = strings.TrimPrefix(err.Error(), "domain: ")
	} else if s.registry != nil {
		res, err := s.registry.Verify(ctx, sessionID, handle)
		if err != nil {
			return "", fmt.Errorf("wizard: verify handle: %w", err)
		}
		if res.Status != registry.StatusAvailable {
			fields["handle"] = "handle is " + unavailableText(res.Reason)
		}
	}
	if len(fields) > 0 {
		return "", &domain.ValidationError{Fields: fields}
	}

	draft := domain.NewDraft(r)
	draft.Name = name
	draft.Handle = handle
	draft.UpdatedAt = s.now().UTC()
	if err := store.Save(ctx, sessionID, "", draft); err != nil {
		return "", fmt.Errorf("wizard: save draft: %w", err)
	}
	return StepURL(draft, StepBasicInfo) + "&name=" + url.QueryEscape(name), nil
}

func unavailableText(reason string) string {
	switch reason {
	case registry.ReasonReserved:
		return "reserved"
	case registry.ReasonTaken:
		return "already taken"
	}
	return "unavailable"
}
