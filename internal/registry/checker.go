package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/drafts"
	"github.com/onclick-pay/onclick-web/internal/platform/observability"
)

// Status is the availability state of a candidate handle. The zero value means no check
// was performed because the handle is too short.
type Status string

const (
	StatusNone        Status = ""
	StatusChecking    Status = "checking"
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

// Reasons attached to non-available results.
const (
	ReasonTooShort = "too_short"
	ReasonReserved = "reserved"
	ReasonTaken    = "taken"
)

const (
	defaultLatency    = 800 * time.Millisecond
	defaultMaxElapsed = 5 * time.Second
)

// Result is the outcome of a single availability check.
type Result struct {
	Handle string `json:"handle"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Resolved reports whether the result is a final available/unavailable answer.
func (r Result) Resolved() bool {
	return r.Status == StatusAvailable || r.Status == StatusUnavailable
}

// Lookup is the uniqueness authority consulted after the denylist.
type Lookup interface {
	Lookup(ctx context.Context, handle string) (drafts.Record, bool, error)
}

// Checker answers availability for a handle.
type Checker struct {
	lookup     Lookup
	latency    time.Duration
	maxElapsed time.Duration
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// CheckerOption customises the Checker.
type CheckerOption func(*Checker)

// WithLatency sets the simulated round-trip delay applied before answering.
func WithLatency(d time.Duration) CheckerOption {
	return func(c *Checker) {
		if d >= 0 {
			c.latency = d
		}
	}
}

// WithRetryMaxElapsed bounds the total time spent retrying store lookups.
func WithRetryMaxElapsed(d time.Duration) CheckerOption {
	return func(c *Checker) {
		if d > 0 {
			c.maxElapsed = d
		}
	}
}

// WithLogger sets the checker logger.
func WithLogger(logger *zap.Logger) CheckerOption {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records check outcomes.
func WithMetrics(m *observability.Metrics) CheckerOption {
	return func(c *Checker) {
		c.metrics = m
	}
}

// NewChecker builds a Checker. A nil lookup limits the policy to the denylist.
func NewChecker(lookup Lookup, opts ...CheckerOption) *Checker {
	c := &Checker{
		lookup:     lookup,
		latency:    defaultLatency,
		maxElapsed: defaultMaxElapsed,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Check resolves availability for an anonymous caller.
func (c *Checker) Check(ctx context.Context, handle string) (Result, error) {
	return c.CheckFor(ctx, "", handle)
}

// CheckFor resolves availability on behalf of sessionID; a handle already held by the same
// session counts as available.
func (c *Checker) CheckFor(ctx context.Context, sessionID, handle string) (Result, error) {
	start := time.Now()
	handle = domain.SanitizeHandle(handle)
	if len(handle) < domain.HandleMinLength {
		return Result{Handle: handle, Status: StatusNone, Reason: ReasonTooShort}, nil
	}

	if err := sleepContext(ctx, c.latency); err != nil {
		return Result{}, err
	}

	res, err := c.resolve(ctx, sessionID, handle)
	if err != nil {
		c.logger.Warn("handle check failed", zap.String("handle", observability.SanitizeHandle(handle)), zap.Error(err))
		return Result{}, err
	}
	c.metrics.RecordHandleCheck(ctx, string(res.Status), time.Since(start))
	return res, nil
}

// Verify resolves availability without the simulated latency. Publishing and operator tooling
// use it to re-check a handle right before claiming it.
func (c *Checker) Verify(ctx context.Context, sessionID, handle string) (Result, error) {
	handle = domain.SanitizeHandle(handle)
	if len(handle) < domain.HandleMinLength {
		return Result{Handle: handle, Status: StatusNone, Reason: ReasonTooShort}, nil
	}
	return c.resolve(ctx, sessionID, handle)
}

func (c *Checker) resolve(ctx context.Context, sessionID, handle string) (Result, error) {
	if domain.IsReservedHandle(handle) {
		return Result{Handle: handle, Status: StatusUnavailable, Reason: ReasonReserved}, nil
	}
	if c.lookup == nil {
		return Result{Handle: handle, Status: StatusAvailable}, nil
	}

	var (
		rec   drafts.Record
		found bool
	)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = c.maxElapsed
	err := backoff.Retry(func() error {
		var err error
		rec, found, err = c.lookup.Lookup(ctx, handle)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return Result{}, fmt.Errorf("registry: lookup %q: %w", handle, err)
	}

	if found && rec.Owner != "" && rec.Owner != sessionID {
		return Result{Handle: handle, Status: StatusUnavailable, Reason: ReasonTaken}, nil
	}
	return Result{Handle: handle, Status: StatusAvailable}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
