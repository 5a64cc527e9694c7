package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/onclick-pay/onclick-web/internal/domain"
)

const defaultDebounce = 500 * time.Millisecond

var (
	// ErrSuperseded is returned to a waiter whose check was replaced by a later call.
	ErrSuperseded = errors.New("registry: check superseded by a newer handle")
	// ErrStopped is returned once the debouncer has been stopped.
	ErrStopped = errors.New("registry: debouncer stopped")
)

// CheckFunc performs one availability check.
type CheckFunc func(ctx context.Context, handle string) (Result, error)

// State is the latest applied outcome of a Debouncer.
type State struct {
	Generation uint64 `json:"generation"`
	Result     Result `json:"result"`
	Err        error  `json:"-"`
}

type outcome struct {
	result Result
	err    error
}

// Debouncer coalesces rapid handle edits. Every Schedule bumps a generation counter; only the
// check belonging to the newest generation may publish its result.
type Debouncer struct {
	check CheckFunc
	delay time.Duration

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	state   State
	waiters map[uint64][]chan outcome
	stopped bool
}

// NewDebouncer wraps check with a quiet-period delay.
func NewDebouncer(check CheckFunc, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = defaultDebounce
	}
	return &Debouncer{
		check:   check,
		delay:   delay,
		waiters: make(map[uint64][]chan outcome),
	}
}

// Schedule registers a new candidate and returns its generation.
func (d *Debouncer) Schedule(handle string) uint64 {
	gen, _ := d.schedule(handle, false)
	return gen
}

// Check schedules handle and waits for its generation to resolve. It returns ErrSuperseded
// when a later call replaced it before resolution.
func (d *Debouncer) Check(ctx context.Context, handle string) (Result, error) {
	_, ch := d.schedule(handle, true)
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case o := <-ch:
		return o.result, o.err
	}
}

// Latest returns the most recently applied state.
func (d *Debouncer) Latest() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Stop cancels pending work and releases every waiter.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	d.haltLocked()
	for gen, list := range d.waiters {
		for _, ch := range list {
			ch <- outcome{err: ErrStopped}
		}
		delete(d.waiters, gen)
	}
}

func (d *Debouncer) schedule(raw string, wait bool) (uint64, chan outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ch chan outcome
	if wait {
		ch = make(chan outcome, 1)
	}
	if d.stopped {
		if ch != nil {
			ch <- outcome{err: ErrStopped}
		}
		return d.gen, ch
	}

	d.haltLocked()
	d.gen++
	gen := d.gen
	for old, list := range d.waiters {
		for _, w := range list {
			w <- outcome{err: ErrSuperseded}
		}
		delete(d.waiters, old)
	}
	if ch != nil {
		d.waiters[gen] = append(d.waiters[gen], ch)
	}

	handle := domain.SanitizeHandle(raw)
	if len(handle) < domain.HandleMinLength {
		d.applyLocked(gen, Result{Handle: handle, Status: StatusNone, Reason: ReasonTooShort}, nil)
		return gen, ch
	}

	d.state = State{Generation: gen, Result: Result{Handle: handle, Status: StatusChecking}}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen, handle) })
	return gen, ch
}

func (d *Debouncer) fire(gen uint64, handle string) {
	d.mu.Lock()
	if gen != d.gen || d.stopped {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Unlock()

	res, err := d.check(ctx, handle)
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen || d.stopped {
		return
	}
	d.cancel = nil
	d.applyLocked(gen, res, err)
}

func (d *Debouncer) applyLocked(gen uint64, res Result, err error) {
	d.state = State{Generation: gen, Result: res, Err: err}
	for _, ch := range d.waiters[gen] {
		ch <- outcome{result: res, err: err}
	}
	delete(d.waiters, gen)
}

func (d *Debouncer) haltLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
