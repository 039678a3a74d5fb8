package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker. Zero values take the defaults noted on
// each field.
type Settings struct {
	// MaxRequests is the number of probes let through while half-open and
	// the number of probe successes that close the breaker (1)
	MaxRequests uint32
	// Interval clears the closed-state counts periodically (60s)
	Interval time.Duration
	// Timeout is how long the breaker stays open (60s)
	Timeout time.Duration
	// ReadyToTrip decides, after a failure while closed, whether to open
	// (more than 5 consecutive failures)
	ReadyToTrip func(counts Counts) bool
	// OnStateChange observes transitions
	OnStateChange func(name string, from State, to State)
	// IsSuccessful classifies a request error. A peer that answers "not
	// found" is healthy. Defaults to err == nil.
	IsSuccessful func(err error) bool
	// Now is the clock (time.Now)
	Now func() time.Time
}

// Counts holds the statistics of the current window
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) success() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Breaker guards calls to a remote peer. Every transition starts a new
// generation; results reported for an older generation are dropped.
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	deadline   time.Time
}

// New creates a closed breaker
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Interval <= 0 {
		settings.Interval = 60 * time.Second
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = func(err error) bool { return err == nil }
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}

	return &Breaker{
		name:     name,
		settings: settings,
		deadline: settings.Now().Add(settings.Interval),
	}
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.settings.Now())
	return b.state
}

// Counts returns a copy of the counts of the current window
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Execute runs req if the breaker admits it and returns req's error
// unchanged. A request abandoned because ctx ended is neither a success
// nor a failure. A panic counts as a failure and is re-raised.
func (b *Breaker) Execute(ctx context.Context, req func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	generation, err := b.admit()
	if err != nil {
		return err
	}

	settled := false
	defer func() {
		if !settled {
			b.settle(generation, outcomeFailure)
		}
	}()

	err = req(ctx)
	settled = true

	switch {
	case b.settings.IsSuccessful(err):
		b.settle(generation, outcomeSuccess)
	case ctx.Err() != nil:
		b.settle(generation, outcomeAbandoned)
	default:
		b.settle(generation, outcomeFailure)
	}
	return err
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeAbandoned
)

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.settings.Now())

	switch {
	case b.state == StateOpen:
		return b.generation, ErrCircuitOpen
	case b.state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests:
		return b.generation, ErrTooManyRequests
	}

	b.counts.Requests++
	return b.generation, nil
}

func (b *Breaker) settle(generation uint64, o outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.settings.Now()
	b.advance(now)
	if generation != b.generation {
		return
	}

	switch o {
	case outcomeAbandoned:
		// Free the probe slot so a half-open breaker is not stuck
		if b.state == StateHalfOpen && b.counts.Requests > 0 {
			b.counts.Requests--
		}
	case outcomeSuccess:
		b.counts.success()
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
			b.transition(StateClosed, now)
		}
	case outcomeFailure:
		b.counts.failure()
		if b.state == StateHalfOpen || b.settings.ReadyToTrip(b.counts) {
			b.transition(StateOpen, now)
		}
	}
}

// advance applies the time-driven transitions
func (b *Breaker) advance(now time.Time) {
	if b.deadline.IsZero() || now.Before(b.deadline) {
		return
	}
	switch b.state {
	case StateClosed:
		b.counts = Counts{}
		b.generation++
		b.deadline = now.Add(b.settings.Interval)
	case StateOpen:
		b.transition(StateHalfOpen, now)
	}
}

func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}

	from := b.state
	b.state = to
	b.counts = Counts{}
	b.generation++

	switch to {
	case StateClosed:
		b.deadline = now.Add(b.settings.Interval)
	case StateOpen:
		b.deadline = now.Add(b.settings.Timeout)
	case StateHalfOpen:
		b.deadline = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
