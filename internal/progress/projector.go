// Package progress projects a simulated completion percentage for a submitted
// download while the real job status is pending.
package progress

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// State is a projector state
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateDownloading  State = "downloading"
	StateSuccess      State = "success"
	StateError        State = "error"
	StateAuthRequired State = "auth_required"
)

const (
	// TickInterval is how often a client advances the projection
	TickInterval = 300 * time.Millisecond

	DefaultMaxStep = 15.0
	DefaultCeiling = 90.0
)

// ErrInvalidTransition is returned for an event the current state does not accept
var ErrInvalidTransition = errors.New("invalid projector transition")

// Option configures a Projector
type Option func(*Projector)

// WithRand sets the random source used for increments
func WithRand(r *rand.Rand) Option {
	return func(p *Projector) { p.rng = r }
}

// WithMaxStep sets the exclusive upper bound of a single increment
func WithMaxStep(step float64) Option {
	return func(p *Projector) { p.maxStep = step }
}

// WithCeiling caps the simulated percentage. Values of 100 or more are clamped below 100.
func WithCeiling(ceiling float64) Option {
	return func(p *Projector) { p.ceiling = ceiling }
}

// OnTransition registers a callback run after every state change
func OnTransition(fn func(from, to State)) Option {
	return func(p *Projector) { p.onTransition = fn }
}

// Projector is a single-threaded state machine. It is not safe for concurrent use.
type Projector struct {
	state        State
	percent      float64
	job          *domain.DownloadJob
	err          error
	rng          *rand.Rand
	maxStep      float64
	ceiling      float64
	onTransition func(from, to State)
}

// New creates an idle projector
func New(opts ...Option) *Projector {
	p := &Projector{
		state:   StateIdle,
		maxStep: DefaultMaxStep,
		ceiling: DefaultCeiling,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if p.ceiling >= 100 {
		p.ceiling = 99
	}
	return p
}

// State returns the current state
func (p *Projector) State() State {
	return p.state
}

// Percent returns the projected percentage, rounded down
func (p *Projector) Percent() int {
	return int(p.percent)
}

// Job returns the terminal job once observed
func (p *Projector) Job() *domain.DownloadJob {
	return p.job
}

// Err returns the error that moved the projector to Error or AuthRequired
func (p *Projector) Err() error {
	return p.err
}

// Submit starts a request. Without an identity it goes straight to AuthRequired;
// a URL failing the local shape check ends in Error before any request is made.
func (p *Projector) Submit(authenticated bool, rawURL string) error {
	if p.state != StateIdle {
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, p.state)
	}

	if !authenticated {
		p.err = domain.ErrUnauthorized
		p.transition(StateAuthRequired)
		return p.err
	}

	p.transition(StateValidating)
	if !domain.LooksLikeMediaURL(rawURL) {
		p.err = domain.ErrInvalidURL
		p.transition(StateError)
		return p.err
	}

	p.percent = 0
	p.transition(StateDownloading)
	return nil
}

// Tick advances the projection by a random step, never reaching 100
func (p *Projector) Tick() {
	if p.state != StateDownloading {
		return
	}
	p.percent += p.rng.Float64() * p.maxStep
	if p.percent > p.ceiling {
		p.percent = p.ceiling
	}
}

// Fail records that the submission request itself failed
func (p *Projector) Fail(err error) error {
	if p.state != StateDownloading {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, p.state)
	}
	p.err = err
	p.transition(StateError)
	return nil
}

// Observe reconciles with the real job. Pending snapshots are ignored.
func (p *Projector) Observe(job *domain.DownloadJob) error {
	if p.state != StateDownloading {
		return fmt.Errorf("%w: observe from %s", ErrInvalidTransition, p.state)
	}
	if job == nil {
		return fmt.Errorf("%w: observe without a job", ErrInvalidTransition)
	}

	switch job.Status {
	case domain.StatusCompleted:
		p.job = job
		p.percent = 100
		p.transition(StateSuccess)
	case domain.StatusFailed:
		p.job = job
		msg := "download failed"
		if job.ErrorMessage != nil {
			msg = *job.ErrorMessage
		}
		p.err = errors.New(msg)
		p.transition(StateError)
	}
	return nil
}

// Reset returns to Idle from any state and clears progress, result and error
func (p *Projector) Reset() {
	p.percent = 0
	p.job = nil
	p.err = nil
	p.transition(StateIdle)
}

func (p *Projector) transition(to State) {
	from := p.state
	p.state = to
	if p.onTransition != nil && from != to {
		p.onTransition(from, to)
	}
}
