// Package backoff implements the spin, yield and sleep progression used by
// goroutines that lost a creation race.
package backoff

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Policy describes how a waiter escalates while the creator is still busy.
// The first Spins iterations burn CPU, the next Yields iterations hand the
// processor back to the scheduler, and every iteration after that sleeps,
// starting at MinSleep and doubling up to MaxSleep.
type Policy struct {
	Spins    int           `yaml:"spins" json:"spins"`
	Yields   int           `yaml:"yields" json:"yields"`
	MinSleep time.Duration `yaml:"min_sleep" json:"min_sleep"`
	MaxSleep time.Duration `yaml:"max_sleep" json:"max_sleep"`
}

func DefaultPolicy() Policy {
	return Policy{
		Spins:    32,
		Yields:   64,
		MinSleep: 20 * time.Microsecond,
		MaxSleep: 2 * time.Millisecond,
	}
}

var ErrInvalidPolicy = errors.New("invalid wait policy")

func (p Policy) Validate() error {
	switch {
	case p.Spins < 0:
		return fmt.Errorf("%w: spins must not be negative, got %d", ErrInvalidPolicy, p.Spins)
	case p.Yields < 0:
		return fmt.Errorf("%w: yields must not be negative, got %d", ErrInvalidPolicy, p.Yields)
	case p.MinSleep <= 0:
		return fmt.Errorf("%w: min_sleep must be positive, got %s", ErrInvalidPolicy, p.MinSleep)
	case p.MaxSleep < p.MinSleep:
		return fmt.Errorf("%w: max_sleep %s is below min_sleep %s", ErrInvalidPolicy, p.MaxSleep, p.MinSleep)
	}
	return nil
}

// WithDefaults fills zero sleep bounds from DefaultPolicy. Spins and Yields
// are kept as given; zero skips that phase. A defaulted MinSleep never
// exceeds an explicit MaxSleep.
func (p Policy) WithDefaults() Policy {
	def := DefaultPolicy()
	if p.MinSleep == 0 {
		p.MinSleep = def.MinSleep
		if p.MaxSleep > 0 && p.MaxSleep < p.MinSleep {
			p.MinSleep = p.MaxSleep
		}
	}
	if p.MaxSleep == 0 {
		p.MaxSleep = def.MaxSleep
		if p.MaxSleep < p.MinSleep {
			p.MaxSleep = p.MinSleep
		}
	}
	return p
}

type Backoff struct {
	policy     Policy
	iterations int
	sleep      time.Duration
	spun       int

	// overridable in tests
	yield func()
	pause func(time.Duration)
}

func New(policy Policy) *Backoff {
	return &Backoff{
		policy: policy,
		yield:  runtime.Gosched,
		pause:  time.Sleep,
	}
}

// Wait blocks for one step of the policy.
func (b *Backoff) Wait() {
	b.iterations++

	switch {
	case b.iterations <= b.policy.Spins:
		b.spun += spin(b.iterations)
	case b.iterations <= b.policy.Spins+b.policy.Yields:
		b.yield()
	default:
		if b.sleep == 0 {
			b.sleep = b.policy.MinSleep
		} else if b.sleep < b.policy.MaxSleep {
			b.sleep = min(b.sleep*2, b.policy.MaxSleep)
		}
		b.pause(b.sleep)
	}
}

func (b *Backoff) Iterations() int {
	return b.iterations
}

//go:noinline
func spin(n int) int {
	acc := 0
	for i := 0; i < n*4; i++ {
		acc += i
	}
	return acc
}
