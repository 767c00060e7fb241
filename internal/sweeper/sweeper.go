// Package sweeper runs the periodic background task that transitions
// stale services and evicts dead ones, per spec.md §4.G. Grounded on the
// arxos service registry's ticker-driven cleanup goroutine, adapted to
// this spec's two-threshold (stale then evict) model and to logging every
// individual transition rather than just a count.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/swarm-blackjack/service-gateway/internal/eventbus"
	"github.com/swarm-blackjack/service-gateway/internal/logring"
)

const (
	DefaultStaleThreshold  = 15 * time.Minute
	DefaultEvictThreshold  = 60 * time.Minute
	DefaultSweepInterval   = 60 * time.Second
)

// Registry is the subset of *registry.Registry the sweeper needs.
type Registry interface {
	MarkStaleOlderThan(threshold time.Duration) []string
	EvictOlderThan(threshold time.Duration) []string
}

// Sweeper periodically marks stale and evicts dead service records. It
// does not probe services; liveness is defined solely by incoming
// heartbeats (registrations).
type Sweeper struct {
	registry       Registry
	logs           *logring.Ring
	bus            *eventbus.Bus
	staleThreshold time.Duration
	evictThreshold time.Duration
	interval       time.Duration
}

// Option configures a Sweeper.
type Option func(*Sweeper)

func WithStaleThreshold(d time.Duration) Option { return func(s *Sweeper) { s.staleThreshold = d } }
func WithEvictThreshold(d time.Duration) Option { return func(s *Sweeper) { s.evictThreshold = d } }
func WithInterval(d time.Duration) Option       { return func(s *Sweeper) { s.interval = d } }

// New builds a Sweeper with spec.md §4.G defaults, overridable via
// Option.
func New(reg Registry, logs *logring.Ring, bus *eventbus.Bus, opts ...Option) *Sweeper {
	s := &Sweeper{
		registry:       reg,
		logs:           logs,
		bus:            bus,
		staleThreshold: DefaultStaleThreshold,
		evictThreshold: DefaultEvictThreshold,
		interval:       DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks, ticking every s.interval until ctx is cancelled. In-flight
// forwards are unaffected by cancellation — only the ticking loop stops.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one sweep: mark-stale then evict, logging every individual
// transition.
func (s *Sweeper) Tick() {
	for _, name := range s.registry.MarkStaleOlderThan(s.staleThreshold) {
		s.log(fmt.Sprintf("service %q marked STALE (no heartbeat in %s)", name, s.staleThreshold), name)
	}
	for _, name := range s.registry.EvictOlderThan(s.evictThreshold) {
		s.log(fmt.Sprintf("service %q evicted (no heartbeat in %s)", name, s.evictThreshold), name)
	}
}

func (s *Sweeper) log(msg, service string) {
	entry := logring.Entry{
		Timestamp: time.Now(),
		Level:     logring.LevelInfo,
		Category:  logring.CategorySweep,
		Message:   msg,
		Service:   service,
	}
	if s.logs != nil {
		s.logs.Append(entry)
	}
	if s.bus != nil {
		s.bus.Publish(entry)
	}
}
