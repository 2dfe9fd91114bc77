package resilience

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker guards one upstream host. Rate-limit and not-found responses
// should be recorded as successes; only transport and 5xx failures count.
type CircuitBreaker struct {
	mu   sync.Mutex
	name string
	cfg  CircuitBreakerConfig
	now  func() time.Time

	state     CircuitState
	failures  int
	openedAt  time.Time
	probes    int
	probeWins int

	onTransition func(name string, from, to CircuitState)
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   NormalizeCircuitBreakerConfig(cfg),
		now:   time.Now,
		state: CircuitStateClosed,
	}
}

func (b *CircuitBreaker) Name() string {
	return b.name
}

func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		b.transition(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen {
		if b.probes >= b.cfg.HalfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		b.releaseProbe()
		b.probeWins++
		if b.probeWins >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
			b.transition(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		b.releaseProbe()
		b.transition(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) releaseProbe() {
	if b.probes > 0 {
		b.probes--
	}
}

func (b *CircuitBreaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	b.probes = 0
	b.probeWins = 0
	switch to {
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
	if b.onTransition != nil && from != to {
		b.onTransition(b.name, from, to)
	}
}

// BreakerSet lazily creates one breaker per host so a failing regional
// endpoint does not trip calls routed to healthy ones.
type BreakerSet struct {
	mu           sync.Mutex
	cfg          CircuitBreakerConfig
	breakers     map[string]*CircuitBreaker
	now          func() time.Time
	onTransition func(name string, from, to CircuitState)
}

func NewBreakerSet(cfg CircuitBreakerConfig, onTransition func(name string, from, to CircuitState)) *BreakerSet {
	return &BreakerSet{
		cfg:          NormalizeCircuitBreakerConfig(cfg),
		breakers:     make(map[string]*CircuitBreaker),
		now:          time.Now,
		onTransition: onTransition,
	}
}

// For returns the breaker for host, or nil when breakers are disabled.
func (s *BreakerSet) For(host string) *CircuitBreaker {
	if s == nil || !s.cfg.Enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.breakers[host]
	if !ok {
		b = NewCircuitBreaker(host, s.cfg)
		b.now = s.now
		b.onTransition = s.onTransition
		s.breakers[host] = b
	}
	return b
}

// States reports the current state of every known breaker, sorted by host.
func (s *BreakerSet) States() map[string]CircuitState {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	hosts := make([]string, 0, len(s.breakers))
	for host := range s.breakers {
		hosts = append(hosts, host)
	}
	s.mu.Unlock()
	sort.Strings(hosts)

	out := make(map[string]CircuitState, len(hosts))
	for _, host := range hosts {
		out[host] = s.For(host).State()
	}
	return out
}
