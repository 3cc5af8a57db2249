package resilience

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit open")

// CircuitBreakerState represents the current state of a circuit breaker
type CircuitBreakerState string

const (
	// StateClosed lets every call through
	StateClosed CircuitBreakerState = "closed"
	// StateOpen short-circuits calls until the retry timeout passes
	StateOpen CircuitBreakerState = "open"
	// StateHalfOpen lets probe calls through to decide whether to close again
	StateHalfOpen CircuitBreakerState = "half-open"
)

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	RetryTimeout     time.Duration
}

// DefaultCircuitBreakerConfig returns a default circuit breaker configuration
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		RetryTimeout:     30 * time.Second,
	}
}

// Stats is a point-in-time view of a breaker
type Stats struct {
	Name            string              `json:"name"`
	State           CircuitBreakerState `json:"state"`
	Requests        uint64              `json:"requests"`
	Failures        uint64              `json:"failures"`
	Successes       uint64              `json:"successes"`
	Rejected        uint64              `json:"rejected"`
	TimesOpened     uint64              `json:"timesOpened"`
	LastFailureTime time.Time           `json:"lastFailureTime,omitempty"`
}

// CircuitBreaker stops calling a provider that keeps failing
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	log *logger.Logger
	now func() time.Time

	mu          sync.Mutex
	state       CircuitBreakerState
	failures    uint // consecutive, while closed
	probes      uint // successes, while half-open
	nextAttempt time.Time
	stats       Stats
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig, log *logger.Logger) *CircuitBreaker {
	if log == nil {
		log = logger.Discard()
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		cfg:   config,
		log:   log,
		now:   time.Now,
		state: StateClosed,
		stats: Stats{Name: config.Name},
	}
}

// Execute runs fn unless the breaker is open. A non-nil error from fn
// counts as a failure; callers decide which outcomes are the provider's fault.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		cb.log.Warn("Circuit breaker preventing request", "name", cb.cfg.Name)
		return ErrCircuitOpen
	}

	start := cb.now()
	err := fn()
	cb.record(err)
	if err != nil {
		cb.log.Warn("Circuit breaker recorded failure",
			"name", cb.cfg.Name,
			"error", err.Error(),
			"duration", cb.now().Sub(start).String(),
		)
	}
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.nextAttempt) {
			cb.stats.Rejected++
			return false
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.log.Info("Circuit breaker half-open", "name", cb.cfg.Name)
	case StateHalfOpen:
		if cb.probes >= cb.cfg.SuccessThreshold {
			cb.stats.Rejected++
			return false
		}
	}
	cb.stats.Requests++
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.stats.Successes++
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.probes++
			if cb.probes >= cb.cfg.SuccessThreshold {
				cb.state = StateClosed
				cb.failures = 0
				cb.log.Info("Circuit breaker closed", "name", cb.cfg.Name)
			}
		}
		return
	}

	cb.stats.Failures++
	cb.stats.LastFailureTime = cb.now()
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.failures = 0
	cb.nextAttempt = cb.now().Add(cb.cfg.RetryTimeout)
	cb.stats.TimesOpened++
	cb.log.Info("Circuit breaker opened",
		"name", cb.cfg.Name,
		"next_attempt", cb.nextAttempt.Format(time.RFC3339),
	)
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a copy of the breaker counters
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s := cb.stats
	s.State = cb.state
	return s
}

// Registry hands out one breaker per provider, created on first use
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	config   func(name string) CircuitBreakerConfig
	log      *logger.Logger
}

// NewRegistry creates a registry; config may be nil to use the defaults
func NewRegistry(log *logger.Logger, config func(name string) CircuitBreakerConfig) *Registry {
	if config == nil {
		config = DefaultCircuitBreakerConfig
	}
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
		log:      log,
	}
}

// Get returns the breaker for name
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(r.config(name), r.log)
		r.breakers[name] = cb
	}
	return cb
}

// Snapshot returns the stats of every breaker, keyed by name
func (r *Registry) Snapshot() map[string]Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Stats, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.Stats()
	}
	return out
}

// Open lists the providers whose breaker is currently open, sorted
func (r *Registry) Open() []string {
	var open []string
	for name, s := range r.Snapshot() {
		if s.State == StateOpen {
			open = append(open, name)
		}
	}
	sort.Strings(open)
	return open
}
