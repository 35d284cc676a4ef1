package breaker

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vizora/signage/pkg/logger"
	"github.com/vizora/signage/pkg/tracing"
)

// Settings shared by every breaker of a registry
type Settings struct {
	// FailureThreshold failures inside a rolling FailureWindow open the circuit
	FailureThreshold uint32
	FailureWindow    time.Duration
	// ResetTimeout is how long an open circuit waits before probing
	ResetTimeout time.Duration
	// SuccessThreshold consecutive probe successes close the circuit
	SuccessThreshold uint32
}

func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: 3,
		FailureWindow:    60 * time.Second,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 2,
	}
}

// permanentError marks a failure that says nothing about the remote side
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the breaker does not count it as a failure.
// The caller still receives err, reachable through errors.As.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isSuccessful(err error) bool {
	var p *permanentError
	return err == nil || errors.As(err, &p)
}

// failureLog keeps the failure times of one breaker inside the rolling window
type failureLog struct {
	mu    sync.Mutex
	times []time.Time
}

// record adds a failure at now and returns how many fall inside window
func (l *failureLog) record(now time.Time, window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-window)
	kept := l.times[:0]
	for _, t := range l.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.times = append(kept, now)
	return len(l.times)
}

func (l *failureLog) clear() {
	l.mu.Lock()
	l.times = l.times[:0]
	l.mu.Unlock()
}

// Stats is a snapshot of one named breaker
type Stats struct {
	Name   string
	State  gobreaker.State
	Counts gobreaker.Counts
}

// Registry lazily creates one breaker per name. It is safe for concurrent
// use, so the scheduler and request paths can share breaker state.
type Registry struct {
	settings Settings
	logger   logger.Logger
	now      func() time.Time

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewRegistry(settings Settings, log logger.Logger) *Registry {
	defaults := DefaultSettings()
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = defaults.FailureThreshold
	}
	if settings.FailureWindow <= 0 {
		settings.FailureWindow = defaults.FailureWindow
	}
	if settings.ResetTimeout <= 0 {
		settings.ResetTimeout = defaults.ResetTimeout
	}
	if settings.SuccessThreshold == 0 {
		settings.SuccessThreshold = defaults.SuccessThreshold
	}

	return &Registry{
		settings: settings,
		logger:   log,
		now:      time.Now,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// IsOpen reports whether err was produced by a breaker refusing the call
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (r *Registry) get(name string) *gobreaker.CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok = r.breakers[name]; ok {
		return cb
	}
	cb = r.newBreaker(name)
	r.breakers[name] = cb
	return cb
}

func (r *Registry) newBreaker(name string) *gobreaker.CircuitBreaker {
	threshold := int(r.settings.FailureThreshold)
	window := r.settings.FailureWindow
	failures := &failureLog{}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: name,
		// half-open admits this many probes and closes once all succeed
		MaxRequests: r.settings.SuccessThreshold,
		// counts are never cleared on a fixed tick, failureLog owns the window
		Interval: 0,
		Timeout:  r.settings.ResetTimeout,
		// called on every failure while closed
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures.record(r.now(), window) >= threshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateClosed || to == gobreaker.StateOpen {
				failures.clear()
			}
			fields := map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}
			if to == gobreaker.StateOpen {
				r.logger.WithFields(fields).Warn("Circuit breaker opened")
			} else {
				r.logger.WithFields(fields).Info("Circuit breaker state changed")
			}
			tracing.RecordCircuitStateChange(name, to.String())
		},
	})
}

// Execute runs fn through the named breaker. An open circuit returns
// gobreaker.ErrOpenState without calling fn.
func (r *Registry) Execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	return r.get(name).Execute(fn)
}

// ExecuteWithFallback returns fallback's result when fn fails or the
// circuit refuses the call
func (r *Registry) ExecuteWithFallback(name string, fn func() (interface{}, error), fallback func(error) (interface{}, error)) (interface{}, error) {
	result, err := r.Execute(name, fn)
	if err == nil {
		return result, nil
	}

	r.logger.WithFields(map[string]interface{}{
		"breaker": name,
		"open":    IsOpen(err),
	}).Warn(fmt.Sprintf("Circuit breaker call failed, using fallback: %v", err))

	return fallback(err)
}

// State of the named breaker. Unknown names are closed.
func (r *Registry) State(name string) gobreaker.State {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

func (r *Registry) Stats() []Stats {
	r.mu.RLock()
	stats := make([]Stats, 0, len(r.breakers))
	for name, cb := range r.breakers {
		stats = append(stats, Stats{Name: name, State: cb.State(), Counts: cb.Counts()})
	}
	r.mu.RUnlock()

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Reset forgets the named breaker so the next call starts closed.
// It reports whether the breaker existed.
func (r *Registry) Reset(name string) bool {
	r.mu.Lock()
	_, ok := r.breakers[name]
	delete(r.breakers, name)
	r.mu.Unlock()

	if ok {
		r.logger.WithField("breaker", name).Info("Circuit breaker reset")
	}
	return ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}
