package middleware

import (
	"net/http"
	"sync"
	"time"

	"KanariaGo/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CircuitState is the breaker state.
type CircuitState int

const (
	StateClosed   CircuitState = iota // normal
	StateOpen                         // tripped
	StateHalfOpen                     // probing
)

// CircuitBreakerConfig tunes one breaker.
type CircuitBreakerConfig struct {
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // counting window
	Timeout          time.Duration // open -> half-open delay
	FailureThreshold float64       // failure rate that trips
	MinRequestCount  uint32        // below this, never trip
	SuccessThreshold uint32        // consecutive successes to close again
}

// DefaultCircuitBreakerConfig returns the stock configuration.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxRequests:      10,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.5,
		MinRequestCount:  10,
		SuccessThreshold: 5,
	}
}

// CircuitBreaker guards one route group against cascading failures.
type CircuitBreaker struct {
	name   string
	config *CircuitBreakerConfig
	state  CircuitState
	counts *Counts
	mu     sync.RWMutex

	stateChangedAt time.Time
}

// Counts is the sliding tally for one window.
type Counts struct {
	Requests             uint32
	Successes            uint32
	Failures             uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFails     uint32
	LastResetTime        time.Time
}

// NewCircuitBreaker builds a breaker; nil config takes the defaults.
func NewCircuitBreaker(name string, config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}

	return &CircuitBreaker{
		name:           name,
		config:         config,
		state:          StateClosed,
		counts:         &Counts{LastResetTime: time.Now()},
		stateChangedAt: time.Now(),
	}
}

// Call runs fn through the breaker.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allowRequest() {
		return ErrCircuitBreakerOpen
	}

	err := fn()
	cb.recordResult(err == nil)
	return err
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.RLock()
	state := cb.state
	cb.mu.RUnlock()

	switch state {
	case StateClosed:
		return true
	case StateOpen:
		return cb.shouldAttemptReset()
	case StateHalfOpen:
		cb.mu.RLock()
		defer cb.mu.RUnlock()
		return cb.counts.Requests < cb.config.MaxRequests
	}

	return false
}

func (cb *CircuitBreaker) recordResult(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if time.Since(cb.counts.LastResetTime) > cb.config.Interval {
		cb.resetCounts()
	}

	cb.counts.Requests++

	if success {
		cb.counts.Successes++
		cb.counts.ConsecutiveSuccesses++
		cb.counts.ConsecutiveFails = 0

		if cb.state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
			cb.setState(StateClosed)
			logrus.Infof("[CircuitBreaker] %s recovered to CLOSED state", cb.name)
		}
	} else {
		cb.counts.Failures++
		cb.counts.ConsecutiveFails++
		cb.counts.ConsecutiveSuccesses = 0

		if cb.shouldTrip() {
			cb.setState(StateOpen)
			logrus.Warnf("[CircuitBreaker] %s tripped to OPEN state", cb.name)
		}
	}
}

func (cb *CircuitBreaker) shouldTrip() bool {
	if cb.counts.Requests < cb.config.MinRequestCount {
		return false
	}

	failureRate := float64(cb.counts.Failures) / float64(cb.counts.Requests)
	return failureRate >= cb.config.FailureThreshold
}

func (cb *CircuitBreaker) shouldAttemptReset() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if time.Since(cb.stateChangedAt) > cb.config.Timeout {
		cb.setState(StateHalfOpen)
		logrus.Infof("[CircuitBreaker] %s changed to HALF_OPEN state", cb.name)
		return true
	}

	return false
}

func (cb *CircuitBreaker) setState(state CircuitState) {
	cb.state = state
	cb.stateChangedAt = time.Now()
	cb.resetCounts()
}

func (cb *CircuitBreaker) resetCounts() {
	cb.counts = &Counts{LastResetTime: time.Now()}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats returns a snapshot for the monitor endpoint.
func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	stateStr := "CLOSED"
	switch cb.state {
	case StateOpen:
		stateStr = "OPEN"
	case StateHalfOpen:
		stateStr = "HALF_OPEN"
	}

	failureRate := 0.0
	if cb.counts.Requests > 0 {
		failureRate = float64(cb.counts.Failures) / float64(cb.counts.Requests) * 100
	}

	return map[string]interface{}{
		"name":                  cb.name,
		"state":                 stateStr,
		"requests":              cb.counts.Requests,
		"successes":             cb.counts.Successes,
		"failures":              cb.counts.Failures,
		"failure_rate":          failureRate,
		"consecutive_successes": cb.counts.ConsecutiveSuccesses,
		"consecutive_fails":     cb.counts.ConsecutiveFails,
		"state_changed_at":      cb.stateChangedAt.Format("2006-01-02 15:04:05"),
	}
}

// ErrCircuitBreakerOpen is returned when the breaker rejects a call.
var ErrCircuitBreakerOpen = &CircuitBreakerError{Message: "circuit breaker is open"}

type CircuitBreakerError struct {
	Message string
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// GlobalCircuitBreakerManager keys breakers by route group.
type GlobalCircuitBreakerManager struct {
	breakers map[string]*CircuitBreaker
	mu       sync.RWMutex
}

var globalCircuitBreakerManager *GlobalCircuitBreakerManager

// InitGlobalCircuitBreaker installs breakers for the validation routes.
func InitGlobalCircuitBreaker() {
	globalCircuitBreakerManager = &GlobalCircuitBreakerManager{
		breakers: make(map[string]*CircuitBreaker),
	}

	config := DefaultCircuitBreakerConfig()

	globalCircuitBreakerManager.AddBreaker("run", config)
	globalCircuitBreakerManager.AddBreaker("problem-rows", config)
	globalCircuitBreakerManager.AddBreaker("stats", config)
	globalCircuitBreakerManager.AddBreaker("default", config)
}

// AddBreaker registers a breaker under a route-group name.
func (m *GlobalCircuitBreakerManager) AddBreaker(name string, config *CircuitBreakerConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakers[name] = NewCircuitBreaker(name, config)
}

// GetBreaker returns the breaker for a route group, falling back to default.
func (m *GlobalCircuitBreakerManager) GetBreaker(name string) *CircuitBreaker {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if breaker, ok := m.breakers[name]; ok {
		return breaker
	}
	return m.breakers["default"]
}

// CircuitBreakerMiddleware rejects requests while the route's breaker is
// open and feeds response status codes back into it.
func CircuitBreakerMiddleware() gin.HandlerFunc {
	if globalCircuitBreakerManager == nil {
		InitGlobalCircuitBreaker()
	}

	return func(c *gin.Context) {
		breakerName := routeGroupByPath(c.Request.URL.Path)
		breaker := globalCircuitBreakerManager.GetBreaker(breakerName)

		if !breaker.allowRequest() {
			logrus.Warnf("[CircuitBreaker] Request blocked by circuit breaker: %s", breakerName)
			c.JSON(http.StatusServiceUnavailable,
				common.NewErrorResponse(503, "Service Unavailable - Circuit breaker is open"))
			c.Abort()
			return
		}

		c.Next()

		success := c.Writer.Status() < 500
		breaker.recordResult(success)
	}
}

// GetAllCircuitBreakerStats snapshots every breaker for the monitor endpoint.
func GetAllCircuitBreakerStats() map[string]interface{} {
	if globalCircuitBreakerManager == nil {
		return nil
	}

	globalCircuitBreakerManager.mu.RLock()
	defer globalCircuitBreakerManager.mu.RUnlock()

	stats := make(map[string]interface{})
	for name, breaker := range globalCircuitBreakerManager.breakers {
		stats[name] = breaker.GetStats()
	}

	return stats
}
