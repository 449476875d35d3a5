// Package services holds small supporting infrastructure used by the
// request surface: a circuit breaker guarding the judger's subprocess
// calls and a Prometheus metrics registry.
package services

import (
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerService wraps each whole judging run (compile plus every
// case) in a breaker that trips on repeated SystemErrors (compiler spawn
// failures, missing toolchain, scratch-directory collisions), the same settings
// shape as the teacher's ExecuteIsolateOperation.
type CircuitBreakerService struct {
	judge *gobreaker.CircuitBreaker
}

func NewCircuitBreakerService() *CircuitBreakerService {
	settings := gobreaker.Settings{
		Name:        "judge",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %q changed from %s to %s", name, from, to)
		},
	}
	return &CircuitBreakerService{judge: gobreaker.NewCircuitBreaker(settings)}
}

// ExecuteJudgeOperation runs operation through the judge breaker, returning
// its result if allowed, or the breaker's own error (gobreaker.ErrOpenState)
// if tripped.
func (cbs *CircuitBreakerService) ExecuteJudgeOperation(operation func() (any, error)) (any, error) {
	return cbs.judge.Execute(operation)
}

func (cbs *CircuitBreakerService) State() gobreaker.State {
	return cbs.judge.State()
}

func (cbs *CircuitBreakerService) IsHealthy() bool {
	return cbs.judge.State() != gobreaker.StateOpen
}
