// internal/common/database/health.go
package database

import (
	"context"
	"sync"
	"time"
)

// Checker is anything the readiness probe can ping.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a plain function, e.g. a Zeebe topology request.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Readiness pings the registered backends in registration order.
type Readiness struct {
	timeout time.Duration

	mu     sync.Mutex
	names  []string
	checks map[string]Checker
}

func NewReadiness(timeout time.Duration) *Readiness {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Readiness{timeout: timeout, checks: map[string]Checker{}}
}

// Add registers c under name. Registering a name twice replaces the checker.
func (r *Readiness) Add(name string, c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.checks[name]; !ok {
		r.names = append(r.names, name)
	}
	r.checks[name] = c
}

// Check pings every backend and returns "ok" or the error text per name, and
// whether all of them answered.
func (r *Readiness) Check(ctx context.Context) (map[string]string, bool) {
	r.mu.Lock()
	names := append([]string(nil), r.names...)
	checks := make([]Checker, len(names))
	for i, n := range names {
		checks[i] = r.checks[n]
	}
	r.mu.Unlock()

	status := make(map[string]string, len(names))
	ready := true
	for i, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := checks[i].Ping(pingCtx)
		cancel()
		if err != nil {
			status[name] = err.Error()
			ready = false
			continue
		}
		status[name] = "ok"
	}
	return status, ready
}
