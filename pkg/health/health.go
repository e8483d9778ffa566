package health

import (
	"context"
	"time"
)

// NewHealthChecker creates a new health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		liveChecks:  make(map[string]CheckFunc),
		started:     time.Now(),
	}
}

// RegisterCheck registers a health check
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// RegisterReadinessCheck registers a readiness check
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.readyChecks[name] = check
}

// RegisterLivenessCheck registers a liveness check
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.liveChecks[name] = check
}

// Check performs all health checks
func (hc *HealthChecker) Check(ctx context.Context) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.performChecks(ctx, hc.checks)
}

// CheckReadiness performs readiness checks
func (hc *HealthChecker) CheckReadiness(ctx context.Context) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.performChecks(ctx, hc.readyChecks)
}

// CheckLiveness performs liveness checks
func (hc *HealthChecker) CheckLiveness(ctx context.Context) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.performChecks(ctx, hc.liveChecks)
}

func (hc *HealthChecker) performChecks(ctx context.Context, checksMap map[string]CheckFunc) Response {
	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checksMap)),
		Uptime:    time.Since(hc.started),
	}

	for name, checkFunc := range checksMap {
		start := time.Now()
		check := checkFunc(ctx)
		check.Duration = time.Since(start)
		check.LastChecked = start
		if check.Name == "" {
			check.Name = name
		}

		response.Checks[name] = check

		// Worst status wins
		if check.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if check.Status == StatusDegraded && response.Status != StatusUnhealthy {
			response.Status = StatusDegraded
		}
	}

	return response
}
