package service

import (
	"context"
	"sync"
	"time"
)

// Pinger is a backend the health check can reach.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

type HealthReport struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

func (r HealthReport) Healthy() bool {
	return r.Status == "ok"
}

type HealthService interface {
	Check(ctx context.Context) HealthReport
}

type healthService struct {
	backends map[string]Pinger
	timeout  time.Duration
}

func NewHealthService(backends map[string]Pinger) HealthService {
	return &healthService{backends: backends, timeout: 3 * time.Second}
}

// Check pings every backend in parallel.
func (h *healthService) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	report := HealthReport{Status: "ok", Components: make(map[string]string, len(h.backends))}

	for name, backend := range h.backends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := "ok"
			if err := backend.HealthCheck(ctx); err != nil {
				status = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Components[name] = status
			if status != "ok" {
				report.Status = "degraded"
			}
		}()
	}
	wg.Wait()

	return report
}
