package store

import (
	"context"
	"time"
)

const healthKey = ".gfnkit-health"

// SlowProbe is the probe latency above which a reachable store is reported
// degraded.
const SlowProbe = 2 * time.Second

// Status is the reachability of an archive store.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Health is the result of probing one archive store.
type Health struct {
	Store   string        `json:"store"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
}

// CheckHealth probes s with an existence check on a reserved key.
func CheckHealth(ctx context.Context, name string, s Store) Health {
	h := Health{Store: name, Status: StatusUp}
	if s == nil {
		h.Status = StatusDown
		h.Message = "store not configured"
		return h
	}
	start := time.Now()
	_, err := s.Exists(ctx, healthKey)
	h.Latency = time.Since(start)
	switch {
	case err != nil:
		h.Status = StatusDown
		h.Message = err.Error()
	case h.Latency > SlowProbe:
		h.Status = StatusDegraded
		h.Message = "slow probe"
	}
	return h
}

// Report aggregates store probes for one application.
type Report struct {
	Service string   `json:"service"`
	Version string   `json:"version,omitempty"`
	Status  Status   `json:"status"`
	Stores  []Health `json:"stores,omitempty"`
}

// NewReport returns an empty report with status up.
func NewReport(service, version string) *Report {
	return &Report{Service: service, Version: version, Status: StatusUp}
}

// Add records h. A down store marks the report down; a degraded one marks
// it degraded unless it is already down.
func (r *Report) Add(h Health) {
	r.Stores = append(r.Stores, h)
	switch h.Status {
	case StatusDown:
		r.Status = StatusDown
	case StatusDegraded:
		if r.Status != StatusDown {
			r.Status = StatusDegraded
		}
	}
}
