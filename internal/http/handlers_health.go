package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleHealth reports liveness only.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	fail := func(name string, err error) {
		checks[name] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", fmt.Errorf("templates not loaded"))
	} else {
		checks["templates"] = "ok"
	}

	if s.roster == nil {
		fail("roster", fmt.Errorf("roster service not configured"))
	} else {
		checks["roster"] = "ok"
	}

	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			fail(c.Name, err)
			continue
		}
		checks[c.Name] = "ok"
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters and gauges in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_ms", "gauge", "Average response time in milliseconds",
		float64(traceMetrics.AverageResponseTime.Microseconds())/1000)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.Rejected)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("invalid_ip_attempts_total", "counter", "Client addresses that failed to parse", securityMetrics.InvalidIPAttempts)

	if s.roster != nil {
		snap := s.roster.Snapshot()
		stats := s.roster.Stats()
		metric("roster_mutations_total", "counter", "Committed roster mutations", stats.Mutations)
		metric("roster_persist_failures_total", "counter", "Snapshots that failed to persist", stats.PersistFailures)
		metric("roster_publish_failures_total", "counter", "Roster events that failed to publish", stats.PublishFailures)
		metric("roster_version", "gauge", "Current roster snapshot version", snap.Version)
		fmt.Fprintf(w, "# HELP roster_students Students per roster\n")
		fmt.Fprintf(w, "# TYPE roster_students gauge\n")
		fmt.Fprintf(w, "roster_students{roster=\"active\"} %d\n", len(snap.Active))
		fmt.Fprintf(w, "roster_students{roster=\"deleted\"} %d\n\n", len(snap.Deleted))
	}

	if s.reports != nil {
		if cs, ok := s.reports.CacheStats(); ok {
			metric("report_cache_hits_total", "counter", "Report cache hits", cs.Hits)
			metric("report_cache_misses_total", "counter", "Report cache misses", cs.Misses)
			metric("report_cache_entries", "gauge", "Current report cache entries", cs.Size)
		}
	}

	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.startedAt).Seconds()))
}
