package services

import (
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"dorm/internal/cache"
	"dorm/internal/core"
	applog "dorm/internal/log"
	"dorm/internal/report"
	"dorm/internal/roster"
)

// SnapshotSource provides the roster a report is computed from.
type SnapshotSource interface {
	Snapshot() roster.Snapshot
}

// ReportService computes dashboard reports. Results are cached per roster
// version and calendar day, since every figure of a report depends only on
// the active roster and the day it is computed on.
type ReportService struct {
	source SnapshotSource
	cache  cache.Cache[core.Report]
	group  singleflight.Group
	logger *applog.Logger
}

// NewReportService creates a report service. A nil cache disables caching.
func NewReportService(source SnapshotSource, c cache.Cache[core.Report], logger *applog.Logger) *ReportService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ReportService{
		source: source,
		cache:  c,
		logger: logger.WithComponent(applog.ComponentReport),
	}
}

// ReportKey returns the cache key of the report for version on now's day.
func ReportKey(version uint64, now time.Time) string {
	return fmt.Sprintf("report:%d:%s", version, now.Format("2006-01-02"))
}

// Report returns the report of the active roster at now.
func (s *ReportService) Report(now time.Time) core.Report {
	snap := s.source.Snapshot()
	if s.cache == nil {
		return report.Compute(snap.Active, now)
	}

	key := ReportKey(snap.Version, now)
	if rep, ok := s.cache.Get(key); ok {
		rep.GeneratedAt = now
		return rep
	}

	v, _, shared := s.group.Do(key, func() (any, error) {
		rep := report.Compute(snap.Active, now)
		s.cache.Set(key, rep)
		s.logger.Debug("Report computed",
			applog.FieldVersion, snap.Version,
			"students", len(snap.Active))
		return rep, nil
	})
	rep := v.(core.Report)
	if shared {
		rep.GeneratedAt = now
	}
	return rep
}

// Summary returns the head counts of the active roster at now.
func (s *ReportService) Summary(now time.Time) core.Summary {
	return s.Report(now).Summary
}

// CacheStats reports cache effectiveness when the cache counts hits.
func (s *ReportService) CacheStats() (cache.Stats, bool) {
	sr, ok := s.cache.(cache.StatsReporter)
	if !ok {
		return cache.Stats{}, false
	}
	return sr.Stats(), true
}
