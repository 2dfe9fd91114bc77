package usecase

import "time"

// RefreshMetrics receives refresh pipeline measurements.
type RefreshMetrics interface {
	ObservePartition(game, region, status string, duration time.Duration)
	IncEnrichmentFallback(game, region, reason string)
	IncEnrichmentRetry(class string)
	SetSnapshotItems(game, region string, count int)
	ObserveRun(game string, successCount, failureCount, skippedCount int, duration time.Duration)
}

type noopRefreshMetrics struct{}

func (noopRefreshMetrics) ObservePartition(string, string, string, time.Duration) {}
func (noopRefreshMetrics) IncEnrichmentFallback(string, string, string) {}
func (noopRefreshMetrics) IncEnrichmentRetry(string) {}
func (noopRefreshMetrics) SetSnapshotItems(string, string, int) {}
func (noopRefreshMetrics) ObserveRun(string, int, int, int, time.Duration) {}

func metricsOrNoop(m RefreshMetrics) RefreshMetrics {
	if m == nil {
		return noopRefreshMetrics{}
	}
	return m
}
