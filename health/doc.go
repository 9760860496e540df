// Package health reports whether fhirstore can serve reads.
//
// Checkers cover the dataset directory, memory use and cache statistics. An
// Aggregator runs them together and reports the worst status:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewDatasetChecker(fs, cfg.DataDir, reg))
//	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//	agg.Register(health.NewCacheChecker(caches))
//
//	report := agg.CheckAll(ctx)
//	if report.Status == health.StatusUnhealthy {
//	    ...
//	}
package health
