package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faretrack_searches_total",
		Help: "Total search requests handled",
	})

	ProviderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faretrack_provider_failures_total",
		Help: "Provider search failures",
	}, []string{"provider"})

	FxCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faretrack_fx_cache_hits_total",
		Help: "FX daily-rate lookups served from the local cache",
	})

	FxCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faretrack_fx_cache_misses_total",
		Help: "FX daily-rate lookups that required an upstream fetch",
	})

	HistoryRowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faretrack_history_rows_written_total",
		Help: "Price observations appended to the history store",
	})
)
