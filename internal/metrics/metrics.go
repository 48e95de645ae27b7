// Package metrics exposes the backfill's Prometheus instrumentation.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// RowsTotal counts rows by final disposition.
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_rows_total",
			Help: "Total rows processed by outcome",
		},
		[]string{"outcome"}, // inserted, duplicate, invalid, fact_inserted
	)

	// ChunksTotal counts chunks by the load path that completed them.
	ChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_chunks_total",
			Help: "Total chunks processed by load path",
		},
		[]string{"path"}, // bulk, duplicate_skip, row_fallback
	)

	// ChunkDurationSeconds observes per-chunk load latency.
	ChunkDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backfill_chunk_duration_seconds",
			Help:    "Duration of chunk loads",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~163s
		},
		[]string{"path"},
	)

	// MonthsTotal counts month partitions by terminal state.
	MonthsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_months_total",
			Help: "Total month partitions by terminal state",
		},
		[]string{"status"}, // completed, failed, skipped
	)

	// DownloadDurationSeconds observes source-file download latency.
	DownloadDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backfill_download_duration_seconds",
			Help:    "Duration of source file downloads",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		},
	)
)

// Serve starts the /metrics endpoint in the background and shuts it down
// when ctx is cancelled.
func Serve(ctx context.Context, port int, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Info().Int("port", port).Msg("metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
