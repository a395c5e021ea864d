// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_fetch_attempts_total",
			Help: "HTTP fetch attempts, labeled by result.",
		},
		[]string{"result"},
	)

	fetchesExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_fetches_exhausted_total",
			Help: "Fetches that failed after every retry.",
		},
	)

	categoryPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_category_pages_total",
			Help: "Category search pages, labeled by outcome (entries, empty, failed).",
		},
		[]string{"outcome"},
	)

	categoriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_categories_total",
			Help: "Category traversals, labeled by how they ended.",
		},
		[]string{"outcome"},
	)

	availabilityLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_availability_lookups_total",
			Help: "Availability lookups, labeled by result.",
		},
		[]string{"result"},
	)

	recordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_records_total",
			Help: "Product records collected.",
		},
	)
)

// ObserveFetchAttempt counts one HTTP attempt.
func ObserveFetchAttempt(ok bool) {
	fetchAttemptsTotal.WithLabelValues(result(ok)).Inc()
}

// ObserveFetchExhausted counts a fetch that ran out of retries.
func ObserveFetchExhausted() {
	fetchesExhaustedTotal.Inc()
}

// ObservePage counts a category search page by outcome.
func ObservePage(outcome string) {
	categoryPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveCategory counts a finished category traversal.
func ObserveCategory(outcome string) {
	categoriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveAvailabilityLookup counts one SKU lookup.
func ObserveAvailabilityLookup(ok bool) {
	availabilityLookupsTotal.WithLabelValues(result(ok)).Inc()
}

// AddRecords adds n collected records.
func AddRecords(n int) {
	recordsTotal.Add(float64(n))
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done. An empty addr is a no-op.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("📈 Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
