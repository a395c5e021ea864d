// Package availability resolves stock status codes for SKUs with a bounded
// worker pool.
package availability

import (
	"context"
	"sync"
	"sync/atomic"

	"catalog/harvester/internal/domain"
	"catalog/harvester/internal/metrics"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const progressEvery = 10

// Source returns the raw availability code for one SKU
type Source interface {
	GetAvailability(ctx context.Context, skuID string) (string, error)
}

// Enricher fetches availability for many SKUs in sequential batches. Within a
// batch at most workers lookups run at once, and a batch fully drains before
// the next one starts.
type Enricher struct {
	source    Source
	workers   int
	batchSize int
}

func NewEnricher(source Source, workers, batchSize int) *Enricher {
	if workers <= 0 {
		workers = 12
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Enricher{
		source:    source,
		workers:   workers,
		batchSize: batchSize,
	}
}

// Enrich returns one raw status per distinct non-empty SKU. A failed lookup
// maps that SKU to N/A and never affects the others.
func (e *Enricher) Enrich(ctx context.Context, skuIDs []string) map[string]string {
	unique := Unique(skuIDs)
	if len(unique) == 0 {
		return map[string]string{}
	}

	statuses := make(map[string]string, len(unique))
	var mu sync.Mutex
	var completed atomic.Int64

	for start := 0; start < len(unique); start += e.batchSize {
		batch := unique[start:min(start+e.batchSize, len(unique))]

		g := new(errgroup.Group)
		g.SetLimit(e.workers)
		for _, skuID := range batch {
			g.Go(func() error {
				status := e.lookup(ctx, skuID)

				mu.Lock()
				statuses[skuID] = status
				mu.Unlock()

				if n := completed.Add(1); n%progressEvery == 0 {
					log.Infof("Completed fetching availability for %d/%d SKU IDs", n, len(unique))
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	return statuses
}

func (e *Enricher) lookup(ctx context.Context, skuID string) (status string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("⚠️ Availability fetch failed for SKU ID %s: %v", skuID, r)
			metrics.ObserveAvailabilityLookup(false)
			status = domain.NotAvailable
		}
	}()

	status, err := e.source.GetAvailability(ctx, skuID)
	if err != nil {
		log.Warnf("⚠️ Availability fetch failed for SKU ID %s: %v", skuID, err)
		metrics.ObserveAvailabilityLookup(false)
		return domain.NotAvailable
	}

	metrics.ObserveAvailabilityLookup(true)
	log.Debugf("Fetched availability for SKU ID %s: %s", skuID, status)
	return status
}

// Unique drops empty SKUs and duplicates, keeping first-seen order
func Unique(skuIDs []string) []string {
	seen := make(map[string]struct{}, len(skuIDs))
	unique := make([]string, 0, len(skuIDs))
	for _, skuID := range skuIDs {
		if skuID == "" {
			continue
		}
		if _, ok := seen[skuID]; ok {
			continue
		}
		seen[skuID] = struct{}{}
		unique = append(unique, skuID)
	}
	return unique
}
