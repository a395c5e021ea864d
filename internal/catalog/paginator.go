package catalog

import (
	"context"

	"catalog/harvester/internal/domain"
	"catalog/harvester/internal/metrics"

	log "github.com/sirupsen/logrus"
)

// PageSource fetches one page of a category search
type PageSource interface {
	GetSearchPage(ctx context.Context, slug string, pageNumber int) ([]domain.RawListingEntry, error)
}

// FailedPagePolicy decides which page is requested after a failed one
type FailedPagePolicy int

const (
	// SkipFailedPage moves on to the next page number. A page that keeps
	// failing is lost, but a single bad page cannot stall the category.
	SkipFailedPage FailedPagePolicy = iota
	// RetrySamePage requests the failed page number again.
	RetrySamePage
)

// ParseFailedPagePolicy maps a config value to a policy. Unknown values select SkipFailedPage.
func ParseFailedPagePolicy(s string) FailedPagePolicy {
	if s == "retry" {
		return RetrySamePage
	}
	return SkipFailedPage
}

// Outcome is the terminal state of one category traversal
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeAborted Outcome = "aborted"
	OutcomeLimited Outcome = "limited"
)

// WalkResult summarizes one category traversal
type WalkResult struct {
	Outcome      Outcome
	PagesFetched int
	Entries      int
}

type paginationState struct {
	pageNumber          int
	consecutiveFailures int
}

// Paginator walks the search pages of one category at a time
type Paginator struct {
	source      PageSource
	maxFailures int
	policy      FailedPagePolicy
}

func NewPaginator(source PageSource, maxConsecutiveFailures int, policy FailedPagePolicy) *Paginator {
	if maxConsecutiveFailures <= 0 {
		maxConsecutiveFailures = 3
	}
	return &Paginator{
		source:      source,
		maxFailures: maxConsecutiveFailures,
		policy:      policy,
	}
}

// Walk requests pages 1, 2, ... for slug and hands every entry to yield, until a
// page comes back empty (done), maxFailures pages in a row fail (aborted), or
// stop reports true before a page is requested (limited). stop may be nil.
// The only error returned is the context's.
func (p *Paginator) Walk(
	ctx context.Context,
	slug string,
	stop func() bool,
	yield func(domain.RawListingEntry),
) (WalkResult, error) {
	state := paginationState{pageNumber: 1}
	result := WalkResult{}
	logger := log.WithField("category", slug)

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if stop != nil && stop() {
			result.Outcome = OutcomeLimited
			return result, nil
		}

		entries, err := p.source.GetSearchPage(ctx, slug, state.pageNumber)
		result.PagesFetched++

		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			metrics.ObservePage("failed")
			state.consecutiveFailures++
			logger.WithField("page", state.pageNumber).Warnf("⚠️ Failed to fetch category page %d for '%s' (%d/%d)",
				state.pageNumber, slug, state.consecutiveFailures, p.maxFailures)

			if state.consecutiveFailures >= p.maxFailures {
				logger.Errorf("❌ Stopping category '%s' after repeated page fetch failures", slug)
				result.Outcome = OutcomeAborted
				return result, nil
			}
			if p.policy == SkipFailedPage {
				state.pageNumber++
			}
			continue
		}

		state.consecutiveFailures = 0
		if len(entries) == 0 {
			metrics.ObservePage("empty")
			result.Outcome = OutcomeDone
			return result, nil
		}

		metrics.ObservePage("entries")
		for _, entry := range entries {
			yield(entry)
		}
		result.Entries += len(entries)
		state.pageNumber++
	}
}
