package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog/harvester/internal/availability"
	"catalog/harvester/internal/catalog"
	"catalog/harvester/internal/domain"
	"catalog/harvester/internal/metrics"
	"catalog/harvester/internal/repository"

	log "github.com/sirupsen/logrus"
)

// DetailSource looks up a category's model data
type DetailSource interface {
	GetCategoryDetail(ctx context.Context, urlPath []string) (*domain.CategoryDetail, error)
}

// Options holds the per-run settings of the orchestrator
type Options struct {
	// Limit stops collection once this many records exist. Zero disables it.
	Limit             int
	OutputDestination string
	CrashDestination  string
}

// Summary describes a finished (or crashed) run
type Summary struct {
	RunID       string
	Categories  int
	Skipped     int
	Aborted     int
	Records     int
	UniqueSKUs  int
	Destination string
	LimitHit    bool
}

// FatalRunError is returned when collection failed. Records gathered before
// the failure were written to the crash destination when Saved is positive.
type FatalRunError struct {
	Err   error
	Saved int
}

func (e *FatalRunError) Error() string {
	return fmt.Sprintf("run failed after collecting %d records: %v", e.Saved, e.Err)
}

func (e *FatalRunError) Unwrap() error {
	return e.Err
}

type Service struct {
	categories repository.CategorySource
	details    DetailSource
	paginator  *catalog.Paginator
	normalizer *catalog.Normalizer
	enricher   *availability.Enricher
	records    repository.RecordRepository
	opts       Options
	runID      string
}

func NewService(
	categories repository.CategorySource,
	details DetailSource,
	paginator *catalog.Paginator,
	normalizer *catalog.Normalizer,
	enricher *availability.Enricher,
	records repository.RecordRepository,
	opts Options,
	runID string,
) *Service {
	return &Service{
		categories: categories,
		details:    details,
		paginator:  paginator,
		normalizer: normalizer,
		enricher:   enricher,
		records:    records,
		opts:       opts,
		runID:      runID,
	}
}

// Run walks every category, enriches the records with availability and saves
// them. On failure whatever was collected goes to the crash destination.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: s.runID}
	var records []domain.ProductRecord

	err := s.collect(ctx, summary, &records)
	summary.Records = len(records)
	if err != nil {
		return summary, s.crashSave(ctx, records, err)
	}

	if err := s.records.SaveRecords(ctx, s.opts.OutputDestination, records); err != nil {
		return summary, s.crashSave(ctx, records, fmt.Errorf("failed to save output: %w", err))
	}
	summary.Destination = s.opts.OutputDestination

	return summary, nil
}

func (s *Service) collect(ctx context.Context, summary *Summary, records *[]domain.ProductRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during collection: %v", r)
		}
	}()

	refs, err := s.categories.LoadCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	var skuIDs []string
	limitReached := func() bool {
		return s.opts.Limit > 0 && len(*records) >= s.opts.Limit
	}

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limitReached() {
			summary.LimitHit = true
			log.Infof("🛑 Reached limit of %d records", s.opts.Limit)
			break
		}

		if strings.TrimSpace(ref.AEMURL) == "" {
			summary.Skipped++
			log.Warnf("Skipping row %d/%d: missing AEM_URL", i+1, len(refs))
			continue
		}
		urlPath := ref.URLPath()
		if len(urlPath) == 0 {
			summary.Skipped++
			log.Warnf("Skipping row %d/%d: invalid AEM_URL '%s'", i+1, len(refs), ref.AEMURL)
			continue
		}

		detail, err := s.details.GetCategoryDetail(ctx, urlPath)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warnf("⚠️ No category detail for %s: %v", strings.Join(urlPath, "/"), err)
			detail = nil
		}
		category := domain.NewCategoryContext(detail)

		log.WithField("run_id", s.runID).Infof("🔄 Collecting product info %d/%d (%s)", i+1, len(refs), ref.Slug())

		before := len(*records)
		result, err := s.paginator.Walk(ctx, ref.Slug(), limitReached, func(entry domain.RawListingEntry) {
			record := s.normalizer.Normalize(entry, category)
			*records = append(*records, record)
			if record.SKU != "" {
				skuIDs = append(skuIDs, record.SKU)
			}
		})
		metrics.AddRecords(len(*records) - before)
		if err != nil {
			return err
		}

		metrics.ObserveCategory(string(result.Outcome))
		summary.Categories++
		switch result.Outcome {
		case catalog.OutcomeAborted:
			summary.Aborted++
		case catalog.OutcomeLimited:
			summary.LimitHit = true
		}
		log.Infof("✅ Category %s: %d pages, %d records (%s)", ref.Slug(), result.PagesFetched, result.Entries, result.Outcome)
	}

	log.Info("Gathering availability statuses...")
	statuses := s.enricher.Enrich(ctx, skuIDs)
	summary.UniqueSKUs = len(statuses)

	Merge(*records, statuses)
	return ctx.Err()
}

// Merge sets the translated availability on every record in place. Records
// without a SKU, or whose SKU has no status, get N/A.
func Merge(records []domain.ProductRecord, statuses map[string]string) {
	for i := range records {
		status, ok := statuses[records[i].SKU]
		if records[i].SKU == "" || !ok {
			records[i].AvailabilityStatus = domain.NotAvailable
			continue
		}
		records[i].AvailabilityStatus = domain.TranslateAvailability(status)
	}
}

func (s *Service) crashSave(ctx context.Context, records []domain.ProductRecord, cause error) error {
	log.Errorf("❌ An error occurred: %v", cause)

	fatal := &FatalRunError{Err: cause}
	if len(records) == 0 {
		return fatal
	}

	for i := range records {
		if records[i].AvailabilityStatus == "" {
			records[i].AvailabilityStatus = domain.NotAvailable
		}
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()

	if err := s.records.SaveRecords(saveCtx, s.opts.CrashDestination, records); err != nil {
		log.Errorf("❌ Crash save to %s failed: %v", s.opts.CrashDestination, err)
		fatal.Err = errors.Join(cause, fmt.Errorf("crash save failed: %w", err))
		return fatal
	}

	fatal.Saved = len(records)
	log.Warnf("💾 Saved %d partial records to %s", len(records), s.opts.CrashDestination)
	return fatal
}

// DestinationName fills {brand_name} and {timestamp} in an output file template
func DestinationName(template, brandName, timestampLayout string, now time.Time) string {
	return strings.NewReplacer(
		"{brand_name}", brandName,
		"{timestamp}", now.Format(timestampLayout),
	).Replace(template)
}
