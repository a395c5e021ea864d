package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"catalog/harvester/internal/availability"
	"catalog/harvester/internal/catalog"
	"catalog/harvester/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCategories struct {
	refs []domain.CategoryRef
	err  error
}

func (f *fakeCategories) LoadCategories(context.Context) ([]domain.CategoryRef, error) {
	return f.refs, f.err
}

type fakeDetails struct {
	calls  [][]string
	detail *domain.CategoryDetail
	err    error
}

func (f *fakeDetails) GetCategoryDetail(_ context.Context, urlPath []string) (*domain.CategoryDetail, error) {
	f.calls = append(f.calls, urlPath)
	return f.detail, f.err
}

// fakePages serves pages per slug; pageFn may panic or cancel to simulate fatal failures.
type fakePages struct {
	pages  map[string][][]domain.RawListingEntry
	pageFn func(slug string, page int)
	calls  []string
}

func (f *fakePages) GetSearchPage(_ context.Context, slug string, pageNumber int) ([]domain.RawListingEntry, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s#%d", slug, pageNumber))
	if f.pageFn != nil {
		f.pageFn(slug, pageNumber)
	}
	pages := f.pages[slug]
	if pageNumber > len(pages) {
		return nil, nil
	}
	return pages[pageNumber-1], nil
}

type fakeAvailability struct {
	mu       sync.Mutex
	statuses map[string]string
	requests []string
}

func (f *fakeAvailability) GetAvailability(_ context.Context, skuID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, skuID)
	status, ok := f.statuses[skuID]
	if !ok {
		return "", errors.New("not found")
	}
	return status, nil
}

type fakeRecords struct {
	saved   map[string][]domain.ProductRecord
	failFor string
}

func (f *fakeRecords) SaveRecords(_ context.Context, destination string, records []domain.ProductRecord) error {
	if destination == f.failFor {
		return errors.New("write failed")
	}
	if f.saved == nil {
		f.saved = map[string][]domain.ProductRecord{}
	}
	f.saved[destination] = append([]domain.ProductRecord(nil), records...)
	return nil
}

func product(id, sku string) domain.RawListingEntry {
	entry := domain.RawListingEntry{
		"uniqueID": id,
		"name":     "Product " + id,
		"UserData": []any{map[string]any{"seo_url": "p/" + id}},
		"price":    []any{map[string]any{"usage": "Offer", "value": "199.99"}},
	}
	if sku != "" {
		entry["singleSKUCatalogEntryID"] = sku
	}
	return entry
}

type harness struct {
	categories   *fakeCategories
	details      *fakeDetails
	pages        *fakePages
	availability *fakeAvailability
	records      *fakeRecords
	opts         Options
}

func newHarness() *harness {
	return &harness{
		categories: &fakeCategories{},
		details: &fakeDetails{detail: &domain.CategoryDetail{
			CategoryID:   "cat-1",
			Title:        "Smartphones",
			RemoteSPAURL: "/electronics/phones/smartphones",
		}},
		pages:        &fakePages{pages: map[string][][]domain.RawListingEntry{}},
		availability: &fakeAvailability{statuses: map[string]string{}},
		records:      &fakeRecords{},
		opts: Options{
			OutputDestination: "out.csv",
			CrashDestination:  "crash_save.csv",
		},
	}
}

func (h *harness) service() *Service {
	return NewService(
		h.categories,
		h.details,
		catalog.NewPaginator(h.pages, 3, catalog.SkipFailedPage),
		catalog.NewNormalizer("https://www.example.com/"),
		availability.NewEnricher(h.availability, 4, 10),
		h.records,
		h.opts,
		"run-test",
	)
}

func TestRunSkipsRowsWithMissingOrInvalidAEMURL(t *testing.T) {
	h := newHarness()
	h.categories.refs = []domain.CategoryRef{
		{AEMURL: ""},
		{AEMURL: "   "},
		{AEMURL: "///"},
		{AEMURL: "/cat/phones/smartphones"},
	}
	h.pages.pages["smartphones"] = [][]domain.RawListingEntry{{product("u1", "sku-1")}}
	h.availability.statuses["sku-1"] = domain.StatusImmediatelyAvailable

	summary, err := h.service().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"cat", "phones", "smartphones"}}, h.details.calls)
	assert.Equal(t, 3, summary.Skipped)
	assert.Equal(t, 1, summary.Categories)
	assert.Equal(t, "out.csv", summary.Destination)

	saved := h.records.saved["out.csv"]
	require.Len(t, saved, 1)
	assert.Equal(t, "sku-1", saved[0].SingleSKUCatalogEntryID)
	assert.Equal(t, "Άμεσα διαθέσιμο", saved[0].AvailabilityStatus)
	assert.Equal(t, "https://www.example.com/p/u1", saved[0].Link)
	assert.Equal(t, "cat-1", saved[0].CategoryID)
	assert.Equal(t, []string{"sku-1"}, h.availability.requests)
}

func TestRunPreservesDiscoveryOrderAndFetchesEachSKUOnce(t *testing.T) {
	h := newHarness()
	h.categories.refs = []domain.CategoryRef{{AEMURL: "/c/a"}, {AEMURL: "/c/b"}}
	h.pages.pages["a"] = [][]domain.RawListingEntry{
		{product("a1", "sku-1"), product("a2", "sku-2")},
		{product("a3", "")},
	}
	h.pages.pages["b"] = [][]domain.RawListingEntry{{product("b1", "sku-1"), product("b2", "sku-3")}}
	h.availability.statuses = map[string]string{
		"sku-1": domain.StatusExhausted,
		"sku-2": "WEIRD_CODE",
	}

	summary, err := h.service().Run(context.Background())
	require.NoError(t, err)

	saved := h.records.saved["out.csv"]
	ids := make([]string, 0, len(saved))
	for _, r := range saved {
		ids = append(ids, r.UniqueID)
	}
	assert.Equal(t, []string{"a1", "a2", "a3", "b1", "b2"}, ids)

	assert.Equal(t, "Εξαντλημένο", saved[0].AvailabilityStatus)
	assert.Equal(t, "WEIRD_CODE", saved[1].AvailabilityStatus)
	assert.Equal(t, domain.NotAvailable, saved[2].AvailabilityStatus)
	assert.Equal(t, "Εξαντλημένο", saved[3].AvailabilityStatus)
	assert.Equal(t, domain.NotAvailable, saved[4].AvailabilityStatus)

	assert.ElementsMatch(t, []string{"sku-1", "sku-2", "sku-3"}, h.availability.requests)
	assert.Equal(t, 3, summary.UniqueSKUs)
	assert.Equal(t, 5, summary.Records)
}

func TestRunDetailFailureFallsBackToSentinels(t *testing.T) {
	h := newHarness()
	h.details.detail = nil
	h.details.err = errors.New("fetch failed")
	h.categories.refs = []domain.CategoryRef{{AEMURL: "/content/site/tv/oled"}}
	h.pages.pages["oled"] = [][]domain.RawListingEntry{{product("t1", "")}}

	_, err := h.service().Run(context.Background())
	require.NoError(t, err)

	saved := h.records.saved["out.csv"]
	require.Len(t, saved, 1)
	assert.Equal(t, domain.Unknown, saved[0].CategoryID)
	assert.Equal(t, domain.NotAvailable, saved[0].CategoryTitle)
	assert.Equal(t, []string{"oled#1", "oled#2"}, h.pages.calls)
}

func TestRunHonoursLimitBeforeEachPageAndCategory(t *testing.T) {
	h := newHarness()
	h.opts.Limit = 3
	h.categories.refs = []domain.CategoryRef{{AEMURL: "/c/a"}, {AEMURL: "/c/b"}}
	h.pages.pages["a"] = [][]domain.RawListingEntry{
		{product("a1", ""), product("a2", "")},
		{product("a3", ""), product("a4", "")},
		{product("a5", "")},
	}
	h.pages.pages["b"] = [][]domain.RawListingEntry{{product("b1", "")}}

	summary, err := h.service().Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, h.records.saved["out.csv"], 4)
	assert.Equal(t, []string{"a#1", "a#2"}, h.pages.calls)
	assert.True(t, summary.LimitHit)
}

func TestRunCrashSavesAccumulatedRecordsOnPanic(t *testing.T) {
	h := newHarness()
	h.categories.refs = []domain.CategoryRef{{AEMURL: "/c/a"}, {AEMURL: "/c/b"}}
	h.pages.pages["a"] = [][]domain.RawListingEntry{{
		product("a1", "sku-1"), product("a2", "sku-2"), product("a3", ""), product("a4", ""), product("a5", ""),
	}}
	h.pages.pageFn = func(slug string, page int) {
		if slug == "b" {
			panic("unexpected payload")
		}
	}

	summary, err := h.service().Run(context.Background())

	var fatal *FatalRunError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 5, fatal.Saved)
	assert.Equal(t, 5, summary.Records)

	crash := h.records.saved["crash_save.csv"]
	require.Len(t, crash, 5)
	for _, r := range crash {
		assert.Equal(t, domain.NotAvailable, r.AvailabilityStatus)
	}
	assert.NotContains(t, h.records.saved, "out.csv")
	assert.Empty(t, h.availability.requests)
}

func TestRunCrashSavesOnCancellation(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.categories.refs = []domain.CategoryRef{{AEMURL: "/c/a"}}
	h.pages.pages["a"] = [][]domain.RawListingEntry{
		{product("a1", ""), product("a2", "")},
		{product("a3", "")},
	}
	h.pages.pageFn = func(_ string, page int) {
		if page == 2 {
			cancel()
		}
	}

	_, err := h.service().Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, h.records.saved["crash_save.csv"], 3)
}

func TestRunWithoutRecordsSkipsCrashSave(t *testing.T) {
	h := newHarness()
	h.categories.err = errors.New("menu file missing")

	_, err := h.service().Run(context.Background())

	var fatal *FatalRunError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 0, fatal.Saved)
	assert.Empty(t, h.records.saved)
}

func TestRunCrashSavesWhenOutputWriteFails(t *testing.T) {
	h := newHarness()
	h.records.failFor = "out.csv"
	h.categories.refs = []domain.CategoryRef{{AEMURL: "/c/a"}}
	h.pages.pages["a"] = [][]domain.RawListingEntry{{product("a1", "sku-1")}}
	h.availability.statuses["sku-1"] = domain.StatusOnOrder

	_, err := h.service().Run(context.Background())
	require.Error(t, err)

	crash := h.records.saved["crash_save.csv"]
	require.Len(t, crash, 1)
	assert.Equal(t, "Σε παραγγελία", crash[0].AvailabilityStatus)
}

func TestMerge(t *testing.T) {
	records := []domain.ProductRecord{
		{SKU: "sku-1"},
		{SKU: "sku-2"},
		{SKU: ""},
		{SKU: "sku-missing"},
	}
	Merge(records, map[string]string{
		"sku-1": domain.StatusExhausted,
		"sku-2": domain.NotAvailable,
		"":      domain.StatusExhausted,
	})

	assert.Equal(t, "Εξαντλημένο", records[0].AvailabilityStatus)
	assert.Equal(t, domain.NotAvailable, records[1].AvailabilityStatus)
	assert.Equal(t, domain.NotAvailable, records[2].AvailabilityStatus)
	assert.Equal(t, domain.NotAvailable, records[3].AvailabilityStatus)
}

func TestDestinationName(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "Example_products_2026-10-17_09-30.csv",
		DestinationName("{brand_name}_products_{timestamp}.csv", "Example", "2006-01-02_15-04", now))
}
