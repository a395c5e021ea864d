package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"catalog/harvester/internal/config"
	"catalog/harvester/internal/domain"

	log "github.com/sirupsen/logrus"
)

// CatalogClient talks to the retailer's category and availability endpoints
type CatalogClient interface {
	GetCategoryDetail(ctx context.Context, urlPath []string) (*domain.CategoryDetail, error)
	GetSearchPage(ctx context.Context, slug string, pageNumber int) ([]domain.RawListingEntry, error)
	GetAvailability(ctx context.Context, skuID string) (string, error)
}

type catalogClient struct {
	fetcher Fetcher
	api     config.APIConfig
}

func NewCatalogClient(fetcher Fetcher, api config.APIConfig) CatalogClient {
	return &catalogClient{
		fetcher: fetcher,
		api:     api,
	}
}

// GetCategoryDetail looks up the category model for the given path segments
func (c *catalogClient) GetCategoryDetail(ctx context.Context, urlPath []string) (*domain.CategoryDetail, error) {
	url := expand(c.api.ProductModelTemplate, map[string]string{
		"aem_path": strings.Join(urlPath, "/"),
	})

	raw, err := c.fetcher.FetchJSON(ctx, url)
	if err != nil {
		return nil, err
	}

	var body map[string]any
	if err := DecodeJSON(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode category detail: %w", err)
	}

	return &domain.CategoryDetail{
		CategoryID:   domain.TextOr(body["categoryId"], ""),
		Title:        domain.TextOr(body["title"], ""),
		RemoteSPAURL: domain.TextOr(body["remoteSPAUrl"], ""),
	}, nil
}

// GetSearchPage returns the listing entries of one search page. An empty
// slice means the category has no more pages.
func (c *catalogClient) GetSearchPage(ctx context.Context, slug string, pageNumber int) ([]domain.RawListingEntry, error) {
	url := expand(c.api.CategorySearchTemplate, map[string]string{
		"store_id":      c.api.StoreID,
		"category_slug": slug,
		"page_number":   strconv.Itoa(pageNumber),
		"page_size":     strconv.Itoa(c.api.PageSize),
		"catalog_id":    c.api.CatalogID,
		"currency":      c.api.Currency,
		"lang_id":       c.api.LangID,
		"order_by":      c.api.OrderBy,
	})

	raw, err := c.fetcher.FetchJSON(ctx, url)
	if err != nil {
		return nil, err
	}

	if !isObject(raw) {
		return nil, fmt.Errorf("search page %d for %s is not a JSON object", pageNumber, slug)
	}

	var page domain.SearchPage
	if err := DecodeJSON(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode search page %d for %s: %w", pageNumber, slug, err)
	}

	log.Debugf("Fetched page %d for %s with %d entries", pageNumber, slug, len(page.CatalogEntryView))
	return page.CatalogEntryView, nil
}

// GetAvailability returns the raw availability code for a SKU, or N/A when
// the response does not carry one
func (c *catalogClient) GetAvailability(ctx context.Context, skuID string) (string, error) {
	url := expand(c.api.AvailabilityTemplate, map[string]string{
		"sku_id":   skuID,
		"store_id": c.api.StoreID,
	})

	raw, err := c.fetcher.FetchJSON(ctx, url)
	if err != nil {
		return "", err
	}

	var body map[string]any
	if err := DecodeJSON(raw, &body); err != nil {
		return "", fmt.Errorf("failed to decode availability for %s: %w", skuID, err)
	}

	return domain.TextOr(body["availableStatusKey"], domain.NotAvailable), nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// expand substitutes {name} placeholders in a URL template
func expand(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
