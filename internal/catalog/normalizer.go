package catalog

import (
	"strings"

	"catalog/harvester/internal/domain"
)

// Normalizer flattens raw listing entries into product records
type Normalizer struct {
	baseURL string
}

func NewNormalizer(webBaseURL string) *Normalizer {
	return &Normalizer{baseURL: strings.TrimRight(webBaseURL, "/")}
}

// Normalize builds the record for one entry. It has no side effects and the
// same input always yields the same record.
func (n *Normalizer) Normalize(entry domain.RawListingEntry, category domain.CategoryContext) domain.ProductRecord {
	record := domain.ProductRecord{
		CategoryID:    category.ID,
		CategoryTitle: category.Title,
		CategoryURL:   category.URL,

		UniqueID:                field(entry, "uniqueID"),
		SingleSKUCatalogEntryID: field(entry, "singleSKUCatalogEntryID"),
		PartNumber:              field(entry, "partNumber"),
		ShortDescription:        field(entry, "shortDescription"),
		Name:                    field(entry, "name"),
		Manufacturer:            field(entry, "manufacturer"),
		Buyable:                 field(entry, "buyable"),
	}

	levels := categoryLevels(category.URL)
	record.Level1 = levelAt(levels, 0)
	record.Level2 = levelAt(levels, 1)
	record.Level3 = levelAt(levels, 2)

	record.Link = n.link(entry)
	record.OriginalPrice, record.CurrentPrice = prices(entry)

	if sku, ok := domain.Text(entry["singleSKUCatalogEntryID"]); ok {
		record.SKU = sku
	}

	return record
}

func field(entry domain.RawListingEntry, key string) string {
	return domain.TextOr(entry[key], domain.NotAvailable)
}

func categoryLevels(categoryURL string) []string {
	return strings.Split(strings.Trim(categoryURL, "/"), "/")
}

func levelAt(levels []string, i int) *string {
	if i >= len(levels) {
		return nil
	}
	level := levels[i]
	return &level
}

func (n *Normalizer) link(entry domain.RawListingEntry) string {
	first := map[string]any{}
	if userData, ok := entry["UserData"].([]any); ok && len(userData) > 0 {
		if m, ok := userData[0].(map[string]any); ok {
			first = m
		}
	}

	seoURL, ok := first["seo_url"].(string)
	if !ok {
		return domain.NotAvailable
	}
	return n.baseURL + "/" + strings.TrimLeft(seoURL, "/")
}

// prices scans the price list; the last Display and the last Offer entry win
func prices(entry domain.RawListingEntry) (original, current string) {
	original, current = domain.NotAvailable, domain.NotAvailable

	list, _ := entry["price"].([]any)
	for _, item := range list {
		price, ok := item.(map[string]any)
		if !ok {
			continue
		}
		switch price["usage"] {
		case "Display":
			original = domain.TextOr(price["value"], domain.NotAvailable)
		case "Offer":
			current = domain.TextOr(price["value"], domain.NotAvailable)
		}
	}
	return original, current
}
