package domain

// RawListingEntry is one untyped product from the category search response
type RawListingEntry map[string]any

// SearchPage is the category search response shape
type SearchPage struct {
	CatalogEntryView []RawListingEntry `json:"catalogEntryView"`
}
