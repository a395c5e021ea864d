package domain

import "strings"

// CategoryRef is one row of the menu extraction output
type CategoryRef struct {
	Level          int    `json:"Level"`
	UniqueID       string `json:"UniqueID"`
	ParentUniqueID string `json:"ParentUniqueID,omitempty"`
	Title          string `json:"Title"`
	SEOURL         string `json:"SEO_URL,omitempty"`
	AEMURL         string `json:"AEM_URL"`
}

// URLPath returns the non-empty segments of the AEM URL, keeping the last three
func (c CategoryRef) URLPath() []string {
	parts := make([]string, 0, 4)
	for _, part := range strings.Split(c.AEMURL, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	return parts
}

// Slug is the last URL segment, used as the category search key
func (c CategoryRef) Slug() string {
	path := c.URLPath()
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

// CategoryDetail is the subset of the category model endpoint the harvester reads
type CategoryDetail struct {
	CategoryID   string `json:"categoryId"`
	Title        string `json:"title"`
	RemoteSPAURL string `json:"remoteSPAUrl"`
}

// CategoryContext is the per-category data copied onto every record
type CategoryContext struct {
	ID    string
	Title string
	URL   string
}

// NewCategoryContext applies the sentinel values for a missing or partial detail
func NewCategoryContext(detail *CategoryDetail) CategoryContext {
	ctx := CategoryContext{ID: Unknown, Title: NotAvailable, URL: NotAvailable}
	if detail == nil {
		return ctx
	}
	if detail.CategoryID != "" {
		ctx.ID = detail.CategoryID
	}
	if detail.Title != "" {
		ctx.Title = detail.Title
	}
	if detail.RemoteSPAURL != "" {
		ctx.URL = detail.RemoteSPAURL
	}
	return ctx
}
