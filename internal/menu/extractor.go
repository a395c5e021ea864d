package menu

import (
	"context"
	"fmt"
	"sort"

	"catalog/harvester/internal/client"
	"catalog/harvester/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Node is one entry of the navigation feed
type Node struct {
	NavTitle  string `json:"navTitle"`
	Level     any    `json:"level"`
	UniqueID  string `json:"uniqueID"`
	Title     string `json:"jcr:title"`
	SEOURL    string `json:"seo_url"`
	AEMURL    string `json:"aem_url"`
	ChildMenu []Node `json:"childMenu"`
}

// Saver persists the extracted category rows
type Saver func(path string, refs []domain.CategoryRef) error

// Options configures one extraction
type Options struct {
	Endpoint       string
	NavTitle       string
	LevelsToExport int
	OutputPath     string
}

// Extractor turns the navigation feed into the category rows the harvest reads
type Extractor struct {
	fetcher client.Fetcher
	save    Saver
	opts    Options
}

func NewExtractor(fetcher client.Fetcher, save Saver, opts Options) *Extractor {
	if opts.LevelsToExport <= 0 {
		opts.LevelsToExport = 3
	}
	return &Extractor{
		fetcher: fetcher,
		save:    save,
		opts:    opts,
	}
}

// Run fetches the feed, flattens the configured navigation tree and writes it
// to the output path. It returns the rows written.
func (e *Extractor) Run(ctx context.Context) ([]domain.CategoryRef, error) {
	log.Infof("🔄 Fetching navigation menu from %s", e.opts.Endpoint)

	raw, err := e.fetcher.FetchJSON(ctx, e.opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch navigation menu: %w", err)
	}

	var feed []Node
	if err := client.DecodeJSON(raw, &feed); err != nil {
		return nil, fmt.Errorf("failed to decode navigation menu: %w", err)
	}

	root, ok := SelectNavigation(feed, e.opts.NavTitle)
	if !ok {
		return nil, fmt.Errorf("navigation %q not found in menu feed", e.opts.NavTitle)
	}

	refs := ExportLevels(Flatten(root.ChildMenu), e.opts.LevelsToExport)
	if err := e.save(e.opts.OutputPath, refs); err != nil {
		return nil, fmt.Errorf("failed to save categories: %w", err)
	}

	log.Infof("✅ Saved %d categories to %s", len(refs), e.opts.OutputPath)
	return refs, nil
}

// SelectNavigation returns the first top-level node with the given navTitle
func SelectNavigation(feed []Node, navTitle string) (Node, bool) {
	for _, node := range feed {
		if node.NavTitle == navTitle {
			return node, true
		}
	}
	return Node{}, false
}

// Flatten walks the menu depth first. Only nodes whose level matches their
// depth are kept; their children are visited one level deeper.
func Flatten(menu []Node) []domain.CategoryRef {
	var refs []domain.CategoryRef
	flatten(menu, 1, "", &refs)
	return refs
}

func flatten(menu []Node, level int, parentID string, refs *[]domain.CategoryRef) {
	for _, node := range menu {
		if text, _ := domain.Text(node.Level); text != fmt.Sprint(level) {
			continue
		}

		*refs = append(*refs, domain.CategoryRef{
			Level:          level,
			UniqueID:       node.UniqueID,
			ParentUniqueID: parentID,
			Title:          node.Title,
			SEOURL:         node.SEOURL,
			AEMURL:         node.AEMURL,
		})

		if len(node.ChildMenu) > 0 {
			flatten(node.ChildMenu, level+1, node.UniqueID, refs)
		}
	}
}

// ExportLevels keeps levels 1..maxLevel grouped by level, each group in
// discovery order
func ExportLevels(refs []domain.CategoryRef, maxLevel int) []domain.CategoryRef {
	kept := make([]domain.CategoryRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Level >= 1 && ref.Level <= maxLevel {
			kept = append(kept, ref)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Level < kept[j].Level
	})
	return kept
}
