package menu

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"catalog/harvester/internal/domain"
	"catalog/harvester/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedJSON = `[
  {"navTitle": "Other", "childMenu": [{"level": "1", "uniqueID": "x"}]},
  {"navTitle": "Products", "childMenu": [
    {"level": "1", "uniqueID": "10", "jcr:title": "Phones", "seo_url": "phones", "aem_url": "/content/site/phones",
     "childMenu": [
       {"level": "2", "uniqueID": "11", "jcr:title": "Smartphones", "aem_url": "/content/site/phones/smart",
        "childMenu": [
          {"level": "3", "uniqueID": "12", "jcr:title": "Android", "aem_url": "/content/site/phones/smart/android",
           "childMenu": [{"level": "4", "uniqueID": "13", "jcr:title": "Too deep"}]}
        ]},
       {"level": "3", "uniqueID": "99", "jcr:title": "Wrong depth"}
     ]},
    {"level": 1, "uniqueID": "20", "jcr:title": "TV", "aem_url": "/content/site/tv"}
  ]}
]`

type stubFetcher struct {
	body string
	err  error
}

func (s *stubFetcher) FetchJSON(context.Context, string) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.body), nil
}

func TestFlattenKeepsNodesMatchingTheirDepth(t *testing.T) {
	var feed []Node
	require.NoError(t, json.Unmarshal([]byte(feedJSON), &feed))

	root, ok := SelectNavigation(feed, "Products")
	require.True(t, ok)

	refs := Flatten(root.ChildMenu)

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.UniqueID)
	}
	assert.Equal(t, []string{"10", "11", "12", "13", "20"}, ids)
	assert.Equal(t, "11", refs[2].ParentUniqueID)
	assert.Equal(t, "", refs[0].ParentUniqueID)
	assert.Equal(t, "Android", refs[2].Title)
	assert.Equal(t, 3, refs[2].Level)
}

func TestExportLevelsGroupsByLevel(t *testing.T) {
	refs := []domain.CategoryRef{
		{Level: 1, UniqueID: "a"},
		{Level: 2, UniqueID: "a1"},
		{Level: 4, UniqueID: "deep"},
		{Level: 1, UniqueID: "b"},
		{Level: 3, UniqueID: "a11"},
	}

	got := ExportLevels(refs, 3)

	ids := make([]string, 0, len(got))
	for _, ref := range got {
		ids = append(ids, ref.UniqueID)
	}
	assert.Equal(t, []string{"a", "b", "a1", "a11"}, ids)
}

func TestSelectNavigationMissing(t *testing.T) {
	_, ok := SelectNavigation([]Node{{NavTitle: "Products"}}, "Services")
	assert.False(t, ok)
}

func TestExtractorRunWritesCategoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu_categories.csv")
	extractor := NewExtractor(&stubFetcher{body: feedJSON}, repository.SaveCategories, Options{
		Endpoint:       "https://www.example.com/nav.json",
		NavTitle:       "Products",
		LevelsToExport: 3,
		OutputPath:     path,
	})

	refs, err := extractor.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, refs, 4)

	loaded, err := repository.NewFileCategorySource(path, 3).LoadCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "/content/site/phones/smart/android", loaded[0].AEMURL)
	assert.Equal(t, []string{"phones", "smart", "android"}, loaded[0].URLPath())
}

func TestExtractorRunErrors(t *testing.T) {
	saveNothing := func(string, []domain.CategoryRef) error { return nil }

	t.Run("fetch failure", func(t *testing.T) {
		e := NewExtractor(&stubFetcher{err: errors.New("boom")}, saveNothing, Options{NavTitle: "Products"})
		_, err := e.Run(context.Background())
		assert.Error(t, err)
	})

	t.Run("unknown navigation", func(t *testing.T) {
		e := NewExtractor(&stubFetcher{body: feedJSON}, saveNothing, Options{NavTitle: "Services"})
		_, err := e.Run(context.Background())
		assert.ErrorContains(t, err, "Services")
	})

	t.Run("save failure", func(t *testing.T) {
		failing := func(string, []domain.CategoryRef) error { return errors.New("disk full") }
		e := NewExtractor(&stubFetcher{body: feedJSON}, failing, Options{NavTitle: "Products"})
		_, err := e.Run(context.Background())
		assert.ErrorContains(t, err, "disk full")
	})
}
