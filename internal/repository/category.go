package repository

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"catalog/harvester/internal/domain"
)

// CategoryHeader is the column order of the menu extraction file
var CategoryHeader = []string{"Level", "UniqueID", "ParentUniqueID", "Title", "SEO_URL", "AEM_URL"}

// CategorySource reads the category rows produced by the menu stage
type CategorySource interface {
	LoadCategories(ctx context.Context) ([]domain.CategoryRef, error)
}

type fileCategorySource struct {
	path  string
	level int
}

// NewFileCategorySource reads a .csv or .json menu file. A level above zero
// keeps only rows of that menu level.
func NewFileCategorySource(path string, level int) CategorySource {
	return &fileCategorySource{path: path, level: level}
}

func (s *fileCategorySource) LoadCategories(_ context.Context) ([]domain.CategoryRef, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open category file: %w", err)
	}
	defer f.Close()

	var refs []domain.CategoryRef
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".json":
		if err := json.NewDecoder(f).Decode(&refs); err != nil {
			return nil, fmt.Errorf("failed to decode category file %s: %w", s.path, err)
		}
	default:
		refs, err = readCategoryCSV(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read category file %s: %w", s.path, err)
		}
	}

	if s.level <= 0 {
		return refs, nil
	}
	filtered := refs[:0]
	for _, ref := range refs {
		if ref.Level == s.level {
			filtered = append(filtered, ref)
		}
	}
	return filtered, nil
}

func readCategoryCSV(r io.Reader) ([]domain.CategoryRef, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := index["AEM_URL"]; !ok {
		return nil, fmt.Errorf("missing AEM_URL column")
	}

	var refs []domain.CategoryRef
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		get := func(column string) string {
			if i, ok := index[column]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}
		level, _ := strconv.Atoi(strings.TrimSpace(get("Level")))

		refs = append(refs, domain.CategoryRef{
			Level:          level,
			UniqueID:       get("UniqueID"),
			ParentUniqueID: get("ParentUniqueID"),
			Title:          get("Title"),
			SEOURL:         get("SEO_URL"),
			AEMURL:         get("AEM_URL"),
		})
	}
	return refs, nil
}

// SaveCategories writes menu rows to a .csv or .json file
func SaveCategories(path string, refs []domain.CategoryRef) error {
	return writeAtomically(path, func(w io.Writer) error {
		if strings.ToLower(filepath.Ext(path)) == ".json" {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(refs)
		}

		cw := csv.NewWriter(w)
		if err := cw.Write(CategoryHeader); err != nil {
			return err
		}
		for _, ref := range refs {
			if err := cw.Write([]string{
				strconv.Itoa(ref.Level),
				ref.UniqueID,
				ref.ParentUniqueID,
				ref.Title,
				ref.SEOURL,
				ref.AEMURL,
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}
