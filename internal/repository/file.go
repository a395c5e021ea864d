package repository

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"catalog/harvester/internal/domain"

	log "github.com/sirupsen/logrus"
)

type fileRecordRepository struct {
	dir string
}

// NewFileRecordRepository writes each destination as a file under dir. The
// format follows the extension: .json, .jsonl, anything else is CSV.
func NewFileRecordRepository(dir string) RecordRepository {
	return &fileRecordRepository{dir: dir}
}

func (r *fileRecordRepository) SaveRecords(_ context.Context, destination string, records []domain.ProductRecord) error {
	path := filepath.Join(r.dir, destination)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var encode func(io.Writer) error
	switch strings.ToLower(filepath.Ext(destination)) {
	case ".json":
		encode = func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(nonNil(records))
		}
	case ".jsonl":
		encode = func(w io.Writer) error {
			enc := json.NewEncoder(w)
			for _, record := range records {
				if err := enc.Encode(record); err != nil {
					return err
				}
			}
			return nil
		}
	default:
		encode = func(w io.Writer) error { return writeRecordCSV(w, records) }
	}

	if err := writeAtomically(path, encode); err != nil {
		return fmt.Errorf("failed to save records to %s: %w", path, err)
	}

	log.Infof("💾 Data saved to %s (%d records)", path, len(records))
	return nil
}

func writeRecordCSV(w io.Writer, records []domain.ProductRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.RecordColumns); err != nil {
		return err
	}
	for _, record := range records {
		if err := cw.Write(record.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeAtomically writes through a temp file in the same directory and renames
// it into place, so readers never see a half-written file
func writeAtomically(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func nonNil(records []domain.ProductRecord) []domain.ProductRecord {
	if records == nil {
		return []domain.ProductRecord{}
	}
	return records
}
