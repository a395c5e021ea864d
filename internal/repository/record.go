package repository

import (
	"context"
	"errors"
	"fmt"

	"catalog/harvester/internal/domain"
)

// RecordRepository persists product records under a destination name
type RecordRepository interface {
	SaveRecords(ctx context.Context, destination string, records []domain.ProductRecord) error
}

type multiRecordRepository struct {
	repos []RecordRepository
}

// NewMultiRecordRepository writes the same rows to every repository. All of
// them are attempted even if one fails.
func NewMultiRecordRepository(repos ...RecordRepository) RecordRepository {
	return &multiRecordRepository{repos: repos}
}

func (m *multiRecordRepository) SaveRecords(ctx context.Context, destination string, records []domain.ProductRecord) error {
	if len(m.repos) == 0 {
		return fmt.Errorf("no record repository configured")
	}
	var errs []error
	for _, repo := range m.repos {
		if err := repo.SaveRecords(ctx, destination, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
