package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"catalog/harvester/internal/domain"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// txBeginner is satisfied by *pgxpool.Pool and by pgxmock pools
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type postgresRecordRepository struct {
	db    txBeginner
	table string
	runID string
}

// NewPostgresRecordRepository stores records as JSONB rows. Saving a
// destination replaces its previous rows in one transaction.
//
//	CREATE TABLE product_records (
//	    destination text    NOT NULL,
//	    position    integer NOT NULL,
//	    run_id      text    NOT NULL,
//	    sku         text    NOT NULL,
//	    data        jsonb   NOT NULL,
//	    PRIMARY KEY (destination, position)
//	);
func NewPostgresRecordRepository(db txBeginner, table, runID string) (RecordRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if table == "" {
		table = "product_records"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &postgresRecordRepository{db: db, table: table, runID: runID}, nil
}

func (r *postgresRecordRepository) SaveRecords(ctx context.Context, destination string, records []domain.ProductRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := r.replace(ctx, tx, destination, records); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit records for %s: %w", destination, err)
	}

	log.Infof("💾 Saved %d records to %s (%s)", len(records), r.table, destination)
	return nil
}

var recordColumns = []string{"destination", "position", "run_id", "sku", "data"}

func (r *postgresRecordRepository) replace(ctx context.Context, tx pgx.Tx, destination string, records []domain.ProductRecord) error {
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE destination = $1`, r.table)
	if _, err := tx.Exec(ctx, deleteQuery, destination); err != nil {
		return fmt.Errorf("failed to clear records for %s: %w", destination, err)
	}

	if len(records) == 0 {
		return nil
	}

	rows, err := copyRows(destination, r.runID, records)
	if err != nil {
		return err
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{r.table}, recordColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to copy records for %s: %w", destination, err)
	}
	return nil
}

// copyRows lays records out in recordColumns order
func copyRows(destination, runID string, records []domain.ProductRecord) ([][]any, error) {
	rows := make([][]any, 0, len(records))
	for i, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record %d: %w", i, err)
		}
		rows = append(rows, []any{destination, int32(i), runID, record.SKU, data})
	}
	return rows, nil
}
