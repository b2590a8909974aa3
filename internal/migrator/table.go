package migrator

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/avorren/murmur-mysql2sqlite/pkg/models"
)

// DefaultBatchSize is the number of rows written per INSERT statement when
// no batch size is configured
const DefaultBatchSize = 500

// TableMigrator copies tables from the source database to the destination
// database with full-replace semantics
type TableMigrator struct {
	Source    *sql.DB
	Dest      *sql.DB
	BatchSize int
	Logger    *logrus.Logger
}

// NewTableMigrator creates a new table migrator
func NewTableMigrator(source, dest *sql.DB, batchSize int, logger *logrus.Logger) *TableMigrator {
	return &TableMigrator{
		Source:    source,
		Dest:      dest,
		BatchSize: batchSize,
		Logger:    logger,
	}
}

// Migrate replaces the destination table's contents with the source table's
// rows and returns the number of rows copied. The source read and the
// destination clear are independent and run concurrently; the clear and all
// inserts share one destination transaction, so a failed table leaves the
// destination untouched. Row order within the table is not preserved.
func (tm *TableMigrator) Migrate(spec models.TableSpec) (int, error) {
	tx, err := tm.Dest.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction for %s: %w", spec.Name, err)
	}

	var tableRows [][]interface{}
	var g errgroup.Group
	g.Go(func() error {
		var readErr error
		tableRows, readErr = tm.readRows(spec)
		return readErr
	})
	g.Go(func() error {
		// The clear is unconditional; it does not wait on the read.
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", spec.Name)); err != nil {
			return fmt.Errorf("clearing %s: %w", spec.Name, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		tx.Rollback()
		return 0, err
	}

	if err := tm.writeRows(tx, spec, tableRows); err != nil {
		tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %s: %w", spec.Name, err)
	}

	return len(tableRows), nil
}

// readRows reads the full source table into memory in column order
func (tm *TableMigrator) readRows(spec models.TableSpec) ([][]interface{}, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(spec.Columns, ", "), spec.Name)
	rows, err := tm.Source.Query(query)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", spec.Name, err)
	}
	defer rows.Close()

	var out [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(spec.Columns))
		valuePtrs := make([]interface{}, len(spec.Columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", spec.Name, err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", spec.Name, err)
	}

	return out, nil
}

// writeRows inserts the rows through the destination transaction in batches
// of at most BatchSize rows per statement
func (tm *TableMigrator) writeRows(tx *sql.Tx, spec models.TableSpec, tableRows [][]interface{}) error {
	if len(tableRows) == 0 {
		return nil
	}

	batchSize := tm.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	logIndex := -1
	if spec.LogColumn != "" {
		for i, col := range spec.Columns {
			if col == spec.LogColumn {
				logIndex = i
				break
			}
		}
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(spec.Columns)), ", ") + ")"

	for start := 0; start < len(tableRows); start += batchSize {
		end := start + batchSize
		if end > len(tableRows) {
			end = len(tableRows)
		}
		batch := tableRows[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*len(spec.Columns))
		for i, row := range batch {
			placeholders[i] = rowPlaceholder
			args = append(args, row...)
			if logIndex >= 0 {
				tm.Logger.Infof("Migrating %s: %s", spec.Name, displayValue(row[logIndex]))
			}
		}

		insertSQL := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES %s",
			spec.Name,
			strings.Join(spec.Columns, ", "),
			strings.Join(placeholders, ", "),
		)
		if _, err := tx.Exec(insertSQL, args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", spec.Name, err)
		}
	}

	return nil
}

// normalizeValue maps driver representations between the two backends. The
// MySQL driver scans text columns as []byte; storing those into SQLite
// unchanged would produce BLOB values, so textual byte slices become
// strings. Binary content (anything holding a NUL byte) is kept as-is.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		if bytes.IndexByte(b, 0) < 0 {
			return string(b)
		}
	}
	return v
}

// displayValue renders a scanned column value for log output
func displayValue(v interface{}) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
