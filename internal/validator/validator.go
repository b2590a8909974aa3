package validator

import (
	"database/sql"
	"strings"

	"github.com/sirupsen/logrus"
)

// SchemaValidator confirms that both backends contain the tables a
// migration run expects before any data is touched
type SchemaValidator struct {
	Source         *sql.DB
	Dest           *sql.DB
	SourceDatabase string
	Logger         *logrus.Logger
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator(source, dest *sql.DB, sourceDatabase string, logger *logrus.Logger) *SchemaValidator {
	return &SchemaValidator{
		Source:         source,
		Dest:           dest,
		SourceDatabase: sourceDatabase,
		Logger:         logger,
	}
}

// CheckTables returns true only when both backends contain every expected
// table. Missing names are reported per side; extra tables are tolerated.
// A catalog query failure is reported and counts as a failed check.
func (sv *SchemaValidator) CheckTables(expected []string) bool {
	sourceTables, err := sv.sourceTables()
	if err != nil {
		sv.Logger.Errorf("Error reading source table catalog: %v", err)
		return false
	}

	destTables, err := sv.destTables()
	if err != nil {
		sv.Logger.Errorf("Error reading destination table catalog: %v", err)
		return false
	}

	missingSource := missingNames(expected, sourceTables)
	missingDest := missingNames(expected, destTables)

	if len(missingSource) > 0 {
		sv.Logger.Errorf("Source database is missing tables: %s", strings.Join(missingSource, ", "))
	}
	if len(missingDest) > 0 {
		sv.Logger.Errorf("Destination database is missing tables: %s", strings.Join(missingDest, ", "))
	}

	return len(missingSource) == 0 && len(missingDest) == 0
}

// sourceTables lists the base tables of the source schema
func (sv *SchemaValidator) sourceTables() (map[string]bool, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		AND table_type = 'BASE TABLE'
	`
	return scanNames(sv.Source, query, sv.SourceDatabase)
}

// destTables lists the table-type entries of the SQLite schema catalog
func (sv *SchemaValidator) destTables() (map[string]bool, error) {
	query := `SELECT name FROM sqlite_master WHERE type = 'table'`
	return scanNames(sv.Dest, query)
}

func scanNames(db *sql.DB, query string, args ...interface{}) (map[string]bool, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}

func missingNames(expected []string, found map[string]bool) []string {
	var missing []string
	for _, name := range expected {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
