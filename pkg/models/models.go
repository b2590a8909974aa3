package models

// TableSpec describes one Murmur table handled by the migration: its name,
// the ordered column list used for both the source SELECT and the
// destination INSERT, and the parent tables it references
type TableSpec struct {
	Name      string
	Columns   []string
	Parents   []string
	LogColumn string
}

// ConnectionParams holds all connection parameters for a migration run
type ConnectionParams struct {
	Host       string
	Port       string
	User       string
	Password   string
	Database   string
	SQLiteFile string
}

// MigrationResult represents the outcome of a migration run
type MigrationResult struct {
	SuccessfulTables []string
	FailedTables     []string
	TotalRows        int
}

// CountMismatch represents a table whose source and destination row counts
// differ after migration
type CountMismatch struct {
	Table       string
	SourceCount int64
	DestCount   int64
}
