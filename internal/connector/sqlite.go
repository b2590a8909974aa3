package connector

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteConnector handles the connection to the destination database file
type SQLiteConnector struct {
	Path   string
	DB     *sql.DB
	Logger *logrus.Logger
}

// NewSQLiteConnector creates a new destination connector, falling back to
// the MURMUR_SQLITE_FILE environment variable when no path is provided
func NewSQLiteConnector(path string, logger *logrus.Logger) *SQLiteConnector {
	if path == "" {
		path = getEnvOrDefault("MURMUR_SQLITE_FILE", "")
	}

	return &SQLiteConnector{
		Path:   path,
		Logger: logger,
	}
}

// Connect opens the SQLite database file. A failure is logged and returned;
// the caller decides whether the run can proceed.
func (c *SQLiteConnector) Connect() error {
	if c.DB != nil {
		return nil
	}

	if c.Path == "" {
		err := fmt.Errorf("sqlite file path must be provided either as an argument or as MURMUR_SQLITE_FILE environment variable")
		c.Logger.Errorf("Cannot open SQLite database: %v", err)
		return err
	}

	db, err := sql.Open("sqlite3", c.Path)
	if err != nil {
		c.Logger.Errorf("Error opening SQLite database: %v", err)
		return err
	}

	if err := db.Ping(); err != nil {
		c.Logger.Errorf("Error pinging SQLite database: %v", err)
		db.Close()
		return err
	}

	c.DB = db
	c.Logger.Infof("Opened SQLite database: %s", c.Path)
	return nil
}

// Disconnect closes the database connection
func (c *SQLiteConnector) Disconnect() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Errorf("Error closing SQLite connection: %v", err)
		} else {
			c.Logger.Info("SQLite connection closed")
		}
		c.DB = nil
	}
}
