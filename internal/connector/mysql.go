package connector

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// MySQLConnector handles the connection to the source Murmur database
type MySQLConnector struct {
	Host     string
	User     string
	Password string
	Database string
	Port     string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewMySQLConnector creates a new source connector, falling back to
// MURMUR_MYSQL_* environment variables for parameters that are not provided
func NewMySQLConnector(host, user, password, database, port string, logger *logrus.Logger) *MySQLConnector {
	if host == "" {
		host = getEnvOrDefault("MURMUR_MYSQL_HOST", "localhost")
	}
	if user == "" {
		user = getEnvOrDefault("MURMUR_MYSQL_USER", "murmur")
	}
	if password == "" {
		password = getEnvOrDefault("MURMUR_MYSQL_PASSWORD", "")
	}
	if database == "" {
		database = getEnvOrDefault("MURMUR_MYSQL_DATABASE", "")
	}
	if port == "" {
		port = getEnvOrDefault("MURMUR_MYSQL_PORT", "3306")
	}

	return &MySQLConnector{
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
		Port:     port,
		Logger:   logger,
	}
}

// DSN builds the go-sql-driver connection string for the source database
func (c *MySQLConnector) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", c.User, c.Password, c.Host, c.Port, c.Database)
}

// Connect establishes a connection to the MySQL database. A failure is
// logged and returned; the caller decides whether the run can proceed.
func (c *MySQLConnector) Connect() error {
	if c.DB != nil {
		return nil
	}

	if c.Database == "" {
		err := fmt.Errorf("database name must be provided either as an argument or as MURMUR_MYSQL_DATABASE environment variable")
		c.Logger.Errorf("Cannot connect to MySQL: %v", err)
		return err
	}

	db, err := sql.Open("mysql", c.DSN())
	if err != nil {
		c.Logger.Errorf("Error connecting to MySQL database: %v", err)
		return err
	}

	if err := db.Ping(); err != nil {
		c.Logger.Errorf("Error pinging MySQL database: %v", err)
		db.Close()
		return err
	}

	c.DB = db
	c.Logger.Infof("Connected to MySQL database: %s", c.Database)
	return nil
}

// Disconnect closes the database connection
func (c *MySQLConnector) Disconnect() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Errorf("Error closing MySQL connection: %v", err)
		} else {
			c.Logger.Info("MySQL connection closed")
		}
		c.DB = nil
	}
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
