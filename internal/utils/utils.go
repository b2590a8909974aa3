package utils

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/avorren/murmur-mysql2sqlite/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("MURMUR_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	return logger
}

// LoadEnvironmentVariables loads environment variables from a .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Debugf("No %s file found, using existing environment variables", envFile)
	}

	requiredVars := []string{"MURMUR_MYSQL_HOST", "MURMUR_MYSQL_USER", "MURMUR_MYSQL_PASSWORD", "MURMUR_MYSQL_DATABASE", "MURMUR_SQLITE_FILE"}
	var missingVars []string

	for _, v := range requiredVars {
		if os.Getenv(v) == "" {
			missingVars = append(missingVars, v)
		}
	}

	if len(missingVars) > 0 {
		logger.Debugf("Environment variables not set: %s", strings.Join(missingVars, ", "))
		logger.Debug("These can be provided via command line arguments, environment variables, or a .env file")
		return false
	}

	return true
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// ValidateConnectionParams validates database connection parameters
func ValidateConnectionParams(params models.ConnectionParams, logger *logrus.Logger) bool {
	if params.Host == "" {
		logger.Error("MySQL host is required")
		return false
	}

	if params.User == "" {
		logger.Error("MySQL user is required")
		return false
	}

	if params.Password == "" { // Empty password is allowed
		logger.Warning("MySQL password is empty")
	}

	if params.Database == "" {
		logger.Error("MySQL database name is required")
		return false
	}

	if _, err := strconv.Atoi(params.Port); err != nil {
		logger.Errorf("Invalid port number: %s", params.Port)
		return false
	}

	if params.SQLiteFile == "" {
		logger.Error("SQLite file path is required")
		return false
	}

	return true
}

// PrintSummary prints a summary of the migration run
func PrintSummary(result models.MigrationResult) {
	totalTables := len(result.SuccessfulTables) + len(result.FailedTables)

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("DATABASE MIGRATION SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Total tables processed: %d\n", totalTables)
	fmt.Printf("Successfully migrated tables: %d\n", len(result.SuccessfulTables))
	fmt.Printf("Failed tables: %d\n", len(result.FailedTables))
	fmt.Printf("Total rows copied: %d\n", result.TotalRows)

	if len(result.FailedTables) > 0 {
		fmt.Println("\nFailed tables:")
		for _, table := range result.FailedTables {
			fmt.Printf("  - %s\n", table)
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}

// VerifyRowCounts compares per-table row counts between the two databases
// after a migration run
func VerifyRowCounts(source, dest *sql.DB, tables []models.TableSpec, logger *logrus.Logger) (bool, []models.CountMismatch) {
	logger.Info("Verifying row counts on both sides...")

	var mismatches []models.CountMismatch

	for _, spec := range tables {
		sourceCount, err := countRows(source, spec.Name)
		if err != nil {
			logger.Warningf("Could not count source rows for table %s: %v", spec.Name, err)
			mismatches = append(mismatches, models.CountMismatch{Table: spec.Name, SourceCount: -1})
			continue
		}

		destCount, err := countRows(dest, spec.Name)
		if err != nil {
			logger.Warningf("Could not count destination rows for table %s: %v", spec.Name, err)
			mismatches = append(mismatches, models.CountMismatch{Table: spec.Name, SourceCount: sourceCount, DestCount: -1})
			continue
		}

		if sourceCount != destCount {
			logger.Warningf("Table %s has %d rows at the source but %d at the destination", spec.Name, sourceCount, destCount)
			mismatches = append(mismatches, models.CountMismatch{Table: spec.Name, SourceCount: sourceCount, DestCount: destCount})
		}
	}

	if len(mismatches) == 0 {
		logger.Info("Verification successful: all row counts match")
		return true, nil
	}

	logger.Errorf("Verification failed: %d tables do not match", len(mismatches))
	return false, mismatches
}

func countRows(db *sql.DB, table string) (int64, error) {
	var count int64
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	return count, err
}

// PrintVerificationResults prints the results of the row count verification
func PrintVerificationResults(mismatches []models.CountMismatch) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("ROW COUNT VERIFICATION RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	if len(mismatches) == 0 {
		fmt.Println("All tables match between source and destination")
		fmt.Println(strings.Repeat("=", 50))
		return
	}

	fmt.Printf("%d tables do not match:\n", len(mismatches))
	for _, m := range mismatches {
		fmt.Printf("  - %s: source=%d destination=%d\n", m.Table, m.SourceCount, m.DestCount)
	}

	fmt.Println(strings.Repeat("=", 50))
}
