package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avorren/murmur-mysql2sqlite/internal/connector"
	"github.com/avorren/murmur-mysql2sqlite/internal/migrator"
	"github.com/avorren/murmur-mysql2sqlite/internal/utils"
	"github.com/avorren/murmur-mysql2sqlite/pkg/models"
)

func main() {
	var (
		host       string
		user       string
		password   string
		database   string
		port       string
		sqliteFile string
		batchSize  int
		envFile    string
		logLevel   string
		checkOnly  bool
		verify     bool
		lenient    bool
	)

	rootCmd := &cobra.Command{
		Use:   "murmur-mysql2sqlite",
		Short: "Migrate a Murmur MySQL database to SQLite",
		Long: `Murmur MySQL to SQLite Migrator

Copies the persisted state of a Murmur (Mumble server) database from MySQL
to an SQLite file, table by table in dependency order, replacing the
destination's contents. A failed table does not stop the remaining ones.`,
		Run: func(cmd *cobra.Command, args []string) {
			logger := utils.SetupLogging(logLevel)

			utils.LoadEnvironmentVariables(envFile, logger)

			// Get connection parameters from environment if not provided
			if host == "" {
				host = os.Getenv("MURMUR_MYSQL_HOST")
			}
			if user == "" {
				user = os.Getenv("MURMUR_MYSQL_USER")
			}
			if password == "" {
				password = os.Getenv("MURMUR_MYSQL_PASSWORD")
			}
			if database == "" {
				database = os.Getenv("MURMUR_MYSQL_DATABASE")
			}
			if port == "" {
				port = os.Getenv("MURMUR_MYSQL_PORT")
				if port == "" {
					port = "3306"
				}
			}
			if sqliteFile == "" {
				sqliteFile = os.Getenv("MURMUR_SQLITE_FILE")
			}

			params := models.ConnectionParams{
				Host:       host,
				Port:       port,
				User:       user,
				Password:   password,
				Database:   database,
				SQLiteFile: sqliteFile,
			}
			if !utils.ValidateConnectionParams(params, logger) {
				os.Exit(1)
			}

			source := connector.NewMySQLConnector(host, user, password, database, port, logger)
			dest := connector.NewSQLiteConnector(sqliteFile, logger)

			o := migrator.NewOrchestrator(source, dest, migrator.Config{
				BatchSize:         batchSize,
				LenientValidation: lenient,
				CheckOnly:         checkOnly,
				Verify:            verify,
			}, logger)

			logger.Info("Starting migration...")
			err := o.Execute()

			if !checkOnly {
				utils.PrintSummary(o.Result)
			}

			if err != nil {
				os.Exit(1)
			}
		},
	}

	rootCmd.Flags().StringVarP(&host, "host", "H", "", "MySQL host (default: localhost)")
	rootCmd.Flags().StringVarP(&user, "user", "u", "", "MySQL user (default: murmur)")
	rootCmd.Flags().StringVarP(&password, "password", "p", "", "MySQL password")
	rootCmd.Flags().StringVarP(&database, "database", "d", "", "MySQL database name")
	rootCmd.Flags().StringVarP(&port, "port", "P", "", "MySQL port (default: 3306)")
	rootCmd.Flags().StringVarP(&sqliteFile, "sqlite", "s", "", "SQLite output file")
	rootCmd.Flags().IntVarP(&batchSize, "batch-size", "b", utils.GetEnvInt("MURMUR_BATCH_SIZE", migrator.DefaultBatchSize), "Maximum number of rows per INSERT statement")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&checkOnly, "check-only", "c", false, "Only check connections and schemas without migrating data")
	rootCmd.Flags().BoolVarP(&verify, "verify", "v", false, "Verify that row counts match on both sides after migration")
	rootCmd.Flags().BoolVar(&lenient, "lenient-validation", false, "Continue migrating even when the schema check fails")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
