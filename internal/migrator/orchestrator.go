package migrator

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/avorren/murmur-mysql2sqlite/internal/connector"
	"github.com/avorren/murmur-mysql2sqlite/internal/schema"
	"github.com/avorren/murmur-mysql2sqlite/internal/utils"
	"github.com/avorren/murmur-mysql2sqlite/internal/validator"
	"github.com/avorren/murmur-mysql2sqlite/pkg/models"
)

// Config controls a migration run
type Config struct {
	// BatchSize is the maximum number of rows written per INSERT statement
	BatchSize int
	// LenientValidation makes a failed schema check a warning instead of
	// aborting the run before any table is touched
	LenientValidation bool
	// CheckOnly stops the run after provisioning and schema validation
	CheckOnly bool
	// Verify recounts every table on both sides after the migration
	Verify bool
}

// Orchestrator owns the two connections for the duration of a run and
// drives the per-table migrations in fixed dependency order
type Orchestrator struct {
	Source *connector.MySQLConnector
	Dest   *connector.SQLiteConnector
	Config Config
	Logger *logrus.Logger
	Result models.MigrationResult
}

// NewOrchestrator creates a new migration orchestrator
func NewOrchestrator(source *connector.MySQLConnector, dest *connector.SQLiteConnector, cfg Config, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		Source: source,
		Dest:   dest,
		Config: cfg,
		Logger: logger,
	}
}

// Execute runs the migration: open both connections, validate the schemas,
// migrate each table with per-table fault isolation, and close both
// connections no matter how many tables failed. The returned error
// aggregates everything that went wrong; the run itself never stops early
// because of a single table.
func (o *Orchestrator) Execute() error {
	if err := schema.VerifyOrder(); err != nil {
		o.Logger.Errorf("Table declarations are inconsistent: %v", err)
		return err
	}

	srcErr := o.Source.Connect()
	dstErr := o.Dest.Connect()
	if srcErr != nil || dstErr != nil {
		o.reportProvisioning(srcErr, dstErr)
		o.Dest.Disconnect()
		o.Source.Disconnect()
		var err *multierror.Error
		err = multierror.Append(err, srcErr, dstErr)
		return err.ErrorOrNil()
	}
	defer o.Source.Disconnect()
	defer o.Dest.Disconnect()

	sv := validator.NewSchemaValidator(o.Source.DB, o.Dest.DB, o.Source.Database, o.Logger)
	if !sv.CheckTables(schema.ExpectedTables()) {
		o.Logger.Error("Databases are not ok")
		if !o.Config.LenientValidation {
			return fmt.Errorf("schema validation failed")
		}
		o.Logger.Warning("Lenient validation enabled, continuing anyway")
	}

	if o.Config.CheckOnly {
		o.Logger.Info("Check-only mode, exiting without migrating data")
		return nil
	}

	tm := NewTableMigrator(o.Source.DB, o.Dest.DB, o.Config.BatchSize, o.Logger)

	var runErr *multierror.Error
	for _, spec := range schema.Tables {
		o.Logger.Infof("Migrating table: %s", spec.Name)
		copied, err := tm.Migrate(spec)
		if err != nil {
			o.Logger.Errorf("Failed to migrate table %s: %v", spec.Name, err)
			o.Result.FailedTables = append(o.Result.FailedTables, spec.Name)
			runErr = multierror.Append(runErr, err)
			continue
		}
		o.Logger.Infof("Table %s done (%d rows)", spec.Name, copied)
		o.Result.SuccessfulTables = append(o.Result.SuccessfulTables, spec.Name)
		o.Result.TotalRows += copied
	}

	if o.Config.Verify {
		ok, mismatches := utils.VerifyRowCounts(o.Source.DB, o.Dest.DB, schema.Tables, o.Logger)
		utils.PrintVerificationResults(mismatches)
		if !ok {
			runErr = multierror.Append(runErr, fmt.Errorf("row count verification failed for %d tables", len(mismatches)))
		}
	}

	o.Logger.Info("Migration finished")
	return runErr.ErrorOrNil()
}

// reportProvisioning logs the outcome of both connection attempts so a
// failed run still names which side could not be opened
func (o *Orchestrator) reportProvisioning(srcErr, dstErr error) {
	if srcErr != nil {
		o.Logger.Errorf("Source connection unavailable: %v", srcErr)
	} else {
		o.Logger.Info("Source connection ok")
	}
	if dstErr != nil {
		o.Logger.Errorf("Destination connection unavailable: %v", dstErr)
	} else {
		o.Logger.Info("Destination connection ok")
	}
	o.Logger.Error("Not migrating: both connections are required")
}
