package migrator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/avorren/murmur-mysql2sqlite/internal/connector"
	"github.com/avorren/murmur-mysql2sqlite/internal/schema"
	"github.com/avorren/murmur-mysql2sqlite/pkg/models"
)

// newTestOrchestrator wires mock databases into already-"connected"
// connectors so Execute exercises the run without real backends
func newTestOrchestrator(t *testing.T, cfg Config, logger *logrus.Logger) (*Orchestrator, sqlmock.Sqlmock, sqlmock.Sqlmock) {
	t.Helper()
	sourceDB, sourceMock := newMockDB(t)
	destDB, destMock := newMockDB(t)

	source := &connector.MySQLConnector{
		Host:     "localhost",
		User:     "murmur",
		Database: "murmur",
		Port:     "3306",
		DB:       sourceDB,
		Logger:   logger,
	}
	dest := &connector.SQLiteConnector{
		Path:   "murmur.sqlite",
		DB:     destDB,
		Logger: logger,
	}

	return NewOrchestrator(source, dest, cfg, logger), sourceMock, destMock
}

func expectValidationPass(sourceMock, destMock sqlmock.Sqlmock) {
	expectValidation(sourceMock, destMock, schema.ExpectedTables(), schema.ExpectedTables())
}

func expectValidation(sourceMock, destMock sqlmock.Sqlmock, sourceTables, destTables []string) {
	sourceRows := sqlmock.NewRows([]string{"table_name"})
	for _, name := range sourceTables {
		sourceRows.AddRow(name)
	}
	sourceMock.ExpectQuery("SELECT table_name").WithArgs("murmur").WillReturnRows(sourceRows)

	destRows := sqlmock.NewRows([]string{"name"})
	for _, name := range destTables {
		destRows.AddRow(name)
	}
	destMock.ExpectQuery("SELECT name FROM sqlite_master").WillReturnRows(destRows)
}

// expectTableCopied sets up an empty-table transfer for one spec
func expectTableCopied(sourceMock, destMock sqlmock.Sqlmock, spec models.TableSpec) {
	sourceMock.ExpectQuery("SELECT .+ FROM " + spec.Name + "$").
		WillReturnRows(sqlmock.NewRows(spec.Columns))
	destMock.ExpectBegin()
	destMock.ExpectExec("DELETE FROM " + spec.Name + "$").
		WillReturnResult(sqlmock.NewResult(0, 0))
	destMock.ExpectCommit()
}

func expectTableReadFailure(sourceMock, destMock sqlmock.Sqlmock, spec models.TableSpec) {
	sourceMock.ExpectQuery("SELECT .+ FROM " + spec.Name + "$").
		WillReturnError(fmt.Errorf("table is marked as crashed"))
	destMock.ExpectBegin()
	destMock.ExpectExec("DELETE FROM " + spec.Name + "$").
		WillReturnResult(sqlmock.NewResult(0, 0))
	destMock.ExpectRollback()
}

func TestExecuteMigratesAllTablesInOrder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	o, sourceMock, destMock := newTestOrchestrator(t, Config{}, logger)

	expectValidationPass(sourceMock, destMock)
	for _, spec := range schema.Tables {
		expectTableCopied(sourceMock, destMock, spec)
	}
	destMock.ExpectClose()
	sourceMock.ExpectClose()

	if err := o.Execute(); err != nil {
		t.Fatalf("Expected run to succeed, got: %v", err)
	}

	order := schema.MigrationOrder()
	if strings.Join(o.Result.SuccessfulTables, ",") != strings.Join(order, ",") {
		t.Errorf("Expected all tables migrated in order %v, got %v", order, o.Result.SuccessfulTables)
	}
	if len(o.Result.FailedTables) != 0 {
		t.Errorf("Expected no failed tables, got %v", o.Result.FailedTables)
	}

	checkExpectations(t, sourceMock, destMock)
}

func TestExecuteIsolatesSingleTableFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	o, sourceMock, destMock := newTestOrchestrator(t, Config{}, logger)

	expectValidationPass(sourceMock, destMock)
	for _, spec := range schema.Tables {
		if spec.Name == "groups" {
			expectTableReadFailure(sourceMock, destMock, spec)
		} else {
			expectTableCopied(sourceMock, destMock, spec)
		}
	}
	destMock.ExpectClose()
	sourceMock.ExpectClose()

	err := o.Execute()
	if err == nil {
		t.Fatal("Expected the run to report the failed table")
	}

	if len(o.Result.FailedTables) != 1 || o.Result.FailedTables[0] != "groups" {
		t.Errorf("Expected only groups to fail, got %v", o.Result.FailedTables)
	}
	if len(o.Result.SuccessfulTables) != len(schema.Tables)-1 {
		t.Errorf("Expected the remaining %d tables to succeed, got %d",
			len(schema.Tables)-1, len(o.Result.SuccessfulTables))
	}

	checkExpectations(t, sourceMock, destMock)
}

func TestExecuteStrictValidationStopsRun(t *testing.T) {
	logger, _ := test.NewNullLogger()
	o, sourceMock, destMock := newTestOrchestrator(t, Config{}, logger)

	missingMeta := make([]string, 0, len(schema.Tables)-1)
	for _, name := range schema.ExpectedTables() {
		if name != "meta" {
			missingMeta = append(missingMeta, name)
		}
	}
	expectValidation(sourceMock, destMock, schema.ExpectedTables(), missingMeta)
	destMock.ExpectClose()
	sourceMock.ExpectClose()

	if err := o.Execute(); err == nil {
		t.Fatal("Expected a failed validation to stop the run")
	}
	if len(o.Result.SuccessfulTables) != 0 || len(o.Result.FailedTables) != 0 {
		t.Error("Expected no table migrations to be attempted")
	}

	checkExpectations(t, sourceMock, destMock)
}

func TestExecuteLenientValidationContinues(t *testing.T) {
	logger, hook := test.NewNullLogger()
	o, sourceMock, destMock := newTestOrchestrator(t, Config{LenientValidation: true}, logger)

	missingMeta := make([]string, 0, len(schema.Tables)-1)
	for _, name := range schema.ExpectedTables() {
		if name != "meta" {
			missingMeta = append(missingMeta, name)
		}
	}
	expectValidation(sourceMock, destMock, schema.ExpectedTables(), missingMeta)
	for _, spec := range schema.Tables {
		if spec.Name == "meta" {
			// The missing table fails on its own; the rest still run.
			sourceMock.ExpectQuery("SELECT .+ FROM meta$").
				WillReturnRows(sqlmock.NewRows(spec.Columns))
			destMock.ExpectBegin()
			destMock.ExpectExec("DELETE FROM meta$").
				WillReturnError(fmt.Errorf("no such table: meta"))
			destMock.ExpectRollback()
		} else {
			expectTableCopied(sourceMock, destMock, spec)
		}
	}
	destMock.ExpectClose()
	sourceMock.ExpectClose()

	err := o.Execute()
	if err == nil {
		t.Fatal("Expected the missing table to surface in the aggregate error")
	}

	if len(o.Result.SuccessfulTables) != len(schema.Tables)-1 {
		t.Errorf("Expected %d tables to succeed despite the failed validation, got %d",
			len(schema.Tables)-1, len(o.Result.SuccessfulTables))
	}

	warned := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "Lenient validation") {
			warned = true
		}
	}
	if !warned {
		t.Error("Expected a warning about continuing past a failed validation")
	}

	checkExpectations(t, sourceMock, destMock)
}

func TestExecuteCheckOnlySkipsMigration(t *testing.T) {
	logger, _ := test.NewNullLogger()
	o, sourceMock, destMock := newTestOrchestrator(t, Config{CheckOnly: true}, logger)

	expectValidationPass(sourceMock, destMock)
	destMock.ExpectClose()
	sourceMock.ExpectClose()

	if err := o.Execute(); err != nil {
		t.Fatalf("Expected a clean check-only run, got: %v", err)
	}
	if len(o.Result.SuccessfulTables) != 0 {
		t.Error("Expected no table migrations in check-only mode")
	}

	checkExpectations(t, sourceMock, destMock)
}

func TestExecuteProvisioningFailureSkipsMigration(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sourceDB, sourceMock := newMockDB(t)

	source := &connector.MySQLConnector{
		Host:     "localhost",
		User:     "murmur",
		Database: "murmur",
		Port:     "3306",
		DB:       sourceDB,
		Logger:   logger,
	}
	// No path and no MURMUR_SQLITE_FILE: destination provisioning fails
	// before any driver work.
	dest := &connector.SQLiteConnector{Logger: logger}

	sourceMock.ExpectClose()

	o := NewOrchestrator(source, dest, Config{}, logger)
	if err := o.Execute(); err == nil {
		t.Fatal("Expected the run to fail when a connection cannot be opened")
	}

	if len(o.Result.SuccessfulTables) != 0 || len(o.Result.FailedTables) != 0 {
		t.Error("Expected no table migrations to be attempted")
	}

	// Both provisioning outcomes are reported.
	sourceOK, destFailed := false, false
	for _, entry := range hook.AllEntries() {
		if strings.Contains(entry.Message, "Source connection ok") {
			sourceOK = true
		}
		if entry.Level == logrus.ErrorLevel && strings.Contains(entry.Message, "Destination connection unavailable") {
			destFailed = true
		}
	}
	if !sourceOK || !destFailed {
		t.Error("Expected both provisioning outcomes to be reported")
	}

	checkExpectations(t, sourceMock)
}

func TestExecuteVerifyReportsMismatch(t *testing.T) {
	logger, _ := test.NewNullLogger()
	o, sourceMock, destMock := newTestOrchestrator(t, Config{Verify: true}, logger)

	expectValidationPass(sourceMock, destMock)
	for _, spec := range schema.Tables {
		expectTableCopied(sourceMock, destMock, spec)
	}
	for _, spec := range schema.Tables {
		sourceCount := int64(0)
		destCount := int64(0)
		if spec.Name == "users" {
			sourceCount, destCount = 7, 6
		}
		sourceMock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM " + spec.Name + "$").
			WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(sourceCount))
		destMock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM " + spec.Name + "$").
			WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(destCount))
	}
	destMock.ExpectClose()
	sourceMock.ExpectClose()

	err := o.Execute()
	if err == nil {
		t.Fatal("Expected the verification mismatch to surface in the aggregate error")
	}
	if !strings.Contains(err.Error(), "verification") {
		t.Errorf("Expected a verification error, got: %v", err)
	}

	checkExpectations(t, sourceMock, destMock)
}
