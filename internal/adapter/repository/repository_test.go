package repository

import (
	"context"
	stdErrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db, mock
}

func TestRecordingDeleteRemovesChildrenInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordingRepository(db)
	orgID, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "analysis_results"`)).
		WithArgs(orgID.String(), id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "transcriptions"`)).
		WithArgs(orgID.String(), id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "recordings"`)).
		WithArgs(orgID.String(), id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), orgID, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestRecordingDeleteMissingRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "analysis_results"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "transcriptions"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "recordings"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), uuid.New(), uuid.New())
	if !stdErrors.Is(err, entities.ErrRecordingNotFound) {
		t.Fatalf("Delete err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestTenantScopeRejectsNilOrganization(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordingRepository(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), uuid.Nil, uuid.New())
	if !stdErrors.Is(err, entities.ErrMissingTenant) {
		t.Fatalf("Delete err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statement may reach the database: %v", err)
	}
}

func TestTemplateSetDefault(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTemplateRepository(db)
	orgID, id := uuid.New(), uuid.New()

	rows := sqlmock.NewRows([]string{"id", "organization_id", "name", "steps", "is_default"}).
		AddRow(id.String(), orgID.String(), "Discovery", []byte(`[]`), false)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "process_templates"`)).WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "process_templates" SET "is_default"`)).
		WithArgs(false, sqlmock.AnyArg(), orgID.String(), true, id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "process_templates" SET "is_default"`)).
		WithArgs(true, sqlmock.AnyArg(), orgID.String(), id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SetDefault(context.Background(), orgID, id); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestTemplateSetDefaultNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTemplateRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "process_templates"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.SetDefault(context.Background(), uuid.New(), uuid.New())
	if !stdErrors.Is(err, entities.ErrTemplateNotFound) {
		t.Fatalf("SetDefault err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "sessions" WHERE expires_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
