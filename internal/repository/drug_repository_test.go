package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medverify-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func drugRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "registration_number", "product_name", "manufacturer", "dosage_form", "strength", "status", "is_blacklisted", "created_at", "updated_at"})
}

func TestDrugRepositoryFindByRegistrationNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDrugRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, registration_number, product_name, manufacturer, dosage_form, strength, status, is_blacklisted, created_at, updated_at FROM drugs WHERE registration_number = $1 LIMIT 1")).
		WithArgs("A11-0591").
		WillReturnRows(drugRows().AddRow("d1", "A11-0591", "Paracetamol", "Acme Pharma", "Tablet", "500mg", "genuine", false, time.Now(), time.Now()))

	drug, err := repo.FindByRegistrationNumber(context.Background(), "A11-0591")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", drug.ProductName)
	assert.Equal(t, models.DrugStatusGenuine, drug.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugRepositoryFindByRegistrationNumberMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDrugRepository(db)

	mock.ExpectQuery("SELECT .+ FROM drugs WHERE registration_number").
		WithArgs("ZZ-404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByRegistrationNumber(context.Background(), "ZZ-404")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugRepositoryCreateSetsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDrugRepository(db)

	mock.ExpectExec("INSERT INTO drugs").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	drug := &models.Drug{RegistrationNumber: "A11-0591", ProductName: "Paracetamol", Manufacturer: "Acme Pharma", DosageForm: "Tablet"}
	require.NoError(t, repo.Create(context.Background(), drug))

	assert.NotEmpty(t, drug.ID)
	assert.Equal(t, models.DrugStatusGenuine, drug.Status)
	assert.False(t, drug.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDrugRepository(db)

	mock.ExpectExec("INSERT INTO drugs").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Drug{RegistrationNumber: "A11-0591", ProductName: "Paracetamol", Manufacturer: "Acme Pharma", DosageForm: "Tablet"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDrugRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE drugs SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("d1", models.DrugStatusFlagged, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "d1", models.DrugStatusFlagged))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDrugRepository(db)

	mock.ExpectQuery("SELECT .+ FROM drugs\\s+WHERE product_name ILIKE").
		WithArgs("%para%").
		WillReturnRows(drugRows().AddRow("d1", "A11-0591", "Paracetamol", "Acme Pharma", "Tablet", "500mg", "genuine", false, time.Now(), time.Now()))

	drugs, err := repo.List(context.Background(), "para")
	require.NoError(t, err)
	assert.Len(t, drugs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
