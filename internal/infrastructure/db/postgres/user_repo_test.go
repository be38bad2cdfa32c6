package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
UserRepo Test Cases:

1. GetByEmail: found, not found (sql.ErrNoRows), driver error, empty email
2. Create: success (id/created_at from RETURNING), unique violation (23505),
   other pg error, driver error, missing fields
*/

var userCols = []string{"id", "name", "email", "password_hash", "created_at"}

// setupMockDB creates a mock database and UserRepo for testing
func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *UserRepo) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock database")
	t.Cleanup(func() { _ = db.Close() })

	return db, mock, NewUserRepo(db)
}

func selectByEmailQuery() string {
	return regexp.QuoteMeta(`SELECT id, name, email, password_hash, created_at
FROM users
WHERE email = $1`)
}

func insertQuery() string {
	return regexp.QuoteMeta(`INSERT INTO users (name, email, password_hash)
VALUES ($1, $2, $3)
RETURNING id, name, email, password_hash, created_at`)
}

func TestUserRepo_GetByEmail_Success(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	createdAt := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	mock.ExpectQuery(selectByEmailQuery()).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), "A", "a@x.com", "$2a$10$hash", createdAt))

	u, err := repo.GetByEmail(context.Background(), "a@x.com")

	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "A", u.Name)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, "$2a$10$hash", u.PasswordHash)
	assert.Equal(t, createdAt, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail_IsCaseSensitive(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	// the email is passed through untouched; no lower-casing
	mock.ExpectQuery(selectByEmailQuery()).
		WithArgs("A@X.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "A@X.com")

	assert.True(t, domain.Is(err, "user_not_found"), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(selectByEmailQuery()).
		WithArgs("missing@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "missing@x.com")

	require.Error(t, err)
	assert.True(t, domain.Is(err, "user_not_found"), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail_DatabaseError(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(selectByEmailQuery()).
		WithArgs("a@x.com").
		WillReturnError(sql.ErrConnDone)

	_, err := repo.GetByEmail(context.Background(), "a@x.com")

	require.Error(t, err)
	assert.True(t, domain.Is(err, "db_unavailable"), "got %v", err)
	assert.True(t, errors.Is(err, sql.ErrConnDone), "cause should be preserved")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail_ScanError(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(selectByEmailQuery()).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("not-an-int", "A", "a@x.com", "h", time.Now()))

	_, err := repo.GetByEmail(context.Background(), "a@x.com")

	assert.True(t, domain.Is(err, "db_unavailable"), "got %v", err)
}

func TestUserRepo_GetByEmail_Empty_MissingField(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	_, err := repo.GetByEmail(context.Background(), "")

	assert.True(t, domain.Is(err, "missing_field"), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_Success(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	createdAt := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	mock.ExpectQuery(insertQuery()).
		WithArgs("A", "a@x.com", "$2a$10$hash").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(7), "A", "a@x.com", "$2a$10$hash", createdAt))

	u, err := repo.Create(context.Background(), domain.User{
		Name:         "A",
		Email:        "a@x.com",
		PasswordHash: "$2a$10$hash",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID, "id comes from the database")
	assert.Equal(t, createdAt, u.CreatedAt, "created_at comes from the database")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_UniqueViolation_EmailAlreadyExists(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(insertQuery()).
		WithArgs("A", "a@x.com", "h").
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: "users_email_key",
			Message:        `duplicate key value violates unique constraint "users_email_key"`,
		})

	_, err := repo.Create(context.Background(), domain.User{Name: "A", Email: "a@x.com", PasswordHash: "h"})

	require.Error(t, err)
	assert.True(t, domain.Is(err, "email_already_exists"), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_OtherPgError_DBUnavailable(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(insertQuery()).
		WithArgs("A", "a@x.com", "h").
		WillReturnError(&pgconn.PgError{Code: "53300", Message: "too many connections"})

	_, err := repo.Create(context.Background(), domain.User{Name: "A", Email: "a@x.com", PasswordHash: "h"})

	assert.True(t, domain.Is(err, "db_unavailable"), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_DuplicateTextWithoutCode_IsNotTreatedAsConflict(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(insertQuery()).
		WithArgs("A", "a@x.com", "h").
		WillReturnError(errors.New("duplicate something unrelated"))

	_, err := repo.Create(context.Background(), domain.User{Name: "A", Email: "a@x.com", PasswordHash: "h"})

	assert.True(t, domain.Is(err, "db_unavailable"), "got %v", err)
}

func TestUserRepo_Create_MissingFields(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	cases := []domain.User{
		{Email: "a@x.com", PasswordHash: "h"},
		{Name: "A", PasswordHash: "h"},
		{Name: "A", Email: "a@x.com"},
	}
	for _, u := range cases {
		_, err := repo.Create(context.Background(), u)
		assert.True(t, domain.Is(err, "missing_field"), "user %+v: got %v", u, err)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
