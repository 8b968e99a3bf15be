package blocks

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestBlockProduct(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+blocked_products\s*\(user_id,\s*product_id\)`
	mock.ExpectQuery(q).WithArgs("u1", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"blocked_at"}).AddRow(time.Now()))
	mock.ExpectQuery(q).WithArgs("u1", "p1").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(q).WithArgs("u1", "nope").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	b, err := repo.BlockProduct(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", b.ProductID)

	_, err = repo.BlockProduct(context.Background(), "u1", "p1")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = repo.BlockProduct(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUnblockProduct(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+blocked_products`
	mock.ExpectExec(q).WithArgs("u1", "p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("u1", "p1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("u1", "p1").WillReturnError(errors.New("boom"))

	require.NoError(t, repo.UnblockProduct(context.Background(), "u1", "p1"))
	assert.ErrorIs(t, repo.UnblockProduct(context.Background(), "u1", "p1"), common.ErrorNotFound)
	assert.ErrorContains(t, repo.UnblockProduct(context.Background(), "u1", "p1"), "db error: boom")
}

func TestListBlockedProducts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+user_id,\s*product_id,\s*blocked_at\s+FROM\s+blocked_products`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "product_id", "blocked_at"}).
			AddRow("u1", "p2", now).AddRow("u1", "p1", now))

	got, err := repo.ListBlockedProducts(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestBlockUser_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+blocked_users`).WithArgs("u1", "u2").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.BlockUser(context.Background(), "u1", "u2")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestUnblockUser_Absent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+blocked_users`).WithArgs("u1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.UnblockUser(context.Background(), "u1", "u2"), common.ErrorNotFound)
}

func TestListBlockedUsers(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+user_id,\s*blocked_user_id,\s*blocked_at\s+FROM\s+blocked_users`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "blocked_user_id", "blocked_at"}).AddRow("u1", "u9", time.Now()))

	got, err := repo.ListBlockedUsers(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u9", got[0].BlockedUserID)
}

func TestStatus(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS.*EXISTS`).
		WithArgs("u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"blocked", "blocked_by"}).AddRow(false, true))

	s, err := repo.Status(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, models.BlockStatus{Blocked: false, BlockedBy: true}, s)
	assert.True(t, s.Any())
}
