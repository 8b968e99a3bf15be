package messages

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
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

var cols = []string{"id", "sender_id", "recipient_id", "text", "created_at", "edited_at", "read_at"}

func TestCreate_DirectAndBroadcast(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)^INSERT\s+INTO\s+messages\s*\(sender_id,\s*recipient_id,\s*text\)`
	mock.ExpectQuery(q).
		WithArgs("a", sql.NullString{String: "b", Valid: true}, "hi").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("m1", now))
	mock.ExpectQuery(q).
		WithArgs("a", sql.NullString{}, "all").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("m2", now))

	b := "b"
	m, err := repo.Create(context.Background(), &models.Message{SenderID: "a", RecipientID: &b, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.True(t, m.Timestamp.Equal(now))

	m, err = repo.Create(context.Background(), &models.Message{SenderID: "a", Text: "all"})
	require.NoError(t, err)
	assert.Nil(t, m.RecipientID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_ScansNullables(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+messages\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("m1", "a", "b", "hi", now, now, nil))

	m, err := repo.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, m.RecipientID)
	assert.Equal(t, "b", *m.RecipientID)
	assert.NotNil(t, m.EditedAt)
	assert.Nil(t, m.ReadAt)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT`).WithArgs("m1").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "m1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateText(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)^UPDATE\s+messages\s+SET\s+text\s*=\s*\$3,\s*edited_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+sender_id\s*=\s*\$2`
	mock.ExpectQuery(q).WithArgs("m1", "a", "edited").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("m1", "a", "b", "edited", now, now, nil))
	mock.ExpectQuery(q).WithArgs("m2", "a", "x").WillReturnError(sql.ErrNoRows)

	m, err := repo.UpdateText(context.Background(), "m1", "a", "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", m.Text)
	assert.NotNil(t, m.EditedAt)

	_, err = repo.UpdateText(context.Background(), "m2", "a", "x")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+messages\s+WHERE\s+id\s*=\s*\$1\s+AND\s+sender_id\s*=\s*\$2$`
	mock.ExpectExec(q).WithArgs("m1", "a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("m1", "a").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "m1", "a"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "m1", "a"), common.ErrorNotFound)
}

func TestListBetween_ReturnsOldestFirst(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	before := t2.Add(time.Hour)

	mock.ExpectQuery(`(?s)WHERE\s+\(\(sender_id\s*=\s*\$1.*ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$4`).
		WithArgs("a", "b", sql.NullTime{Time: before, Valid: true}, 50).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m2", "b", "a", "second", t2, nil, nil).
			AddRow("m1", "a", "b", "first", t1, nil, nil))

	got, err := repo.ListBetween(context.Background(), "a", "b", 50, &before)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
}

func TestListBroadcasts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WHERE\s+recipient_id\s+IS\s+NULL`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("m9", "a", nil, "sale!", time.Now(), nil, nil))

	got, err := repo.ListBroadcasts(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].RecipientID)
}

func TestListInvolving(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WHERE\s+recipient_id\s+IS\s+NOT\s+NULL\s+AND\s+\(sender_id\s*=\s*\$1\s+OR\s+recipient_id\s*=\s*\$1\)`).
		WithArgs("a", 500).
		WillReturnRows(sqlmock.NewRows(cols))

	got, err := repo.ListInvolving(context.Background(), "a", 500)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarkRead(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+messages\s+SET\s+read_at\s*=\s*now\(\)\s+WHERE\s+recipient_id\s*=\s*\$1\s+AND\s+sender_id\s*=\s*\$2\s+AND\s+read_at\s+IS\s+NULL`).
		WithArgs("a", "b").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.MarkRead(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
