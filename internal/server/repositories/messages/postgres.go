package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

const columns = `id, sender_id, recipient_id, text, created_at, edited_at, read_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scan(row interface{ Scan(...any) error }) (*models.Message, error) {
	m := &models.Message{}
	var recipient sql.NullString
	var edited, read sql.NullTime

	if err := row.Scan(&m.ID, &m.SenderID, &recipient, &m.Text, &m.Timestamp, &edited, &read); err != nil {
		return nil, err
	}
	if recipient.Valid {
		m.RecipientID = &recipient.String
	}
	if edited.Valid {
		m.EditedAt = &edited.Time
	}
	if read.Valid {
		m.ReadAt = &read.Time
	}
	return m, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Message{}
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {

	query :=
		`INSERT INTO messages (sender_id, recipient_id, text)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	var recipient sql.NullString
	if m.RecipientID != nil {
		recipient = sql.NullString{String: *m.RecipientID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query, m.SenderID, recipient, m.Text).Scan(&m.ID, &m.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + columns + ` FROM messages WHERE id = $1`

	m, err := scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) UpdateText(ctx context.Context, id, senderID, text string) (*models.Message, error) {
	query :=
		`UPDATE messages SET text = $3, edited_at = now()
		 WHERE id = $1 AND sender_id = $2
		 RETURNING ` + columns

	m, err := scan(r.db.QueryRowContext(ctx, query, id, senderID, text))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, senderID string) error {
	query := `DELETE FROM messages WHERE id = $1 AND sender_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, senderID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListBetween(ctx context.Context, userID, otherID string, limit int, before *time.Time) ([]*models.Message, error) {
	query :=
		`SELECT ` + columns + ` FROM messages
		 WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
		   AND ($3::timestamptz IS NULL OR created_at < $3)
		 ORDER BY created_at DESC
		 LIMIT $4
		 `

	var cursor sql.NullTime
	if before != nil {
		cursor = sql.NullTime{Time: *before, Valid: true}
	}

	result, err := r.query(ctx, query, userID, otherID, cursor, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(result)
	return result, nil
}

func (r *PostgresRepository) ListBroadcasts(ctx context.Context, limit int) ([]*models.Message, error) {
	query :=
		`SELECT ` + columns + ` FROM messages
		 WHERE recipient_id IS NULL
		 ORDER BY created_at DESC
		 LIMIT $1
		 `
	return r.query(ctx, query, limit)
}

func (r *PostgresRepository) ListInvolving(ctx context.Context, userID string, limit int) ([]*models.Message, error) {
	query :=
		`SELECT ` + columns + ` FROM messages
		 WHERE recipient_id IS NOT NULL AND (sender_id = $1 OR recipient_id = $1)
		 ORDER BY created_at DESC
		 LIMIT $2
		 `
	return r.query(ctx, query, userID, limit)
}

func (r *PostgresRepository) MarkRead(ctx context.Context, recipientID, senderID string) (int64, error) {
	query :=
		`UPDATE messages SET read_at = now()
		 WHERE recipient_id = $1 AND sender_id = $2 AND read_at IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query, recipientID, senderID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
