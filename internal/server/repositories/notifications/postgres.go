package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

const columns = `id, recipient_user_id, sender_id, sender_name, product_id, product_title, offer_amount, read, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scan(row interface{ Scan(...any) error }) (*models.Notification, error) {
	n := &models.Notification{}
	err := row.Scan(&n.ID, &n.RecipientUserID, &n.SenderID, &n.SenderName,
		&n.ProductID, &n.ProductTitle, &n.OfferAmount, &n.Read, &n.CreatedAt)
	return n, err
}

func (r *PostgresRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {

	query :=
		`INSERT INTO notifications (recipient_user_id, sender_id, sender_name, product_id, product_title, offer_amount)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, read, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		n.RecipientUserID, n.SenderID, n.SenderName, n.ProductID, n.ProductTitle, n.OfferAmount).
		Scan(&n.ID, &n.Read, &n.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + columns + ` FROM notifications WHERE id = $1`

	n, err := scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	query :=
		`SELECT ` + columns + ` FROM notifications
		 WHERE recipient_user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Notification{}
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_user_id = $1 AND NOT read`

	var count int
	if err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	// The row is returned even when it was already read, so "no row" means
	// missing or not ours.
	query :=
		`UPDATE notifications SET read = TRUE
		 WHERE id = $1 AND recipient_user_id = $2
		 RETURNING id
		 `

	var got string
	if err := r.db.QueryRowContext(ctx, query, id, recipientID).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	query := `UPDATE notifications SET read = TRUE WHERE recipient_user_id = $1 AND NOT read`

	res, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, recipientID string) error {
	query := `DELETE FROM notifications WHERE id = $1 AND recipient_user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, recipientID)
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
