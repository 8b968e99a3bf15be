package blocks

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func mapInsertError(err error) error {
	switch {
	case dbx.IsUniqueViolation(err):
		return common.ErrorAlreadyExists
	case dbx.IsForeignKeyViolation(err):
		return common.ErrorNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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

func (r *PostgresRepository) BlockProduct(ctx context.Context, userID, productID string) (*models.BlockedProduct, error) {
	query :=
		`INSERT INTO blocked_products (user_id, product_id)
         VALUES ($1, $2)
		 RETURNING blocked_at
		 `

	b := &models.BlockedProduct{UserID: userID, ProductID: productID}
	if err := r.db.QueryRowContext(ctx, query, userID, productID).Scan(&b.BlockedAt); err != nil {
		return nil, mapInsertError(err)
	}
	return b, nil
}

func (r *PostgresRepository) UnblockProduct(ctx context.Context, userID, productID string) error {
	return r.exec(ctx, `DELETE FROM blocked_products WHERE user_id = $1 AND product_id = $2`, userID, productID)
}

func (r *PostgresRepository) ListBlockedProducts(ctx context.Context, userID string) ([]*models.BlockedProduct, error) {
	query :=
		`SELECT user_id, product_id, blocked_at FROM blocked_products
		 WHERE user_id = $1
		 ORDER BY blocked_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.BlockedProduct{}
	for rows.Next() {
		b := &models.BlockedProduct{}
		if err := rows.Scan(&b.UserID, &b.ProductID, &b.BlockedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) BlockUser(ctx context.Context, userID, blockedUserID string) (*models.BlockedUser, error) {
	query :=
		`INSERT INTO blocked_users (user_id, blocked_user_id)
         VALUES ($1, $2)
		 RETURNING blocked_at
		 `

	b := &models.BlockedUser{UserID: userID, BlockedUserID: blockedUserID}
	if err := r.db.QueryRowContext(ctx, query, userID, blockedUserID).Scan(&b.BlockedAt); err != nil {
		return nil, mapInsertError(err)
	}
	return b, nil
}

func (r *PostgresRepository) UnblockUser(ctx context.Context, userID, blockedUserID string) error {
	return r.exec(ctx, `DELETE FROM blocked_users WHERE user_id = $1 AND blocked_user_id = $2`, userID, blockedUserID)
}

func (r *PostgresRepository) ListBlockedUsers(ctx context.Context, userID string) ([]*models.BlockedUser, error) {
	query :=
		`SELECT user_id, blocked_user_id, blocked_at FROM blocked_users
		 WHERE user_id = $1
		 ORDER BY blocked_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.BlockedUser{}
	for rows.Next() {
		b := &models.BlockedUser{}
		if err := rows.Scan(&b.UserID, &b.BlockedUserID, &b.BlockedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Status(ctx context.Context, userID, otherID string) (models.BlockStatus, error) {
	query :=
		`SELECT
		   EXISTS (SELECT 1 FROM blocked_users WHERE user_id = $1 AND blocked_user_id = $2),
		   EXISTS (SELECT 1 FROM blocked_users WHERE user_id = $2 AND blocked_user_id = $1)
		 `

	var s models.BlockStatus
	if err := r.db.QueryRowContext(ctx, query, userID, otherID).Scan(&s.Blocked, &s.BlockedBy); err != nil {
		return models.BlockStatus{}, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
