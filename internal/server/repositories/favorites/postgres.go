package favorites

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/products"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Add stores the pair. A repeated pair yields ErrorAlreadyExists and an
// unknown product ErrorNotFound.
func (r *PostgresRepository) Add(ctx context.Context, userID, productID string) (*models.Favorite, error) {

	query :=
		`INSERT INTO favorites (user_id, product_id)
         VALUES ($1, $2)
		 RETURNING created_at
		 `

	f := &models.Favorite{UserID: userID, ProductID: productID}
	err := r.db.QueryRowContext(ctx, query, userID, productID).Scan(&f.CreatedAt)

	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err):
			return nil, common.ErrorAlreadyExists
		case dbx.IsForeignKeyViolation(err):
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return f, nil
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, productID string) error {
	query := `DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`

	res, err := r.db.ExecContext(ctx, query, userID, productID)
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

func (r *PostgresRepository) Exists(ctx context.Context, userID, productID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND product_id = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, productID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) ListProducts(ctx context.Context, userID string) ([]*models.Product, error) {
	query :=
		`SELECT ` + products.Columns + `
		 FROM favorites f
		 JOIN products p ON p.id = f.product_id
		 WHERE f.user_id = $1
		 ORDER BY f.created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Product{}
	for rows.Next() {
		p, err := products.ScanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
