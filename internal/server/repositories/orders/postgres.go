package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

const columns = `id, stripe_session_id, payment_intent_id, product_id, seller_id, buyer_id, amount, currency, payment_status, order_status, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scan(row interface{ Scan(...any) error }) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(&o.ID, &o.StripeSessionID, &o.PaymentIntentID, &o.ProductID, &o.SellerID, &o.BuyerID,
		&o.Amount, &o.Currency, &o.PaymentStatus, &o.OrderStatus, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *PostgresRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	query := `SELECT ` + columns + ` FROM orders WHERE stripe_session_id = $1`

	o, err := scan(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {

	query :=
		`INSERT INTO orders (stripe_session_id, payment_intent_id, product_id, seller_id, buyer_id, amount, currency, payment_status, order_status)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (stripe_session_id) DO NOTHING
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		o.StripeSessionID, o.PaymentIntentID, o.ProductID, o.SellerID, o.BuyerID,
		o.Amount, o.Currency, o.PaymentStatus, o.OrderStatus).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)

	if err != nil {
		// DO NOTHING returns no row when a concurrent delivery won the race.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return o, nil
}

func (r *PostgresRepository) list(ctx context.Context, column, userID string) ([]*models.Order, error) {
	query := `SELECT ` + columns + ` FROM orders WHERE ` + column + ` = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Order{}
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error) {
	return r.list(ctx, "buyer_id", buyerID)
}

func (r *PostgresRepository) ListBySeller(ctx context.Context, sellerID string) ([]*models.Order, error) {
	return r.list(ctx, "seller_id", sellerID)
}
