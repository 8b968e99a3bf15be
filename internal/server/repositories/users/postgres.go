package users

import (
	"context"
	"database/sql"
	"errors"
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

func (r *PostgresRepository) Ensure(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (clerk_id, name, email)
         VALUES ($1, $2, $3)
		 ON CONFLICT (clerk_id) DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, user.ClerkID, user.Name, user.Email); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return r.GetByClerkID(ctx, user.ClerkID)
}

func (r *PostgresRepository) GetByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	query :=
		`SELECT id, clerk_id, name, email, phone, created_at FROM users
		 WHERE clerk_id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, clerkID).
		Scan(&user.ID, &user.ClerkID, &user.Name, &user.Email, &user.Phone, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, clerkID, name, phone string) (*models.User, error) {
	query :=
		`UPDATE users SET name = $2, phone = $3
		 WHERE clerk_id = $1
		 RETURNING id, clerk_id, name, email, phone, created_at
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, clerkID, name, phone).
		Scan(&user.ID, &user.ClerkID, &user.Name, &user.Email, &user.Phone, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
