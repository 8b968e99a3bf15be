package products

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

// Columns is the select list ScanProduct expects, aliased on "p".
const Columns = `p.id, p.title, p.description, p.price, p.category, p.condition, p.images, p.seller_id, p.status, p.created_at, p.updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanProduct reads the Columns list (plus any extra destinations) into a
// Product.
func ScanProduct(row Scanner, extra ...any) (*models.Product, error) {
	p := &models.Product{}
	var images []byte

	dest := []any{&p.ID, &p.Title, &p.Description, &p.Price, &p.Category, &p.Condition,
		&images, &p.SellerID, &p.Status, &p.CreatedAt, &p.UpdatedAt}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	p.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("decode images: %w", err)
		}
	}
	return p, nil
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {

	images, err := encodeImages(p.Images)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO products (title, description, price, category, condition, images, seller_id, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		p.Title, p.Description, p.Price, p.Category, p.Condition, images, p.SellerID, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + Columns + ` FROM products p WHERE p.id = $1`

	p, err := ScanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

// Update rewrites the editable fields. seller_id is part of the predicate and
// never of the SET list.
func (r *PostgresRepository) Update(ctx context.Context, p *models.Product) (*models.Product, error) {

	images, err := encodeImages(p.Images)
	if err != nil {
		return nil, err
	}

	query :=
		`UPDATE products
		 SET title = $3, description = $4, price = $5, category = $6, condition = $7, images = $8, updated_at = now()
		 WHERE id = $1 AND seller_id = $2
		 RETURNING updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		p.ID, p.SellerID, p.Title, p.Description, p.Price, p.Category, p.Condition, images).
		Scan(&p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, sellerID string) error {
	query := `DELETE FROM products WHERE id = $1 AND seller_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, sellerID)
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

// MarkSold flips the status unconditionally: the payment already happened.
func (r *PostgresRepository) MarkSold(ctx context.Context, id string) error {
	query := `UPDATE products SET status = $2, updated_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, common.ProductStatusSold); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f models.ProductFilter) ([]*models.Product, int, error) {
	where, args := buildWhere(f)

	from := ` FROM products p`
	if where != "" {
		from += ` WHERE ` + where
	}

	query := `SELECT ` + Columns + `, COUNT(*) OVER() AS total` + from + ` ORDER BY ` + orderBy(f.Sort)

	offset := common.Offset(f.Page, f.Limit)
	pageArgs := append(append([]any{}, args...), f.Limit, offset)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(pageArgs)-1, len(pageArgs))

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := []*models.Product{}
	total := 0
	for rows.Next() {
		p, err := ScanProduct(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	// The window count rides on the rows, so a page past the end needs its
	// own count.
	if len(items) == 0 && offset > 0 {
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
	}

	return items, total, nil
}

func buildWhere(f models.ProductFilter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) int {
		args = append(args, v)
		return len(args)
	}

	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("p.status = $%d", arg(f.Status)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		n := arg("%" + q + "%")
		conds = append(conds, fmt.Sprintf("(p.title ILIKE $%d OR p.description ILIKE $%d)", n, n))
	}
	if f.Category != "" {
		conds = append(conds, fmt.Sprintf("p.category = $%d", arg(f.Category)))
	}
	if f.Condition != "" {
		conds = append(conds, fmt.Sprintf("p.condition = $%d", arg(f.Condition)))
	}
	if f.SellerID != "" {
		conds = append(conds, fmt.Sprintf("p.seller_id = $%d", arg(f.SellerID)))
	}
	if f.MinPrice != nil {
		conds = append(conds, fmt.Sprintf("p.price >= $%d", arg(*f.MinPrice)))
	}
	if f.MaxPrice != nil {
		conds = append(conds, fmt.Sprintf("p.price <= $%d", arg(*f.MaxPrice)))
	}
	if f.ViewerID != "" {
		n := arg(f.ViewerID)
		conds = append(conds,
			fmt.Sprintf("NOT EXISTS (SELECT 1 FROM blocked_products bp WHERE bp.user_id = $%d AND bp.product_id = p.id)", n),
			fmt.Sprintf("NOT EXISTS (SELECT 1 FROM blocked_users bu WHERE bu.user_id = $%d AND bu.blocked_user_id = p.seller_id)", n),
		)
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			conds = append(conds, "FALSE")
		} else {
			ph := make([]string, len(f.IDs))
			for i, id := range f.IDs {
				ph[i] = fmt.Sprintf("$%d", arg(id))
			}
			conds = append(conds, "p.id IN ("+strings.Join(ph, ", ")+")")
		}
	}

	return strings.Join(conds, " AND "), args
}

func orderBy(sort string) string {
	switch sort {
	case models.SortPriceAsc:
		return "p.price ASC, p.created_at DESC"
	case models.SortPriceDesc:
		return "p.price DESC, p.created_at DESC"
	default:
		return "p.created_at DESC"
	}
}
