package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
)

type MySQLProductRepo struct{ db DBTX }

func NewMySQLProductRepo(db DBTX) *MySQLProductRepo { return &MySQLProductRepo{db: db} }

const productCols = `id,name,price,category,stock,created_at,updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MySQLProductRepo) Create(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO products (id,name,price,category,stock,created_at,updated_at)
VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Price, p.Category, p.Stock, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *MySQLProductRepo) get(ctx context.Context, query, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	return p, err
}

func (r *MySQLProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.get(ctx, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
}

func (r *MySQLProductRepo) GetForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.get(ctx, `SELECT `+productCols+` FROM products WHERE id = ? FOR UPDATE`, id)
}

func (r *MySQLProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productCols+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *MySQLProductRepo) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE products
SET name = ?, price = ?, category = ?, stock = ?, updated_at = ?
WHERE id = ?`,
		p.Name, p.Price, p.Category, p.Stock, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return r.affected(ctx, res, p.ID)
}

func (r *MySQLProductRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *MySQLProductRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

// AdjustStock applies delta only while the result stays non-negative, so the
// check and the write are one statement.
func (r *MySQLProductRepo) AdjustStock(ctx context.Context, id string, delta int, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE products
SET stock = stock + ?, updated_at = ?
WHERE id = ? AND stock + ? >= 0`,
		delta, at, id, delta)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	ok, err := exists(ctx, r.db, "products", id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrProductNotFound
	}
	return domain.ErrInsufficientStock
}

// affected maps "no row changed" to not-found, telling it apart from an
// update that wrote identical values.
func (r *MySQLProductRepo) affected(ctx context.Context, res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	ok, err := exists(ctx, r.db, "products", id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrProductNotFound
	}
	return nil
}

var _ usecase.ProductRepo = (*MySQLProductRepo)(nil)
