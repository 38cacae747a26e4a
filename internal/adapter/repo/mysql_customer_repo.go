package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
)

type MySQLCustomerRepo struct{ db DBTX }

func NewMySQLCustomerRepo(db DBTX) *MySQLCustomerRepo { return &MySQLCustomerRepo{db: db} }

const customerCols = `id,name,email,phone,created_at,updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MySQLCustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO customers (`+customerCols+`)
VALUES (?,?,?,?,?,?)`,
		c.ID, c.Name, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *MySQLCustomerRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, `SELECT `+customerCols+` FROM customers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	return c, err
}

func (r *MySQLCustomerRepo) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+customerCols+` FROM customers ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// FindCollision locks the colliding row, if any, so two concurrent creates of
// the same customer serialize on it.
func (r *MySQLCustomerRepo) FindCollision(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	found, err := scanCustomer(r.db.QueryRowContext(ctx, `
SELECT `+customerCols+` FROM customers
WHERE id <> ?
  AND ((? <> '' AND LOWER(email) = LOWER(?)) OR LOWER(TRIM(name)) = LOWER(?))
LIMIT 1 FOR UPDATE`,
		c.ID, c.Email, c.Email, strings.TrimSpace(c.Name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return found, err
}

func (r *MySQLCustomerRepo) Update(ctx context.Context, c *domain.Customer) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE customers SET name = ?, email = ?, phone = ?, updated_at = ?
WHERE id = ?`,
		c.Name, c.Email, c.Phone, c.UpdatedAt, c.ID)
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
	ok, err := exists(ctx, r.db, "customers", c.ID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *MySQLCustomerRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *MySQLCustomerRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, err
}

var _ usecase.CustomerRepo = (*MySQLCustomerRepo)(nil)
