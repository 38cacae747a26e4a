package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/shopspring/decimal"
)

type MySQLOrderRepo struct{ db DBTX }

func NewMySQLOrderRepo(db DBTX) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

const orderCols = `id,order_number,customer_id,customer_name,customer_email,customer_phone,total,status,created_by,created_at,updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var (
		o      domain.Order
		custID sql.NullString
		status string
	)
	if err := row.Scan(&o.ID, &o.OrderNumber, &custID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.Total, &status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.CustomerID = custID.String
	o.Status = domain.Status(status)
	return &o, nil
}

func (r *MySQLOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO orders (`+orderCols+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.OrderNumber, nullString(o.CustomerID), o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.Total, string(o.Status), o.CreatedBy, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	for i, li := range o.Items {
		if _, err := r.db.ExecContext(ctx, `
INSERT INTO order_items (order_id,line_no,product_id,product_name,quantity,price)
VALUES (?,?,?,?,?,?)`,
			o.ID, i+1, li.ProductID, li.ProductName, li.Quantity, li.Price); err != nil {
			return err
		}
	}
	return nil
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
}

func (r *MySQLOrderRepo) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderCols+` FROM orders WHERE id = ? FOR UPDATE`, id)
}

func (r *MySQLOrderRepo) get(ctx context.Context, query, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *MySQLOrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	return r.query(ctx, `SELECT `+orderCols+` FROM orders ORDER BY order_number DESC`)
}

func (r *MySQLOrderRepo) Search(ctx context.Context, q string) ([]domain.Order, error) {
	like := "%" + escapeLike(strings.TrimSpace(q)) + "%"
	number, ok := domain.ParseOrderNumber(q)
	if !ok {
		number = -1
	}
	return r.query(ctx, `
SELECT `+orderCols+` FROM orders o
WHERE o.customer_name LIKE ?
   OR EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.product_name LIKE ?)
   OR o.order_number = ?
ORDER BY o.order_number DESC`, like, like, number)
}

func (r *MySQLOrderRepo) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *MySQLOrderRepo) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.LineItem, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(orderIDs)), ",")
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT order_id,product_id,product_name,quantity,price
FROM order_items WHERE order_id IN (`+placeholders+`)
ORDER BY order_id, line_no`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.LineItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			li      domain.LineItem
		)
		if err := rows.Scan(&orderID, &li.ProductID, &li.ProductName, &li.Quantity, &li.Price); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], li)
	}
	return out, rows.Err()
}

func (r *MySQLOrderRepo) UpdateStatus(ctx context.Context, id string, status domain.Status, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE orders
        SET status = ?, updated_at = ?
        WHERE id = ?`,
		string(status), at, id,
	)
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
	// rows == 0 → either not found or nothing changed
	ok, err := exists(ctx, r.db, "orders", id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *MySQLOrderRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *MySQLOrderRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}

// MaxOrderNumber locks the top of the order-number index until the
// transaction ends.
func (r *MySQLOrderRepo) MaxOrderNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT order_number FROM orders ORDER BY order_number DESC LIMIT 1 FOR UPDATE`).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func (r *MySQLOrderRepo) RevenueByStatus(ctx context.Context, status domain.Status) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total), 0) FROM orders WHERE status = ?`, string(status)).Scan(&sum)
	return sum, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
