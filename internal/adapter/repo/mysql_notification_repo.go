package repo

import (
	"context"
	"database/sql"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
)

type MySQLNotificationRepo struct{ db DBTX }

func NewMySQLNotificationRepo(db DBTX) *MySQLNotificationRepo { return &MySQLNotificationRepo{db: db} }

// Create relies on the unique event_id to drop redelivered events.
func (r *MySQLNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.ExecContext(ctx, `
INSERT IGNORE INTO notifications (id,event_id,message,type,created_at)
VALUES (?,?,?,?,?)`,
		n.ID, nullString(n.EventID), n.Message, string(n.Type), n.Time)
	return err
}

func (r *MySQLNotificationRepo) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,event_id,message,type,created_at
FROM notifications
ORDER BY created_at DESC, id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Notification{}
	for rows.Next() {
		var (
			n       domain.Notification
			eventID sql.NullString
			typ     string
		)
		if err := rows.Scan(&n.ID, &eventID, &n.Message, &typ, &n.Time); err != nil {
			return nil, err
		}
		n.EventID = eventID.String
		n.Type = domain.NotificationType(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}

var _ usecase.NotificationRepo = (*MySQLNotificationRepo)(nil)
