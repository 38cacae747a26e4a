package repo

import (
	"context"
	"time"

	"github.com/aq2208/gorder-oms/internal/usecase"
)

type MySQLOutboxRepo struct{ db DBTX }

func NewMySQLOutboxRepo(db DBTX) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

func (r *MySQLOutboxRepo) Insert(ctx context.Context, topic string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO outbox (channel,payload,status,retry_count,next_attempt_at,created_at)
VALUES (?, ?, 'PENDING', 0, NOW(3), NOW(3))
`, topic, payload)
	return err
}

func (r *MySQLOutboxRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]usecase.OutboxRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,channel,payload,retry_count,next_attempt_at
FROM outbox
WHERE status = 'PENDING' AND next_attempt_at <= ?
ORDER BY id
LIMIT ?`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.OutboxRecord
	for rows.Next() {
		var rec usecase.OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.Topic, &rec.Payload, &rec.Attempts, &rec.NextAttempt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *MySQLOutboxRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox SET status = 'SENT', sent_at = ? WHERE id = ?`, at, id)
	return err
}

func (r *MySQLOutboxRepo) MarkRetry(ctx context.Context, id int64, attempts int, next time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET retry_count = ?, next_attempt_at = ? WHERE id = ?`, attempts, next, id)
	return err
}

func (r *MySQLOutboxRepo) MarkFailed(ctx context.Context, id int64, attempts int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET status = 'FAILED', retry_count = ? WHERE id = ?`, attempts, id)
	return err
}

var _ usecase.OutboxRepo = (*MySQLOutboxRepo)(nil)
