package task

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinsched/clinsched/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const taskCols = `id, surgery_id, type, name, due_date, status, priority, dependencies,
	completed_at, completed_by, created_at, updated_at`

func (r *repoPG) scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.SurgeryID, &t.Type, &t.Name, &t.DueDate, &t.Status, &t.Priority,
		&t.Dependencies, &t.CompletedAt, &t.CompletedBy, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *repoPG) CreateBatch(ctx context.Context, tasks []*Task) error {
	batch := &pgx.Batch{}
	for _, t := range tasks {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		batch.Queue(`
			INSERT INTO tasks (id, surgery_id, type, name, due_date, status, priority, dependencies)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			t.ID, t.SurgeryID, t.Type, t.Name, t.DueDate, t.Status, t.Priority, t.Dependencies)
	}
	results := r.conn(ctx).SendBatch(ctx, batch)
	defer results.Close()
	for range tasks {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	return r.scanTask(r.conn(ctx).QueryRow(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = $1`, id))
}

func (r *repoPG) ListBySurgery(ctx context.Context, surgeryID uuid.UUID) ([]*Task, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE surgery_id = $1 ORDER BY due_date ASC, type ASC`, surgeryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Task
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, t *Task) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE tasks SET status=$2, completed_at=$3, completed_by=$4, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Status, t.CompletedAt, t.CompletedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
