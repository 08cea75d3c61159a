package availability

import (
	"context"
	"errors"
	"fmt"

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
}

// =========== Template Repository ===========

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository { return &templateRepoPG{pool: pool} }

func (r *templateRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const templateCols = `id, resource_id, location, weekday, start_time, end_time, active, created_at, updated_at`

func (r *templateRepoPG) scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.ResourceID, &t.Location, &t.Weekday, &t.StartTime, &t.EndTime,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *templateRepoPG) Create(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO availability_template (id, resource_id, location, weekday, start_time, end_time, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.ResourceID, t.Location, t.Weekday, t.StartTime, t.EndTime, t.Active)
	return err
}

func (r *templateRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	return r.scanTemplate(r.conn(ctx).QueryRow(ctx, `SELECT `+templateCols+` FROM availability_template WHERE id = $1`, id))
}

func (r *templateRepoPG) Update(ctx context.Context, t *Template) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE availability_template SET location=$2, weekday=$3, start_time=$4, end_time=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Location, t.Weekday, t.StartTime, t.EndTime, t.Active)
	return err
}

func (r *templateRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM availability_template WHERE id = $1`, id)
	return err
}

func (r *templateRepoPG) ListByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]*Template, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM availability_template WHERE resource_id = $1`, resourceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+templateCols+` FROM availability_template WHERE resource_id = $1 ORDER BY weekday, start_time LIMIT $2 OFFSET $3`, resourceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Template
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}

func (r *templateRepoPG) FindActive(ctx context.Context, resourceID uuid.UUID, location string, weekday int) (*Template, error) {
	t, err := r.scanTemplate(r.conn(ctx).QueryRow(ctx, `
		SELECT `+templateCols+` FROM availability_template
		WHERE resource_id = $1 AND location = $2 AND weekday = $3 AND active
		LIMIT 1`,
		resourceID, location, weekday))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active template: %w", err)
	}
	return t, nil
}

// =========== Resource Repository ===========

type resourceRepoPG struct{ pool *pgxpool.Pool }

func NewResourceRepoPG(pool *pgxpool.Pool) ResourceRepository { return &resourceRepoPG{pool: pool} }

func (r *resourceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const resourceCols = `id, name, role, location, calendar_id, active, created_at, updated_at`

func (r *resourceRepoPG) scanResource(row pgx.Row) (*Resource, error) {
	var res Resource
	err := row.Scan(&res.ID, &res.Name, &res.Role, &res.Location, &res.CalendarID,
		&res.Active, &res.CreatedAt, &res.UpdatedAt)
	return &res, err
}

func (r *resourceRepoPG) Create(ctx context.Context, res *Resource) error {
	res.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO resource (id, name, role, location, calendar_id, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		res.ID, res.Name, res.Role, res.Location, res.CalendarID, res.Active)
	return err
}

func (r *resourceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Resource, error) {
	return r.scanResource(r.conn(ctx).QueryRow(ctx, `SELECT `+resourceCols+` FROM resource WHERE id = $1`, id))
}

func (r *resourceRepoPG) Update(ctx context.Context, res *Resource) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE resource SET name=$2, role=$3, location=$4, calendar_id=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		res.ID, res.Name, res.Role, res.Location, res.CalendarID, res.Active)
	return err
}

func (r *resourceRepoPG) ListByRole(ctx context.Context, role string, limit, offset int) ([]*Resource, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM resource WHERE role = $1`, role).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+resourceCols+` FROM resource WHERE role = $1 ORDER BY created_at LIMIT $2 OFFSET $3`, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Resource
	for rows.Next() {
		res, err := r.scanResource(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	return items, total, nil
}
