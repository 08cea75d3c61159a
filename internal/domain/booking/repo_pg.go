package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinsched/clinsched/internal/fault"
	"github.com/clinsched/clinsched/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const bookingCols = `id, resource_id, secondary_resource_id, location, start_time, end_time,
	event_type_code, status, external_event_ref, notes, created_at, updated_at`

func (r *repoPG) scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.ResourceID, &b.SecondaryResourceID, &b.Location, &b.StartTime, &b.EndTime,
		&b.EventTypeCode, &b.Status, &b.ExternalEventRef, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *repoPG) Create(ctx context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bookings (id, resource_id, secondary_resource_id, location, start_time, end_time,
			event_type_code, status, external_event_ref, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		b.ID, b.ResourceID, b.SecondaryResourceID, b.Location, b.StartTime, b.EndTime,
		b.EventTypeCode, b.Status, b.ExternalEventRef, b.Notes)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23P01 is exclusion_violation from the overlap EXCLUDE
		// constraint, the authoritative double-booking guard.
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return fault.Conflictf("slot unavailable: overlapping booking exists for resource %s", b.ResourceID)
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.scanBooking(r.conn(ctx).QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) ListByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE resource_id = $1 OR secondary_resource_id = $1`, resourceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM bookings
		WHERE resource_id = $1 OR secondary_resource_id = $1
		ORDER BY start_time DESC LIMIT $2 OFFSET $3`, resourceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (r *repoPG) FindOverlapping(ctx context.Context, resourceID uuid.UUID, location string, start, end time.Time) ([]*Booking, error) {
	// Half-open overlap. A resource is busy whether it is primary or the
	// matched anesthesiologist on the booking.
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+bookingCols+` FROM bookings
		WHERE (resource_id = $1 OR secondary_resource_id = $1)
		  AND location = $2
		  AND status <> 'cancelled'
		  AND start_time < $4 AND end_time > $3
		ORDER BY start_time ASC`, resourceID, location, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
