package surgery

import (
	"context"
	"time"

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

// =========== Surgery Repository ===========

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const surgeryCols = `id, patient_id, surgeon_id, booking_id, procedure_code, location, surgery_date,
	status, consultation_status, consultation_completed_at, created_at, updated_at`

func (r *repoPG) scanSurgery(row pgx.Row) (*Surgery, error) {
	var s Surgery
	err := row.Scan(&s.ID, &s.PatientID, &s.SurgeonID, &s.BookingID, &s.ProcedureCode, &s.Location,
		&s.SurgeryDate, &s.Status, &s.ConsultationStatus, &s.ConsultationCompletedAt, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *Surgery) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO surgeries (id, patient_id, surgeon_id, booking_id, procedure_code, location,
			surgery_date, status, consultation_status, consultation_completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		s.ID, s.PatientID, s.SurgeonID, s.BookingID, s.ProcedureCode, s.Location,
		s.SurgeryDate, s.Status, s.ConsultationStatus, s.ConsultationCompletedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Surgery, error) {
	return r.scanSurgery(r.conn(ctx).QueryRow(ctx, `SELECT `+surgeryCols+` FROM surgeries WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, s *Surgery) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE surgeries SET status=$2, consultation_status=$3, consultation_completed_at=$4, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Status, s.ConsultationStatus, s.ConsultationCompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Surgery, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM surgeries WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+surgeryCols+` FROM surgeries WHERE status = $1 ORDER BY surgery_date ASC LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Surgery
	for rows.Next() {
		s, err := r.scanSurgery(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListActiveDueWithin(ctx context.Context, from, to time.Time) ([]*Surgery, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+surgeryCols+` FROM surgeries
		WHERE surgery_date >= $1 AND surgery_date <= $2
		  AND status NOT IN ('COMPLETED', 'CANCELLED')
		ORDER BY surgery_date ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Surgery
	for rows.Next() {
		s, err := r.scanSurgery(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// =========== Requirement Repository ===========

type requirementRepoPG struct{ pool *pgxpool.Pool }

func NewRequirementRepoPG(pool *pgxpool.Pool) RequirementRepository {
	return &requirementRepoPG{pool: pool}
}

func (r *requirementRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const requirementCols = `id, surgery_id, type, status, due_date, submitted_at, verified_at, created_at, updated_at`

func (r *requirementRepoPG) scanRequirement(row pgx.Row) (*PatientRequirement, error) {
	var pr PatientRequirement
	err := row.Scan(&pr.ID, &pr.SurgeryID, &pr.Type, &pr.Status, &pr.DueDate,
		&pr.SubmittedAt, &pr.VerifiedAt, &pr.CreatedAt, &pr.UpdatedAt)
	return &pr, err
}

func (r *requirementRepoPG) CreateBatch(ctx context.Context, reqs []*PatientRequirement) error {
	for _, pr := range reqs {
		if pr.ID == uuid.Nil {
			pr.ID = uuid.New()
		}
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO patient_requirements (id, surgery_id, type, status, due_date)
			VALUES ($1,$2,$3,$4,$5)`,
			pr.ID, pr.SurgeryID, pr.Type, pr.Status, pr.DueDate)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *requirementRepoPG) ListBySurgery(ctx context.Context, surgeryID uuid.UUID) ([]*PatientRequirement, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+requirementCols+` FROM patient_requirements WHERE surgery_id = $1 ORDER BY due_date ASC`, surgeryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientRequirement
	for rows.Next() {
		pr, err := r.scanRequirement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, pr)
	}
	return items, rows.Err()
}

func (r *requirementRepoPG) Get(ctx context.Context, surgeryID uuid.UUID, reqType string) (*PatientRequirement, error) {
	return r.scanRequirement(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requirementCols+` FROM patient_requirements WHERE surgery_id = $1 AND type = $2`,
		surgeryID, reqType))
}

func (r *requirementRepoPG) Update(ctx context.Context, pr *PatientRequirement) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_requirements SET status=$2, submitted_at=$3, verified_at=$4, updated_at=NOW()
		WHERE id = $1`,
		pr.ID, pr.Status, pr.SubmittedAt, pr.VerifiedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requirementRepoPG) ListOverduePending(ctx context.Context, asOf time.Time) ([]*PatientRequirement, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+requirementCols+` FROM patient_requirements WHERE status = 'PENDING' AND due_date < $1`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientRequirement
	for rows.Next() {
		pr, err := r.scanRequirement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, pr)
	}
	return items, rows.Err()
}

// =========== Marker Repository ===========

type markerRepoPG struct{ pool *pgxpool.Pool }

func NewMarkerRepoPG(pool *pgxpool.Pool) MarkerRepository { return &markerRepoPG{pool: pool} }

func (r *markerRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *markerRepoPG) TrySet(ctx context.Context, key string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO notification_sent_markers (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`, key)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MemoryMarkers is an in-process MarkerRepository for tests and
// single-node development.
type MemoryMarkers struct {
	keys map[string]bool
}

func NewMemoryMarkers() *MemoryMarkers {
	return &MemoryMarkers{keys: make(map[string]bool)}
}

func (m *MemoryMarkers) TrySet(ctx context.Context, key string) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}
