package dentalchart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentix/dentix/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type chartRepoPG struct{ pool *pgxpool.Pool }

// NewChartRepoPG stores charts as JSONB documents in the dental_chart table.
func NewChartRepoPG(pool *pgxpool.Pool) ChartRepository {
	return &chartRepoPG{pool: pool}
}

func (r *chartRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *chartRepoPG) scanRow(row pgx.Row) (*ChartDocument, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, transportErr("scan dental_chart", err)
	}
	return ParseChartDocument(raw)
}

func (r *chartRepoPG) Create(ctx context.Context, d *ChartDocument) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: encode chart: %v", ErrValidation, err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO dental_chart (id, patient_id, is_child, document, version_id, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.PatientID, d.IsChild, string(raw), d.Version, d.CreatedBy, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: patient %s %s chart", ErrConflict, d.PatientID, d.Dentition())
		}
		return transportErr("insert dental_chart", err)
	}
	return nil
}

func (r *chartRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ChartDocument, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT document FROM dental_chart WHERE id = $1`, id))
}

func (r *chartRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID, isChild bool) (*ChartDocument, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx,
		`SELECT document FROM dental_chart WHERE patient_id = $1 AND is_child = $2`, patientID, isChild))
}

func (r *chartRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ChartDocument, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT document FROM dental_chart WHERE patient_id = $1 ORDER BY is_child, updated_at DESC`, patientID)
	if err != nil {
		return nil, transportErr("query dental_chart", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *chartRepoPG) Update(ctx context.Context, d *ChartDocument) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: encode chart: %v", ErrValidation, err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE dental_chart SET document=$2, version_id=$3, updated_at=$4
		WHERE id = $1`,
		d.ID, string(raw), d.Version, d.UpdatedAt)
	if err != nil {
		return transportErr("update dental_chart", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *chartRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM dental_chart WHERE id = $1`, id)
	if err != nil {
		return transportErr("delete dental_chart", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *chartRepoPG) List(ctx context.Context, limit, offset int) ([]*ChartDocument, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM dental_chart`).Scan(&total); err != nil {
		return nil, 0, transportErr("count dental_chart", err)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT document FROM dental_chart ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, transportErr("query dental_chart", err)
	}
	defer rows.Close()
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *chartRepoPG) collect(rows pgx.Rows) ([]*ChartDocument, error) {
	var items []*ChartDocument
	for rows.Next() {
		d, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, transportErr("read dental_chart", err)
	}
	return items, nil
}
