package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitnexo/internal/apperr"
	"fitnexo/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrAccessNotFound   = fmt.Errorf("open access record %w", apperr.ErrNotFound)
	ErrAlreadyCheckedIn = fmt.Errorf("member already checked in today: %w", apperr.ErrInvalidState)
	ErrCrossTenantQR    = fmt.Errorf("qr code of another gym: %w", apperr.ErrNotFound)
	ErrInvalidQR        = fmt.Errorf("qr code rejected: %w", apperr.ErrInvalidInput)
	ErrInvalidMethod    = fmt.Errorf("unknown check-in method: %w", apperr.ErrInvalidInput)
)

const recordColumns = `a.id, a.member_id, a.entry_time, a.entry_date, a.exit_time, a.method, a.created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

func (r *repository) FindOpenForDay(ctx context.Context, memberID uuid.UUID, day time.Time) (*AccessRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM access_records a
		WHERE a.member_id = $1 AND a.entry_date = $2 AND a.exit_time IS NULL
	`

	var rec AccessRecord
	err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &rec, query, memberID, day.Format(time.DateOnly))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

func (r *repository) Insert(ctx context.Context, rec *AccessRecord) error {
	query := `
		INSERT INTO access_records (member_id, entry_time, entry_date, method)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	row := db.Ext(ctx, r.db).QueryRowxContext(ctx, query,
		rec.MemberID, rec.EntryTime, rec.EntryDate.Format(time.DateOnly), string(rec.Method))
	return row.Scan(&rec.ID, &rec.CreatedAt)
}

// Close sets exit_time on an open record of a member of gymID.
func (r *repository) Close(ctx context.Context, gymID, recordID uuid.UUID, exitTime time.Time) (*AccessRecord, error) {
	query := `
		UPDATE access_records a
		SET exit_time = $1
		FROM members mb
		WHERE a.id = $2 AND a.exit_time IS NULL
		  AND mb.id = a.member_id AND mb.gym_id = $3
		RETURNING ` + recordColumns

	var rec AccessRecord
	err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &rec, query, exitTime, recordID, gymID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAccessNotFound, recordID)
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// ListOpen returns who is inside the gym on day, oldest entry first.
func (r *repository) ListOpen(ctx context.Context, gymID uuid.UUID, day time.Time) ([]AccessRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM access_records a
		JOIN members mb ON mb.id = a.member_id
		WHERE mb.gym_id = $1 AND a.entry_date = $2 AND a.exit_time IS NULL
		ORDER BY a.entry_time
	`

	records := []AccessRecord{}
	if err := sqlx.SelectContext(ctx, db.Ext(ctx, r.db), &records, query, gymID, day.Format(time.DateOnly)); err != nil {
		return nil, err
	}

	return records, nil
}
