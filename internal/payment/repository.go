package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fitnexo/internal/apperr"
	"fitnexo/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrPaymentNotFound    = fmt.Errorf("payment %w", apperr.ErrNotFound)
	ErrAlreadyCanceled    = fmt.Errorf("payment already canceled: %w", apperr.ErrInvalidState)
	ErrExternalIDOtherGym = fmt.Errorf("external id belongs to another gym: %w", apperr.ErrInvalidState)
)

const paymentColumns = `p.id, mb.gym_id, p.member_id, p.membership_id, p.amount, p.method, p.external_id,
	p.gateway_status, p.status, p.notes, p.paid_at, p.created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

// FindByExternalID looks across gyms since external ids are globally unique.
// It returns nil, nil when no payment carries the id.
func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		JOIN members mb ON mb.id = p.member_id
		WHERE p.external_id = $1
	`

	var p Payment
	err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &p, query, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) Insert(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (member_id, membership_id, amount, method, external_id, gateway_status, status, notes, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	row := db.Ext(ctx, r.db).QueryRowxContext(ctx, query,
		p.MemberID, p.MembershipID, p.Amount, string(p.Method), p.ExternalID,
		p.GatewayStatus, string(p.Status), p.Notes, p.PaidAt)
	return row.Scan(&p.ID, &p.CreatedAt)
}

func (r *repository) GetByID(ctx context.Context, gymID, paymentID uuid.UUID) (*Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		JOIN members mb ON mb.id = p.member_id
		WHERE p.id = $1 AND mb.gym_id = $2
	`

	var p Payment
	err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &p, query, paymentID, gymID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) SetStatus(ctx context.Context, paymentID uuid.UUID, status Status) error {
	res, err := db.Ext(ctx, r.db).ExecContext(ctx,
		`UPDATE payments SET status = $1 WHERE id = $2`, string(status), paymentID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}

	return nil
}
