package membership

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
	ErrMembershipNotFound = fmt.Errorf("membership %w", apperr.ErrNotFound)
	ErrAlreadyRenewed     = fmt.Errorf("membership already renewed: %w", apperr.ErrInvalidState)
	ErrInvalidDays        = fmt.Errorf("days out of range: %w", apperr.ErrInvalidInput)
)

const membershipColumns = `m.id, m.member_id, m.plan_id, m.start_date, m.end_date, m.lifecycle_state, m.created_at, m.updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

func (r *repository) Insert(ctx context.Context, m *Membership) error {
	query := `
		INSERT INTO memberships (member_id, plan_id, start_date, end_date, lifecycle_state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	row := db.Ext(ctx, r.db).QueryRowxContext(ctx, query,
		m.MemberID, m.PlanID, dateArg(m.StartDate), dateArg(m.EndDate), string(m.LifecycleState))
	return row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

// GetByID only finds memberships whose member belongs to gymID.
func (r *repository) GetByID(ctx context.Context, gymID, membershipID uuid.UUID) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships m
		JOIN members mb ON mb.id = m.member_id
		WHERE m.id = $1 AND mb.gym_id = $2
	`

	var m Membership
	err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &m, query, membershipID, gymID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMembershipNotFound, membershipID)
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// Latest returns the membership with the greatest end_date, preferring the
// active one on ties. It returns nil, nil when the member has none.
func (r *repository) Latest(ctx context.Context, memberID uuid.UUID) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships m
		WHERE m.member_id = $1
		ORDER BY m.end_date DESC, (m.lifecycle_state = 'active') DESC, m.created_at DESC
		LIMIT 1
	`

	var m Membership
	err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &m, query, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (r *repository) DemoteActive(ctx context.Context, memberID uuid.UUID, to LifecycleState) (int64, error) {
	query := `
		UPDATE memberships
		SET lifecycle_state = $1, updated_at = NOW()
		WHERE member_id = $2 AND lifecycle_state = 'active'
	`

	res, err := db.Ext(ctx, r.db).ExecContext(ctx, query, string(to), memberID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) SetState(ctx context.Context, membershipID uuid.UUID, state LifecycleState) error {
	query := `
		UPDATE memberships
		SET lifecycle_state = $1, updated_at = NOW()
		WHERE id = $2
	`

	res, err := db.Ext(ctx, r.db).ExecContext(ctx, query, string(state), membershipID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrMembershipNotFound, membershipID)
	}

	return nil
}

func (r *repository) List(ctx context.Context, f Filter) ([]Expiring, error) {
	where, args := f.Where()
	query := `
		SELECT m.id AS membership_id, m.member_id, mb.first_name, mb.last_name, mb.email, mb.phone,
			p.name AS plan_name, m.end_date, m.lifecycle_state
		FROM memberships m
		JOIN members mb ON mb.id = m.member_id
		LEFT JOIN plans p ON p.id = m.plan_id
		` + where + `
		ORDER BY m.end_date ASC, mb.last_name ASC
	`

	rows := []Expiring{}
	if err := sqlx.SelectContext(ctx, db.Ext(ctx, r.db), &rows, query, args...); err != nil {
		return nil, err
	}

	return rows, nil
}
