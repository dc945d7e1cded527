package gym

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
	ErrGymNotFound    = fmt.Errorf("gym %w", apperr.ErrNotFound)
	ErrMemberNotFound = fmt.Errorf("member %w", apperr.ErrNotFound)
	ErrPlanNotFound   = fmt.Errorf("plan %w", apperr.ErrNotFound)
)

const (
	memberColumns = `id, gym_id, national_id, first_name, last_name, email, phone, active, created_at, updated_at`
	planColumns   = `id, gym_id, name, description, price, duration_days, active, created_at, updated_at`
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) CatalogRepository {
	return &repository{db: database}
}

func (r *repository) GetGym(ctx context.Context, gymID uuid.UUID) (*Gym, error) {
	query := `
		SELECT id, name, address, phone, email, timezone, active, created_at, updated_at
		FROM gyms
		WHERE id = $1
	`

	var g Gym
	err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &g, query, gymID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrGymNotFound, gymID)
	}
	if err != nil {
		return nil, err
	}

	return &g, nil
}

// GetMember returns the member only when it belongs to gymID; members of
// other gyms are reported as not found.
func (r *repository) GetMember(ctx context.Context, gymID, memberID uuid.UUID) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE id = $1 AND gym_id = $2
	`
	return r.getMember(ctx, query, memberID, gymID)
}

// LockMember is GetMember plus a row lock held until the surrounding
// transaction ends. Every write to a member's memberships or access records
// goes through it first, which serializes writers per member.
func (r *repository) LockMember(ctx context.Context, gymID, memberID uuid.UUID) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE id = $1 AND gym_id = $2
		FOR UPDATE
	`
	return r.getMember(ctx, query, memberID, gymID)
}

func (r *repository) getMember(ctx context.Context, query string, memberID, gymID uuid.UUID) (*Member, error) {
	var m Member
	err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &m, query, memberID, gymID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (r *repository) GetPlan(ctx context.Context, gymID, planID uuid.UUID) (*Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE id = $1 AND gym_id = $2
	`

	var p Plan
	err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &p, query, planID, gymID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) ListPlans(ctx context.Context, gymID uuid.UUID, onlyActive bool) ([]Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE gym_id = $1 AND (active OR NOT $2)
		ORDER BY price, name
	`

	plans := []Plan{}
	if err := sqlx.SelectContext(ctx, db.Ext(ctx, r.db), &plans, query, gymID, onlyActive); err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *repository) CreatePlan(ctx context.Context, p *Plan) error {
	query := `
		INSERT INTO plans (gym_id, name, description, price, duration_days, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	return sqlx.GetContext(ctx, db.Ext(ctx, r.db), p, query,
		p.GymID, p.Name, p.Description, p.Price, p.DurationDays, p.Active)
}

// FindMemberByNationalID looks a member up by document number within gymID.
func (r *repository) FindMemberByNationalID(ctx context.Context, gymID uuid.UUID, nationalID string) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE gym_id = $1 AND national_id = $2
	`

	var m Member
	err := sqlx.GetContext(ctx, db.Ext(ctx, r.db), &m, query, gymID, nationalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: national id %s", ErrMemberNotFound, nationalID)
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}
