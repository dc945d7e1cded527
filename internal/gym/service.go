package gym

import (
	"context"
	"fmt"
	"strings"

	"fitnexo/internal/apperr"
	"fitnexo/internal/logger"
	"fitnexo/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNationalIDRequired = fmt.Errorf("national id is required: %w", apperr.ErrInvalidInput)

// Catalog serves the gym profile, its plans and member lookups to the desk.
type Catalog interface {
	Gym(ctx context.Context, gymID uuid.UUID) (*Gym, error)
	Plans(ctx context.Context, gymID uuid.UUID, includeInactive bool) ([]Plan, error)
	CreatePlan(ctx context.Context, gymID uuid.UUID, req CreatePlanRequest) (*Plan, error)
	MemberByNationalID(ctx context.Context, gymID uuid.UUID, nationalID string) (*Member, error)
}

type CreatePlanRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	Description  string          `json:"description" validate:"max=2000"`
	Price        decimal.Decimal `json:"price" validate:"gt=0"`
	DurationDays int             `json:"duration_days" validate:"gte=1,lte=3650"`
}

type service struct {
	repo CatalogRepository
}

func NewService(repo CatalogRepository) Catalog {
	return &service{
		repo: repo,
	}
}

func (s *service) Gym(ctx context.Context, gymID uuid.UUID) (*Gym, error) {
	return s.repo.GetGym(ctx, gymID)
}

func (s *service) Plans(ctx context.Context, gymID uuid.UUID, includeInactive bool) ([]Plan, error) {
	return s.repo.ListPlans(ctx, gymID, !includeInactive)
}

func (s *service) CreatePlan(ctx context.Context, gymID uuid.UUID, req CreatePlanRequest) (*Plan, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Check(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetGym(ctx, gymID); err != nil {
		return nil, err
	}

	p := &Plan{
		GymID:        gymID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Active:       true,
	}
	if err := s.repo.CreatePlan(ctx, p); err != nil {
		return nil, err
	}

	logger.Info("plan created", "gym_id", gymID, "plan_id", p.ID, "duration_days", p.DurationDays)
	return p, nil
}

func (s *service) MemberByNationalID(ctx context.Context, gymID uuid.UUID, nationalID string) (*Member, error) {
	nationalID = strings.TrimSpace(nationalID)
	if nationalID == "" {
		return nil, ErrNationalIDRequired
	}
	return s.repo.FindMemberByNationalID(ctx, gymID, nationalID)
}
