package gym

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetGym(ctx context.Context, gymID uuid.UUID) (*Gym, error)
	GetMember(ctx context.Context, gymID, memberID uuid.UUID) (*Member, error)
	LockMember(ctx context.Context, gymID, memberID uuid.UUID) (*Member, error)
	GetPlan(ctx context.Context, gymID, planID uuid.UUID) (*Plan, error)
}

// CatalogRepository adds the reception desk lookups to Repository.
type CatalogRepository interface {
	Repository
	ListPlans(ctx context.Context, gymID uuid.UUID, onlyActive bool) ([]Plan, error)
	CreatePlan(ctx context.Context, p *Plan) error
	FindMemberByNationalID(ctx context.Context, gymID uuid.UUID, nationalID string) (*Member, error)
}
