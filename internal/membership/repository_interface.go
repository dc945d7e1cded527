package membership

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, m *Membership) error
	GetByID(ctx context.Context, gymID, membershipID uuid.UUID) (*Membership, error)
	Latest(ctx context.Context, memberID uuid.UUID) (*Membership, error)
	DemoteActive(ctx context.Context, memberID uuid.UUID, to LifecycleState) (int64, error)
	SetState(ctx context.Context, membershipID uuid.UUID, state LifecycleState) error
	List(ctx context.Context, f Filter) ([]Expiring, error)
}
