package payment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	FindByExternalID(ctx context.Context, externalID string) (*Payment, error)
	Insert(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, gymID, paymentID uuid.UUID) (*Payment, error)
	SetStatus(ctx context.Context, paymentID uuid.UUID, status Status) error
}
