package access

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// FindOpenForDay returns nil, nil when the member has no open record on day.
	FindOpenForDay(ctx context.Context, memberID uuid.UUID, day time.Time) (*AccessRecord, error)
	Insert(ctx context.Context, rec *AccessRecord) error
	Close(ctx context.Context, gymID, recordID uuid.UUID, exitTime time.Time) (*AccessRecord, error)
	ListOpen(ctx context.Context, gymID uuid.UUID, day time.Time) ([]AccessRecord, error)
}
