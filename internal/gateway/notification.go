package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitnexo/internal/apperr"
	"fitnexo/internal/payment"

	"github.com/google/uuid"
)

type Provider string

const (
	ProviderMercadoPago Provider = "mercadopago"
	ProviderStripe      Provider = "stripe"
)

var (
	// ErrIgnored marks notifications that do not describe a payment.
	ErrIgnored = errors.New("notification ignored")
	// ErrUnavailable is a provider that could not be reached. The notification
	// has not been seen yet and may be retried.
	ErrUnavailable      = fmt.Errorf("provider unavailable: %w", apperr.ErrExternalGateway)
	ErrUnknownProvider  = fmt.Errorf("unknown provider: %w", apperr.ErrExternalGateway)
	ErrInvalidSignature = fmt.Errorf("invalid signature: %w", apperr.ErrExternalGateway)
	ErrMalformed        = fmt.Errorf("malformed notification: %w", apperr.ErrExternalGateway)
)

// Notification is a webhook exactly as received. Body is kept byte for byte
// so signatures can be checked later.
type Notification struct {
	ID         uuid.UUID `json:"id"`
	Provider   Provider  `json:"provider"`
	Body       []byte    `json:"body"`
	Signature  string    `json:"signature,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Tries      int       `json:"tries"`
}

type Normalizer interface {
	Normalize(ctx context.Context, n Notification) (*payment.Event, error)
}

// Normalizers dispatches on the notification's provider.
type Normalizers map[Provider]Normalizer

func (ns Normalizers) Normalize(ctx context.Context, n Notification) (*payment.Event, error) {
	nz, ok := ns[n.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, n.Provider)
	}
	return nz.Normalize(ctx, n)
}

// Publisher accepts notifications for later processing.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}
