// Package inbox carries raw gateway notifications from the webhook endpoints
// to the payment reconciler. Deliveries are acknowledged explicitly so a
// notification is never lost between receipt and reconciliation.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fitnexo/internal/gateway"
)

var ErrClosed = errors.New("inbox closed")

// Delivery is one received notification. Exactly one of Ack or Nack must be
// called. Nack with requeue puts the notification back with Tries incremented;
// without requeue it is moved to the dead-letter store.
type Delivery interface {
	Notification() gateway.Notification
	Ack(ctx context.Context) error
	Nack(ctx context.Context, requeue bool) error
}

// Source yields deliveries. Receive returns nil, nil when nothing arrived
// before its poll timeout.
type Source interface {
	Receive(ctx context.Context) (Delivery, error)
}

// Sink accepts notifications from the webhook endpoints.
type Sink interface {
	gateway.Publisher
}

func encode(n gateway.Notification) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encoding notification %s: %w", n.ID, err)
	}
	return data, nil
}

func decode(data []byte) (gateway.Notification, error) {
	var n gateway.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return n, fmt.Errorf("decoding notification: %w", err)
	}
	return n, nil
}
