package inbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fitnexo/internal/gateway"
	"fitnexo/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	amqpQueueName  = "payments.notifications"
	amqpFailedName = "payments.notifications.failed"
	amqpPrefetch   = 16
)

// AMQP is a RabbitMQ-backed inbox. The main queue dead-letters rejected
// messages into a durable failed queue.
type AMQP struct {
	conn       *amqp.Connection
	consume    *amqp.Channel
	publish    *amqp.Channel
	publishMu  sync.Mutex
	deliveries <-chan amqp.Delivery
}

func DialAMQP(url string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	a := &AMQP{conn: conn}
	if err := a.setup(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return a, nil
}

func (a *AMQP) setup() error {
	var err error
	if a.consume, err = a.conn.Channel(); err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	if a.publish, err = a.conn.Channel(); err != nil {
		return fmt.Errorf("channel open: %w", err)
	}

	if _, err := a.consume.QueueDeclare(amqpFailedName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if _, err := a.consume.QueueDeclare(amqpQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": amqpFailedName,
	}); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	if err := a.consume.Qos(amqpPrefetch, 0, false); err != nil {
		logger.WithError(err).Warn("inbox: set QoS failed")
	}

	a.deliveries, err = a.consume.Consume(amqpQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	return nil
}

func (a *AMQP) Publish(ctx context.Context, n gateway.Notification) error {
	body, err := encode(n)
	if err != nil {
		return err
	}

	a.publishMu.Lock()
	defer a.publishMu.Unlock()

	return a.publish.PublishWithContext(ctx, "", amqpQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID.String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (a *AMQP) Receive(ctx context.Context) (Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-a.deliveries:
		if !ok {
			return nil, ErrClosed
		}
		n, err := decode(d.Body)
		if err != nil {
			logger.WithError(err).Error("inbox: dropping unreadable message", "message_id", d.MessageId)
			_ = d.Nack(false, false)
			return nil, nil
		}
		return &amqpDelivery{inbox: a, d: d, n: n}, nil
	}
}

func (a *AMQP) Close() error {
	if a.conn == nil || a.conn.IsClosed() {
		return nil
	}
	return a.conn.Close()
}

type amqpDelivery struct {
	inbox *AMQP
	d     amqp.Delivery
	n     gateway.Notification
}

func (d *amqpDelivery) Notification() gateway.Notification {
	return d.n
}

func (d *amqpDelivery) Ack(ctx context.Context) error {
	return d.d.Ack(false)
}

// Nack with requeue republishes a copy carrying the incremented try count,
// since a broker requeue would redeliver the original body.
func (d *amqpDelivery) Nack(ctx context.Context, requeue bool) error {
	if !requeue {
		return d.d.Nack(false, false)
	}

	n := d.n
	n.Tries++
	if err := d.inbox.Publish(ctx, n); err != nil {
		_ = d.d.Nack(false, true)
		return err
	}
	return d.d.Ack(false)
}
