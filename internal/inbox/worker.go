package inbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"fitnexo/internal/apperr"
	"fitnexo/internal/gateway"
	"fitnexo/internal/logger"
	"fitnexo/internal/metrics"
	"fitnexo/internal/payment"
)

const (
	defaultMaxTries    = 3
	defaultConcurrency = 4
	defaultRetryDelay  = time.Second
)

type Result string

const (
	ResultReconciled Result = "reconciled"
	ResultIgnored    Result = "ignored"
	ResultRequeued   Result = "requeued"
	ResultDeadLetter Result = "dead_letter"
)

// Worker drains a Source into the reconciler, one goroutine per delivery.
type Worker struct {
	source      Source
	normalizer  gateway.Normalizer
	reconciler  payment.Reconciler
	maxTries    int
	concurrency int
	retryDelay  time.Duration
}

func NewWorker(source Source, normalizer gateway.Normalizer, reconciler payment.Reconciler) *Worker {
	return &Worker{
		source:      source,
		normalizer:  normalizer,
		reconciler:  reconciler,
		maxTries:    defaultMaxTries,
		concurrency: defaultConcurrency,
		retryDelay:  defaultRetryDelay,
	}
}

// Start blocks until ctx is cancelled and in-flight deliveries finish.
func (w *Worker) Start(ctx context.Context) {
	logger.Info("Inbox worker started", "concurrency", w.concurrency)

	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Inbox worker stopped")
			return
		case sem <- struct{}{}:
		}

		d, err := w.source.Receive(ctx)
		if err != nil || d == nil {
			<-sem
			if errors.Is(err, ErrClosed) {
				logger.Error("Inbox closed, worker stopping")
				return
			}
			if err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("inbox: receive failed")
				sleep(ctx, w.retryDelay)
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			w.Handle(context.WithoutCancel(ctx), d)
		}()
	}
}

// Handle processes one delivery to completion and settles it.
func (w *Worker) Handle(ctx context.Context, d Delivery) Result {
	n := d.Notification()
	log := logger.WithFields(map[string]interface{}{
		"notification_id": n.ID,
		"provider":        n.Provider,
		"tries":           n.Tries,
	})

	result, cause := w.process(ctx, n)
	switch result {
	case ResultRequeued:
		if n.Tries+1 >= w.maxTries {
			result = ResultDeadLetter
			break
		}
		log.Warn("inbox: notification requeued", "error", cause)
		sleep(ctx, w.retryDelay*time.Duration(n.Tries+1))
		if err := d.Nack(ctx, true); err != nil {
			log.Error("inbox: requeue failed", "error", err)
		}
	case ResultDeadLetter:
	default:
		if err := d.Ack(ctx); err != nil {
			log.Error("inbox: ack failed", "error", err)
		}
	}

	if result == ResultDeadLetter {
		log.Error("inbox: notification needs manual reconciliation", "error", cause, "body", string(n.Body))
		if err := d.Nack(ctx, false); err != nil {
			log.Error("inbox: dead-letter failed", "error", err)
		}
	}

	metrics.RecordInboxMessage(string(n.Provider), string(result))
	return result
}

func (w *Worker) process(ctx context.Context, n gateway.Notification) (Result, error) {
	ev, err := w.normalizer.Normalize(ctx, n)
	switch {
	case errors.Is(err, gateway.ErrIgnored):
		logger.Debug("inbox: notification ignored", "notification_id", n.ID, "reason", err.Error())
		return ResultIgnored, nil
	case errors.Is(err, gateway.ErrUnavailable):
		return ResultRequeued, err
	case err != nil:
		return ResultDeadLetter, err
	}

	res, err := w.reconciler.Reconcile(ctx, *ev)
	switch {
	case apperr.IsConflictRetryable(err):
		return ResultRequeued, err
	case err != nil:
		return ResultDeadLetter, err
	}

	logger.Info("inbox: notification reconciled",
		"notification_id", n.ID, "provider", n.Provider, "external_id", deref(ev.ExternalID), "outcome", res.Outcome)
	return ResultReconciled, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
