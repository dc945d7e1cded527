package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"os"
	"testing"
	"time"

	"fitnexo/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

func newTestService(rdb *redis.Client) *Service {
	svc := New(Config{
		From:     "noreply@fitnexo.app",
		FromName: "FitNexo",
		SMTPHost: "smtp.test.com",
		SMTPPort: "587",
		SMTPUser: "test@example.com",
		SMTPPass: "password",
	}, rdb)
	svc.retryDelay = 0
	return svc
}

func TestSend(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	svc := newTestService(db)

	err := svc.Send(ctx, "user@example.com", "User", "Hello", "Test body")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func queuedJob(t *testing.T, mr *miniredis.Miniredis) EmailJob {
	t.Helper()

	items, err := mr.List("emails")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var job EmailJob
	require.NoError(t, json.Unmarshal([]byte(items[0]), &job))
	return job
}

func TestSendPaymentReceipt(t *testing.T) {
	svc, mr := newMiniredisService(t)

	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 0, 30)
	err := svc.SendPaymentReceipt(context.Background(), "ana@example.com", "Ana", Receipt{
		PaymentID:     "9b2f",
		GymName:       "Centro",
		Amount:        "25000.00",
		Method:        "cash",
		PaidAt:        from,
		PlanName:      "Mensual",
		CoverageFrom:  &from,
		CoverageUntil: &until,
	})
	require.NoError(t, err)

	job := queuedJob(t, mr)
	assert.Equal(t, "payment_receipt", job.Kind)
	assert.Equal(t, "ana@example.com", job.To)
	assert.Contains(t, job.Body, "Amount: 25000.00")
	assert.Contains(t, job.Body, "Coverage: Mar 10, 2026 to Apr 9, 2026")
}

func TestSendExpiryReminder(t *testing.T) {
	tests := []struct {
		days    int
		subject string
	}{
		{0, "Your membership ends today"},
		{1, "Your membership ends tomorrow"},
		{3, "Your membership ends in 3 days"},
	}

	for _, tt := range tests {
		svc, mr := newMiniredisService(t)

		err := svc.SendExpiryReminder(context.Background(), "ana@example.com", "Ana", "Centro", time.Now(), tt.days)
		require.NoError(t, err)

		job := queuedJob(t, mr)
		assert.Equal(t, "expiry_reminder", job.Kind)
		assert.Equal(t, tt.subject, job.Subject)
	}
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectLLen("emails").SetVal(5)

	svc := newTestService(db)

	length := svc.QueueLength(ctx)
	assert.Equal(t, int64(5), length)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("emails", `.*`).SetErr(assert.AnError)

	svc := newTestService(db)

	err := svc.Send(ctx, "user@example.com", "User", "Hello", "Test body")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newMiniredisService(t *testing.T) (*Service, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return newTestService(rdb), mr
}

func TestProcessNext_Delivers(t *testing.T) {
	svc, mr := newMiniredisService(t)
	ctx := context.Background()

	var sentTo []string
	var body string
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "smtp.test.com:587", addr)
		sentTo = to
		body = string(msg)
		return nil
	}

	require.NoError(t, svc.Send(ctx, "ana@example.com", "Ana", "Hola", "Body"))
	svc.processNext(ctx)

	assert.Equal(t, []string{"ana@example.com"}, sentTo)
	assert.Contains(t, body, "Subject: Hola")
	assert.False(t, mr.Exists("emails"))
}

func TestProcessNext_RetriesThenFails(t *testing.T) {
	svc, mr := newMiniredisService(t)
	ctx := context.Background()

	attempts := 0
	svc.send = func(string, smtp.Auth, string, []string, []byte) error {
		attempts++
		return errors.New("smtp down")
	}

	require.NoError(t, svc.Send(ctx, "ana@example.com", "Ana", "Hola", "Body"))
	for i := 0; i < maxTries; i++ {
		svc.processNext(ctx)
	}

	assert.Equal(t, maxTries, attempts)
	assert.False(t, mr.Exists("emails"))

	failed, err := mr.List("emails:failed")
	require.NoError(t, err)
	require.Len(t, failed, 1)

	var entry struct {
		Job   EmailJob `json:"job"`
		Error string   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(failed[0]), &entry))
	assert.Equal(t, maxTries, entry.Job.Tries)
	assert.Equal(t, "smtp down", entry.Error)
}
