package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"fitnexo/internal/logger"
	"fitnexo/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey   = "emails"
	failedKey  = "emails:failed"
	maxTries   = 3
	retryDelay = 5 * time.Second
)

type EmailJob struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Kind    string    `json:"kind"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Config struct {
	From     string
	FromName string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service queues emails in Redis and delivers them from Start.
type Service struct {
	redis      *redis.Client
	cfg        Config
	send       sendFunc
	retryDelay time.Duration
}

func New(cfg Config, rdb *redis.Client) *Service {
	return &Service{
		redis:      rdb,
		cfg:        cfg,
		send:       smtp.SendMail,
		retryDelay: retryDelay,
	}
}

func (s *Service) Send(ctx context.Context, to, name, subject, body string) error {
	return s.enqueue(ctx, EmailJob{
		To:      to,
		Name:    name,
		Kind:    "generic",
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	})
}

func (s *Service) enqueue(ctx context.Context, job EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue email to %s: %v", job.To, err)
		metrics.RecordEmail(job.Kind, "queue_failed")
		return err
	}

	metrics.RecordEmail(job.Kind, "queued")
	logger.Infof("Email queued: %s to %s", job.Subject, job.To)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Email service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}
	metrics.EmailQueueLength.Set(float64(s.QueueLength(ctx)))

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	logger.Infof("Sending email to %s (attempt %d)", job.To, job.Tries)
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send email to %s: %v", job.To, err)

		if job.Tries < maxTries {
			select {
			case <-ctx.Done():
			case <-time.After(s.retryDelay):
			}
			data, _ := json.Marshal(job)
			s.redis.LPush(context.WithoutCancel(ctx), queueKey, data)
			logger.Infof("Retrying email to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			logger.Errorf("Email to %s failed after %d attempts", job.To, maxTries)
			s.saveFailed(ctx, job, err)
		}
		return
	}

	metrics.RecordEmail(job.Kind, "sent")
	logger.Infof("Email sent successfully to %s", job.To)
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" && s.cfg.SMTPPass != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	return s.send(addr, auth, s.cfg.From, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(ctx context.Context, job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.WithoutCancel(ctx), failedKey, data)
	metrics.RecordEmail(job.Kind, "failed")
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

// Receipt is the proof of payment sent to a member.
type Receipt struct {
	PaymentID     string
	GymName       string
	Amount        string
	Method        string
	PaidAt        time.Time
	PlanName      string
	CoverageFrom  *time.Time
	CoverageUntil *time.Time
}

func (s *Service) SendPaymentReceipt(ctx context.Context, to, name string, r Receipt) error {
	coverage := ""
	if r.CoverageFrom != nil && r.CoverageUntil != nil {
		coverage = fmt.Sprintf("Plan: %s\nCoverage: %s to %s\n",
			r.PlanName, r.CoverageFrom.Format("Jan 2, 2006"), r.CoverageUntil.Format("Jan 2, 2006"))
	}

	body := fmt.Sprintf(`Hi %s,

We received your payment. Thank you!

Receipt: %s
Amount: %s
Method: %s
Date: %s
%s
- %s`, name, r.PaymentID, r.Amount, r.Method, r.PaidAt.Format("Jan 2, 2006 at 3:04 PM"), coverage, r.GymName)

	return s.enqueue(ctx, EmailJob{
		To:      to,
		Name:    name,
		Kind:    "payment_receipt",
		Subject: "Payment receipt - " + r.GymName,
		Body:    body,
		Created: time.Now(),
	})
}

func (s *Service) SendExpiryReminder(ctx context.Context, to, name, gymName string, endDate time.Time, daysRemaining int) error {
	when := "today"
	switch {
	case daysRemaining == 1:
		when = "tomorrow"
	case daysRemaining > 1:
		when = fmt.Sprintf("in %d days", daysRemaining)
	}

	body := fmt.Sprintf(`Hi %s,

Your membership ends %s (%s).
Renew at the front desk or online to keep training without interruption.

- %s`, name, when, endDate.Format("Jan 2, 2006"), gymName)

	return s.enqueue(ctx, EmailJob{
		To:      to,
		Name:    name,
		Kind:    "expiry_reminder",
		Subject: "Your membership ends " + when,
		Body:    body,
		Created: time.Now(),
	})
}
