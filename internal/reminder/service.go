package reminder

import (
	"context"
	"time"

	"fitnexo/internal/gym"
	"fitnexo/internal/logger"
	"fitnexo/internal/membership"

	"github.com/google/uuid"
)

type Mailer interface {
	SendExpiryReminder(ctx context.Context, to, name, gymName string, endDate time.Time, daysRemaining int) error
}

// Summary counts what one reminder run did.
type Summary struct {
	Days    int `json:"days"`
	Queued  int `json:"queued"`
	NoEmail int `json:"no_email"`
	Failed  int `json:"failed"`
}

type Service struct {
	ledger  membership.Ledger
	gymRepo gym.Repository
	mailer  Mailer
}

func NewService(ledger membership.Ledger, gymRepo gym.Repository, mailer Mailer) *Service {
	return &Service{ledger: ledger, gymRepo: gymRepo, mailer: mailer}
}

// SendExpiring queues one reminder per membership of gymID ending within
// days. Members without an email are counted and skipped.
func (s *Service) SendExpiring(ctx context.Context, gymID uuid.UUID, days int) (*Summary, error) {
	g, err := s.gymRepo.GetGym(ctx, gymID)
	if err != nil {
		return nil, err
	}

	expiring, err := s.ledger.ExpiringWithin(ctx, gymID, days)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Days: days}
	for _, e := range expiring {
		if e.Email == nil || *e.Email == "" {
			sum.NoEmail++
			continue
		}

		name := e.FirstName
		if e.LastName != "" {
			name += " " + e.LastName
		}

		if err := s.mailer.SendExpiryReminder(ctx, *e.Email, name, g.Name, e.EndDate, e.DaysRemaining); err != nil {
			logger.WithError(err).Warn("expiry reminder not queued", "gym_id", gymID, "membership_id", e.MembershipID)
			sum.Failed++
			continue
		}
		sum.Queued++
	}

	logger.Info("expiry reminders queued",
		"gym_id", gymID, "days", days, "queued", sum.Queued, "no_email", sum.NoEmail, "failed", sum.Failed)
	return sum, nil
}
