package membership

import (
	"context"
	"time"

	"fitnexo/internal/clock"
	"fitnexo/internal/db"
	"fitnexo/internal/gym"
	"fitnexo/internal/logger"
	"fitnexo/internal/metrics"

	"github.com/google/uuid"
)

const maxListingDays = 365

// Ledger owns memberships and keeps at most one of them active per member.
// Every call is scoped to the gym passed in.
type Ledger interface {
	OpenMembership(ctx context.Context, gymID, memberID, planID uuid.UUID, startDate *time.Time) (*Membership, error)
	RenewMembership(ctx context.Context, gymID, membershipID uuid.UUID, planID *uuid.UUID) (*Membership, error)
	GetMembership(ctx context.Context, gymID, membershipID uuid.UUID) (*Membership, error)
	CurrentStatus(ctx context.Context, gymID, memberID uuid.UUID) (*Status, error)
	ExpiringWithin(ctx context.Context, gymID uuid.UUID, days int) ([]Expiring, error)
	ExpiredSince(ctx context.Context, gymID uuid.UUID, days int) ([]Expiring, error)
}

type service struct {
	repo    Repository
	gymRepo gym.Repository
	tx      db.Transactor
	clock   clock.Clock
}

func NewLedger(repo Repository, gymRepo gym.Repository, tx db.Transactor, clk clock.Clock) Ledger {
	return &service{
		repo:    repo,
		gymRepo: gymRepo,
		tx:      tx,
		clock:   clk,
	}
}

// OpenMembership counts the opening only when it owns the transaction. A
// caller that joins it with its own transaction records the outcome after
// its commit.
func (s *service) OpenMembership(ctx context.Context, gymID, memberID, planID uuid.UUID, startDate *time.Time) (*Membership, error) {
	var opened *Membership
	owned := !db.InTransaction(ctx)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.gymRepo.LockMember(ctx, gymID, memberID); err != nil {
			return err
		}

		plan, err := s.gymRepo.GetPlan(ctx, gymID, planID)
		if err != nil {
			return err
		}

		start := clock.Today(s.clock)
		if startDate != nil {
			start = clock.Normalize(*startDate)
		}

		replaced, err := s.repo.DemoteActive(ctx, memberID, LifecycleReplaced)
		if err != nil {
			return err
		}

		m := &Membership{
			MemberID:       memberID,
			PlanID:         &plan.ID,
			StartDate:      start,
			EndDate:        clock.AddDays(start, plan.DurationDays),
			LifecycleState: LifecycleActive,
		}
		if err := s.repo.Insert(ctx, m); err != nil {
			return err
		}

		logger.Info("membership opened",
			"gym_id", gymID, "member_id", memberID, "plan_id", planID,
			"membership_id", m.ID, "replaced", replaced)
		opened = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if owned {
		metrics.RecordMembershipOpened("open")
	}
	return opened, nil
}

func (s *service) RenewMembership(ctx context.Context, gymID, membershipID uuid.UUID, planID *uuid.UUID) (*Membership, error) {
	var renewed *Membership

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		source, err := s.repo.GetByID(ctx, gymID, membershipID)
		if err != nil {
			return err
		}

		if _, err := s.gymRepo.LockMember(ctx, gymID, source.MemberID); err != nil {
			return err
		}

		// Re-read under the member lock; a concurrent renewal may have won.
		source, err = s.repo.GetByID(ctx, gymID, membershipID)
		if err != nil {
			return err
		}
		if source.LifecycleState == LifecycleRenewed {
			return ErrAlreadyRenewed
		}

		if planID == nil {
			planID = source.PlanID
		}
		if planID == nil {
			return gym.ErrPlanNotFound
		}

		plan, err := s.gymRepo.GetPlan(ctx, gymID, *planID)
		if err != nil {
			return err
		}

		start := clock.MaxDate(source.EndDate, clock.Today(s.clock))

		if err := s.repo.SetState(ctx, source.ID, LifecycleRenewed); err != nil {
			return err
		}
		if _, err := s.repo.DemoteActive(ctx, source.MemberID, LifecycleReplaced); err != nil {
			return err
		}

		m := &Membership{
			MemberID:       source.MemberID,
			PlanID:         &plan.ID,
			StartDate:      start,
			EndDate:        clock.AddDays(start, plan.DurationDays),
			LifecycleState: LifecycleActive,
		}
		if err := s.repo.Insert(ctx, m); err != nil {
			return err
		}

		logger.Info("membership renewed",
			"gym_id", gymID, "member_id", source.MemberID,
			"source_id", source.ID, "membership_id", m.ID)
		renewed = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMembershipOpened("renew")
	return renewed, nil
}

func (s *service) GetMembership(ctx context.Context, gymID, membershipID uuid.UUID) (*Membership, error) {
	return s.repo.GetByID(ctx, gymID, membershipID)
}

func (s *service) CurrentStatus(ctx context.Context, gymID, memberID uuid.UUID) (*Status, error) {
	if _, err := s.gymRepo.GetMember(ctx, gymID, memberID); err != nil {
		return nil, err
	}

	latest, err := s.repo.Latest(ctx, memberID)
	if err != nil {
		return nil, err
	}

	st := Derive(latest, clock.Today(s.clock))
	st.MemberID = memberID
	return &st, nil
}

// ExpiringWithin lists active memberships ending between today and
// today+days inclusive.
func (s *service) ExpiringWithin(ctx context.Context, gymID uuid.UUID, days int) ([]Expiring, error) {
	if days < 0 || days > maxListingDays {
		return nil, ErrInvalidDays
	}

	today := clock.Today(s.clock)
	rows, err := s.repo.List(ctx, Filter{
		InGym(gymID),
		LifecycleIs(LifecycleActive),
		EndsOnOrAfter(today),
		EndsOnOrBefore(clock.AddDays(today, days)),
	})
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].DaysRemaining = clock.DaysBetween(today, rows[i].EndDate)
	}
	return rows, nil
}

// ExpiredSince lists members whose latest membership ended during the last
// days days, today excluded.
func (s *service) ExpiredSince(ctx context.Context, gymID uuid.UUID, days int) ([]Expiring, error) {
	if days < 1 || days > maxListingDays {
		return nil, ErrInvalidDays
	}

	today := clock.Today(s.clock)
	rows, err := s.repo.List(ctx, Filter{
		InGym(gymID),
		LatestForMember(),
		EndsOnOrAfter(clock.AddDays(today, -days)),
		EndsOnOrBefore(clock.AddDays(today, -1)),
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}
