package payment

import (
	"context"

	"fitnexo/internal/apperr"
	"fitnexo/internal/clock"
	"fitnexo/internal/db"
	"fitnexo/internal/email"
	"fitnexo/internal/gym"
	"fitnexo/internal/logger"
	"fitnexo/internal/membership"
	"fitnexo/internal/metrics"

	"github.com/google/uuid"
)

// Reconciler turns payment events into payments and memberships, applying
// each external payment id at most once.
type Reconciler interface {
	Reconcile(ctx context.Context, ev Event) (*Result, error)
	Get(ctx context.Context, gymID, paymentID uuid.UUID) (*Payment, error)
	Cancel(ctx context.Context, gymID, paymentID uuid.UUID) (*Payment, error)
}

type ReceiptSender interface {
	SendPaymentReceipt(ctx context.Context, to, name string, r email.Receipt) error
}

type service struct {
	repo     Repository
	gymRepo  gym.Repository
	ledger   membership.Ledger
	tx       db.Transactor
	clock    clock.Clock
	receipts ReceiptSender
}

func NewReconciler(
	repo Repository,
	gymRepo gym.Repository,
	ledger membership.Ledger,
	tx db.Transactor,
	clk clock.Clock,
	receipts ReceiptSender,
) Reconciler {
	return &service{
		repo:     repo,
		gymRepo:  gymRepo,
		ledger:   ledger,
		tx:       tx,
		clock:    clk,
		receipts: receipts,
	}
}

func (s *service) Reconcile(ctx context.Context, ev Event) (*Result, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	// Once started, an event runs to commit or rollback even if the caller
	// goes away.
	ctx = context.WithoutCancel(ctx)

	var (
		res    *Result
		member *gym.Member
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		res, member = nil, nil

		if ev.ExternalID != nil {
			dup, err := s.duplicate(ctx, ev)
			if err != nil || dup != nil {
				res = dup
				return err
			}
		}

		if !ev.approved() {
			res = &Result{Outcome: OutcomeNotProcessed}
			return nil
		}

		m, err := s.gymRepo.LockMember(ctx, ev.GymID, ev.MemberID)
		if err != nil {
			return err
		}
		member = m

		var opened *membership.Membership
		if ev.WantsMembership && ev.PlanID != nil {
			opened, err = s.ledger.OpenMembership(ctx, ev.GymID, ev.MemberID, *ev.PlanID, nil)
			if err != nil {
				return err
			}
		}

		p := s.newPayment(ev)
		if opened != nil {
			p.MembershipID = &opened.ID
		}
		if err := s.repo.Insert(ctx, p); err != nil {
			return err
		}

		res = &Result{Outcome: OutcomeProcessed, Payment: p, Membership: opened}
		return nil
	})
	if err != nil {
		metrics.RecordPaymentReconciled("failed", string(ev.Method))
		logger.WithError(err).Error("payment event failed",
			"gym_id", ev.GymID, "member_id", ev.MemberID, "external_id", deref(ev.ExternalID))
		return nil, err
	}

	metrics.RecordPaymentReconciled(string(res.Outcome), string(ev.Method))

	switch res.Outcome {
	case OutcomeNotProcessed:
		logger.Warn("gateway payment not approved, nothing recorded",
			"gym_id", ev.GymID, "member_id", ev.MemberID,
			"external_id", deref(ev.ExternalID), "gateway_status", string(ev.GatewayStatus),
			"amount", ev.Amount.String())
	case OutcomeDuplicate:
		logger.Info("duplicate payment event ignored",
			"gym_id", ev.GymID, "external_id", deref(ev.ExternalID), "payment_id", res.Payment.ID)
	case OutcomeProcessed:
		logger.Info("payment recorded",
			"gym_id", ev.GymID, "member_id", ev.MemberID, "payment_id", res.Payment.ID,
			"method", string(ev.Method), "amount", ev.Amount.String())
		if res.Membership != nil {
			metrics.RecordMembershipOpened("payment")
		}
		s.sendReceipt(ctx, ev.GymID, member, res)
	}

	return res, nil
}

// duplicate returns the stored result for an already applied external id.
func (s *service) duplicate(ctx context.Context, ev Event) (*Result, error) {
	existing, err := s.repo.FindByExternalID(ctx, *ev.ExternalID)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.GymID != ev.GymID {
		return nil, ErrExternalIDOtherGym
	}

	res := &Result{Outcome: OutcomeDuplicate, Payment: existing}
	if existing.MembershipID != nil {
		m, err := s.ledger.GetMembership(ctx, ev.GymID, *existing.MembershipID)
		if err != nil && !apperr.IsNotFound(err) {
			return nil, err
		}
		res.Membership = m
	}
	return res, nil
}

func (s *service) newPayment(ev Event) *Payment {
	p := &Payment{
		GymID:      ev.GymID,
		MemberID:   ev.MemberID,
		Amount:     ev.Amount,
		Method:     ev.Method,
		ExternalID: ev.ExternalID,
		Status:     StatusCompleted,
		Notes:      ev.Notes,
		PaidAt:     s.clock.Now(),
	}
	if ev.GatewayStatus != "" {
		gs := string(ev.GatewayStatus)
		p.GatewayStatus = &gs
	}
	if ev.PaidAt != nil {
		p.PaidAt = *ev.PaidAt
	}
	return p
}

func (s *service) sendReceipt(ctx context.Context, gymID uuid.UUID, member *gym.Member, res *Result) {
	if s.receipts == nil || member == nil || member.Email == nil || *member.Email == "" {
		return
	}

	r := email.Receipt{
		PaymentID: res.Payment.ID.String(),
		Amount:    res.Payment.Amount.StringFixed(2),
		Method:    string(res.Payment.Method),
		PaidAt:    res.Payment.PaidAt,
	}
	if g, err := s.gymRepo.GetGym(ctx, gymID); err == nil {
		r.GymName = g.Name
	}
	if m := res.Membership; m != nil {
		r.CoverageFrom, r.CoverageUntil = &m.StartDate, &m.EndDate
		if m.PlanID != nil {
			if plan, err := s.gymRepo.GetPlan(ctx, gymID, *m.PlanID); err == nil {
				r.PlanName = plan.Name
			}
		}
	}

	if err := s.receipts.SendPaymentReceipt(ctx, *member.Email, member.FullName(), r); err != nil {
		logger.WithError(err).Warn("receipt email not queued", "payment_id", res.Payment.ID)
	}
}

func (s *service) Get(ctx context.Context, gymID, paymentID uuid.UUID) (*Payment, error) {
	return s.repo.GetByID(ctx, gymID, paymentID)
}

// Cancel marks a payment canceled. Any membership it funded stays as is.
func (s *service) Cancel(ctx context.Context, gymID, paymentID uuid.UUID) (*Payment, error) {
	var canceled *Payment

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, gymID, paymentID)
		if err != nil {
			return err
		}
		if p.Status == StatusCanceled {
			return ErrAlreadyCanceled
		}

		if err := s.repo.SetStatus(ctx, p.ID, StatusCanceled); err != nil {
			return err
		}
		p.Status = StatusCanceled
		canceled = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentCancellation()
	logger.Info("payment canceled", "gym_id", gymID, "payment_id", paymentID)
	return canceled, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
