package access

import (
	"context"
	"errors"
	"fmt"

	"fitnexo/internal/clock"
	"fitnexo/internal/db"
	"fitnexo/internal/gym"
	"fitnexo/internal/logger"
	"fitnexo/internal/membership"
	"fitnexo/internal/metrics"

	"github.com/google/uuid"
)

// AlreadyCheckedInError points at the record that is still open for today.
type AlreadyCheckedInError struct {
	MemberID uuid.UUID
	RecordID uuid.UUID
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("%s: member %s, open record %s", ErrAlreadyCheckedIn, e.MemberID, e.RecordID)
}

func (e *AlreadyCheckedInError) Unwrap() error {
	return ErrAlreadyCheckedIn
}

// Gate logs physical entries. An entry is recorded whatever the membership
// status; the status travels with the result for the front desk.
type Gate interface {
	CheckIn(ctx context.Context, gymID, memberID uuid.UUID, method Method) (*CheckInResult, error)
	CheckInQR(ctx context.Context, gymID uuid.UUID, code string) (*CheckInResult, error)
	CheckOut(ctx context.Context, gymID, recordID uuid.UUID) (*AccessRecord, error)
	Inside(ctx context.Context, gymID uuid.UUID) ([]AccessRecord, error)
	IssueQR(ctx context.Context, gymID, memberID uuid.UUID) (string, error)
}

type service struct {
	repo    Repository
	gymRepo gym.Repository
	ledger  membership.Ledger
	qr      *QRIssuer
	tx      db.Transactor
	clock   clock.Clock
}

func NewGate(
	repo Repository,
	gymRepo gym.Repository,
	ledger membership.Ledger,
	qr *QRIssuer,
	tx db.Transactor,
	clk clock.Clock,
) Gate {
	return &service{
		repo:    repo,
		gymRepo: gymRepo,
		ledger:  ledger,
		qr:      qr,
		tx:      tx,
		clock:   clk,
	}
}

func (s *service) CheckIn(ctx context.Context, gymID, memberID uuid.UUID, method Method) (*CheckInResult, error) {
	if method != MethodQR && method != MethodManual {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	status, err := s.ledger.CurrentStatus(ctx, gymID, memberID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	today := clock.Today(s.clock)

	var rec *AccessRecord
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.gymRepo.LockMember(ctx, gymID, memberID); err != nil {
			return err
		}

		open, err := s.repo.FindOpenForDay(ctx, memberID, today)
		if err != nil {
			return err
		}
		if open != nil {
			return &AlreadyCheckedInError{MemberID: memberID, RecordID: open.ID}
		}

		rec = &AccessRecord{
			MemberID:  memberID,
			EntryTime: now,
			EntryDate: today,
			Method:    method,
		}
		return s.repo.Insert(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyCheckedIn) {
			metrics.RecordCheckIn("already_checked_in")
		}
		return nil, err
	}

	res := &CheckInResult{
		Admitted:         true,
		Reason:           reasonFor(status),
		MembershipActive: status.Active(),
		Record:           rec,
		Status:           status,
	}

	metrics.RecordCheckIn(string(res.Reason))
	if !res.MembershipActive {
		logger.Info("check-in without active membership",
			"gym_id", gymID, "member_id", memberID, "record_id", rec.ID, "reason", res.Reason)
	}

	return res, nil
}

func (s *service) CheckInQR(ctx context.Context, gymID uuid.UUID, code string) (*CheckInResult, error) {
	claims, err := s.qr.Parse(code)
	if err != nil {
		metrics.RecordCheckIn("invalid_qr")
		return nil, err
	}
	if claims.GymID != gymID {
		metrics.RecordCheckIn("cross_tenant_qr")
		logger.Warn("qr code scanned at another gym",
			"gym_id", gymID, "qr_gym_id", claims.GymID, "member_id", claims.MemberID)
		return nil, fmt.Errorf("%w: member %s", ErrCrossTenantQR, claims.MemberID)
	}

	return s.CheckIn(ctx, gymID, claims.MemberID, MethodQR)
}

func (s *service) CheckOut(ctx context.Context, gymID, recordID uuid.UUID) (*AccessRecord, error) {
	return s.repo.Close(ctx, gymID, recordID, s.clock.Now())
}

func (s *service) Inside(ctx context.Context, gymID uuid.UUID) ([]AccessRecord, error) {
	return s.repo.ListOpen(ctx, gymID, clock.Today(s.clock))
}

func (s *service) IssueQR(ctx context.Context, gymID, memberID uuid.UUID) (string, error) {
	if _, err := s.gymRepo.GetMember(ctx, gymID, memberID); err != nil {
		return "", err
	}
	return s.qr.Issue(gymID, memberID)
}
