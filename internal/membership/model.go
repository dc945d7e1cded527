package membership

import (
	"time"

	"fitnexo/internal/clock"

	"github.com/google/uuid"
)

type LifecycleState string

const (
	LifecycleActive   LifecycleState = "active"
	LifecycleReplaced LifecycleState = "replaced"
	LifecycleRenewed  LifecycleState = "renewed"
)

// State is the temporal status of a member, derived from dates at read time.
type State string

const (
	StateNone     State = "none"
	StateActive   State = "active"
	StateExpiring State = "expiring"
	StateExpired  State = "expired"
)

// ExpiringWindowDays is how close to end_date an active membership starts
// being reported as expiring.
const ExpiringWindowDays = 7

type Membership struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	MemberID       uuid.UUID      `db:"member_id" json:"member_id"`
	PlanID         *uuid.UUID     `db:"plan_id" json:"plan_id,omitempty"`
	StartDate      time.Time      `db:"start_date" json:"start_date"`
	EndDate        time.Time      `db:"end_date" json:"end_date"`
	LifecycleState LifecycleState `db:"lifecycle_state" json:"lifecycle_state"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

type Status struct {
	MemberID      uuid.UUID   `json:"member_id"`
	State         State       `json:"state"`
	Membership    *Membership `json:"membership,omitempty"`
	DaysRemaining int         `json:"days_remaining"`
}

// Active reports whether the member is covered today. Expiring counts.
func (s Status) Active() bool {
	return s.State == StateActive || s.State == StateExpiring
}

// IsActive reports whether m covers today: still tagged active and not past
// its end date.
func IsActive(m *Membership, today time.Time) bool {
	if m == nil || m.LifecycleState != LifecycleActive {
		return false
	}
	return !clock.Normalize(m.EndDate).Before(clock.Normalize(today))
}

// Derive computes the status of the membership chosen as a member's latest.
func Derive(m *Membership, today time.Time) Status {
	if m == nil {
		return Status{State: StateNone}
	}

	st := Status{MemberID: m.MemberID, Membership: m}
	if !IsActive(m, today) {
		st.State = StateExpired
		return st
	}

	st.DaysRemaining = clock.DaysBetween(today, m.EndDate)
	if st.DaysRemaining <= ExpiringWindowDays {
		st.State = StateExpiring
	} else {
		st.State = StateActive
	}
	return st
}

// Expiring is a row of the expiring/expired dashboard listings.
type Expiring struct {
	MembershipID   uuid.UUID      `db:"membership_id" json:"membership_id"`
	MemberID       uuid.UUID      `db:"member_id" json:"member_id"`
	FirstName      string         `db:"first_name" json:"first_name"`
	LastName       string         `db:"last_name" json:"last_name"`
	Email          *string        `db:"email" json:"email,omitempty"`
	Phone          *string        `db:"phone" json:"phone,omitempty"`
	PlanName       *string        `db:"plan_name" json:"plan_name,omitempty"`
	EndDate        time.Time      `db:"end_date" json:"end_date"`
	LifecycleState LifecycleState `db:"lifecycle_state" json:"lifecycle_state"`
	DaysRemaining  int            `db:"-" json:"days_remaining"`
}
