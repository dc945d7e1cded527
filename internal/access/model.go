package access

import (
	"time"

	"fitnexo/internal/membership"

	"github.com/google/uuid"
)

type Method string

const (
	MethodQR     Method = "qr"
	MethodManual Method = "manual"
)

type Reason string

const (
	ReasonOK                Reason = "ok"
	ReasonExpiring          Reason = "expiring"
	ReasonMembershipExpired Reason = "membership_expired"
	ReasonNoMembership      Reason = "no_membership"
)

// AccessRecord is one physical visit. EntryDate is the gym-local calendar day
// of the entry; a record stays open until ExitTime is set.
type AccessRecord struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	MemberID  uuid.UUID  `db:"member_id" json:"member_id"`
	EntryTime time.Time  `db:"entry_time" json:"entry_time"`
	EntryDate time.Time  `db:"entry_date" json:"entry_date"`
	ExitTime  *time.Time `db:"exit_time" json:"exit_time,omitempty"`
	Method    Method     `db:"method" json:"method"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

func (r *AccessRecord) Open() bool {
	return r.ExitTime == nil
}

// CheckInResult reports a logged entry. Admitted means the entry was recorded;
// MembershipActive is advisory for the front desk.
type CheckInResult struct {
	Admitted         bool               `json:"admitted"`
	Reason           Reason             `json:"reason"`
	MembershipActive bool               `json:"membership_active"`
	Record           *AccessRecord      `json:"record"`
	Status           *membership.Status `json:"status"`
}

func reasonFor(st *membership.Status) Reason {
	switch st.State {
	case membership.StateActive:
		return ReasonOK
	case membership.StateExpiring:
		return ReasonExpiring
	case membership.StateExpired:
		return ReasonMembershipExpired
	default:
		return ReasonNoMembership
	}
}
