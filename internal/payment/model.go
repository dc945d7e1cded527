package payment

import (
	"time"

	"fitnexo/internal/membership"
	"fitnexo/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodCash     Method = "cash"
	MethodGateway  Method = "gateway"
	MethodTransfer Method = "transfer"
)

// GatewayStatus is the provider's verdict, normalized by the gateway adapters.
type GatewayStatus string

const (
	GatewayApproved GatewayStatus = "approved"
	GatewayPending  GatewayStatus = "pending"
	GatewayRejected GatewayStatus = "rejected"
	GatewayOther    GatewayStatus = "other"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusCanceled  Status = "canceled"
)

type Outcome string

const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeNotProcessed Outcome = "not_processed"
)

type Payment struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	GymID         uuid.UUID       `db:"gym_id" json:"gym_id"`
	MemberID      uuid.UUID       `db:"member_id" json:"member_id"`
	MembershipID  *uuid.UUID      `db:"membership_id" json:"membership_id,omitempty"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Method        Method          `db:"method" json:"method"`
	ExternalID    *string         `db:"external_id" json:"external_id,omitempty"`
	GatewayStatus *string         `db:"gateway_status" json:"gateway_status,omitempty"`
	Status        Status          `db:"status" json:"status"`
	Notes         string          `db:"notes" json:"notes"`
	PaidAt        time.Time       `db:"paid_at" json:"paid_at"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Event is a payment attempt as reported by the front desk or a gateway.
type Event struct {
	GymID           uuid.UUID       `json:"gym_id" validate:"required"`
	MemberID        uuid.UUID       `json:"member_id" validate:"required"`
	PlanID          *uuid.UUID      `json:"plan_id,omitempty"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	Method          Method          `json:"method" validate:"required,oneof=cash gateway transfer"`
	ExternalID      *string         `json:"external_id,omitempty" validate:"required_if=Method gateway,omitnil,min=1,max=255"`
	GatewayStatus   GatewayStatus   `json:"gateway_status,omitempty" validate:"omitempty,oneof=approved pending rejected other"`
	WantsMembership bool            `json:"wants_membership"`
	Notes           string          `json:"notes,omitempty" validate:"max=1000"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
}

func (e Event) Validate() error {
	return validation.Check(e)
}

// approved reports whether the event may create state. Manual entries are
// always approved; gateway ones only when the provider says so.
func (e Event) approved() bool {
	return e.Method != MethodGateway || e.GatewayStatus == GatewayApproved
}

type Result struct {
	Outcome    Outcome                `json:"outcome"`
	Payment    *Payment               `json:"payment,omitempty"`
	Membership *membership.Membership `json:"membership,omitempty"`
}
