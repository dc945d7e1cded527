package payment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"fitnexo/internal/clock"
	"fitnexo/internal/db"
	"fitnexo/internal/db/dbtest"
	"fitnexo/internal/gym"
	"fitnexo/internal/membership"
	"fitnexo/internal/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentDuplicateDelivery(t *testing.T) {
	conn := dbtest.Open(t)

	gymID := dbtest.CreateGym(t, conn, "Centro")
	memberID := dbtest.CreateMember(t, conn, gymID, "30111222", "Ana", "")
	planID := dbtest.CreatePlan(t, conn, gymID, "Mensual", "25000.00", 30)

	runner := db.NewRunner(conn, 20)
	clk := clock.System{Location: time.UTC}
	gyms := gym.NewRepository(conn)
	ledger := membership.NewLedger(membership.NewRepository(conn), gyms, runner, clk)
	reconciler := payment.NewReconciler(payment.NewRepository(conn), gyms, ledger, runner, clk, nil)

	externalID := "pay_123"
	ev := payment.Event{
		GymID:           gymID,
		MemberID:        memberID,
		PlanID:          &planID,
		Amount:          decimal.RequireFromString("25000.00"),
		Method:          payment.MethodGateway,
		ExternalID:      &externalID,
		GatewayStatus:   payment.GatewayApproved,
		WantsMembership: true,
	}

	const deliveries = 6
	var wg sync.WaitGroup
	results := make(chan *payment.Result, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := reconciler.Reconcile(context.Background(), ev)
			if assert.NoError(t, err) {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	processed := 0
	for res := range results {
		if res.Outcome == payment.OutcomeProcessed {
			processed++
		} else {
			assert.Equal(t, payment.OutcomeDuplicate, res.Outcome)
			assert.NotNil(t, res.Membership)
		}
	}
	assert.Equal(t, 1, processed)

	assert.Equal(t, 1, dbtest.Count(t, conn, `SELECT COUNT(*) FROM payments WHERE external_id = $1`, externalID))
	assert.Equal(t, 1, dbtest.Count(t, conn, `SELECT COUNT(*) FROM memberships WHERE member_id = $1`, memberID))
}

func TestPendingThenApproved(t *testing.T) {
	conn := dbtest.Open(t)

	gymID := dbtest.CreateGym(t, conn, "Centro")
	memberID := dbtest.CreateMember(t, conn, gymID, "30111999", "Bruno", "")
	planID := dbtest.CreatePlan(t, conn, gymID, "Mensual", "25000.00", 30)

	runner := db.NewRunner(conn, 5)
	clk := clock.System{Location: time.UTC}
	gyms := gym.NewRepository(conn)
	ledger := membership.NewLedger(membership.NewRepository(conn), gyms, runner, clk)
	reconciler := payment.NewReconciler(payment.NewRepository(conn), gyms, ledger, runner, clk, nil)

	externalID := "pay_777"
	ev := payment.Event{
		GymID:           gymID,
		MemberID:        memberID,
		PlanID:          &planID,
		Amount:          decimal.NewFromInt(25000),
		Method:          payment.MethodGateway,
		ExternalID:      &externalID,
		GatewayStatus:   payment.GatewayPending,
		WantsMembership: true,
	}

	res, err := reconciler.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, payment.OutcomeNotProcessed, res.Outcome)
	assert.Equal(t, 0, dbtest.Count(t, conn, `SELECT COUNT(*) FROM payments`))

	ev.GatewayStatus = payment.GatewayApproved
	res, err = reconciler.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, payment.OutcomeProcessed, res.Outcome)

	canceled, err := reconciler.Cancel(context.Background(), gymID, res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCanceled, canceled.Status)

	st, err := ledger.CurrentStatus(context.Background(), gymID, memberID)
	require.NoError(t, err)
	assert.True(t, st.Active())
}
