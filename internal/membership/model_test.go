package membership

import (
	"testing"
	"time"

	"fitnexo/internal/clock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	today := clock.Date(2026, time.March, 10)

	tests := []struct {
		name          string
		membership    *Membership
		wantState     State
		wantRemaining int
	}{
		{"no membership", nil, StateNone, 0},
		{"ended yesterday", &Membership{EndDate: clock.AddDays(today, -1), LifecycleState: LifecycleActive}, StateExpired, 0},
		{"ends today", &Membership{EndDate: today, LifecycleState: LifecycleActive}, StateExpiring, 0},
		{"ends in seven days", &Membership{EndDate: clock.AddDays(today, 7), LifecycleState: LifecycleActive}, StateExpiring, 7},
		{"ends in eight days", &Membership{EndDate: clock.AddDays(today, 8), LifecycleState: LifecycleActive}, StateActive, 8},
		{"replaced but in range", &Membership{EndDate: clock.AddDays(today, 20), LifecycleState: LifecycleReplaced}, StateExpired, 0},
		{"renewed", &Membership{EndDate: clock.AddDays(today, 2), LifecycleState: LifecycleRenewed}, StateExpired, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Derive(tt.membership, today)
			assert.Equal(t, tt.wantState, st.State)
			assert.Equal(t, tt.wantRemaining, st.DaysRemaining)
			assert.Equal(t, tt.membership, st.Membership)
		})
	}
}

func TestDerive_IgnoresTimeOfDay(t *testing.T) {
	m := &Membership{EndDate: clock.Date(2026, time.March, 10), LifecycleState: LifecycleActive}
	lateEvening := time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC)

	assert.True(t, IsActive(m, lateEvening))
	assert.Equal(t, StateExpiring, Derive(m, lateEvening).State)
}

func TestStatusActive(t *testing.T) {
	assert.True(t, Status{State: StateActive}.Active())
	assert.True(t, Status{State: StateExpiring}.Active())
	assert.False(t, Status{State: StateExpired}.Active())
	assert.False(t, Status{State: StateNone}.Active())
}

func TestFilterWhere(t *testing.T) {
	gymID := uuid.New()
	from := clock.Date(2026, time.March, 1)
	to := clock.Date(2026, time.March, 8)

	where, args := Filter{
		InGym(gymID),
		LifecycleIs(LifecycleActive),
		EndsOnOrAfter(from),
		EndsOnOrBefore(to),
	}.Where()

	assert.Equal(t, "WHERE mb.gym_id = $1 AND m.lifecycle_state = $2 AND m.end_date >= $3 AND m.end_date <= $4", where)
	assert.Equal(t, []any{gymID, "active", "2026-03-01", "2026-03-08"}, args)
}

func TestFilterWhere_LatestTakesNoArgs(t *testing.T) {
	where, args := Filter{LatestForMember(), InGym(uuid.Nil)}.Where()

	assert.Contains(t, where, "NOT EXISTS")
	assert.Contains(t, where, "later.end_date = m.end_date AND (later.created_at, later.id) > (m.created_at, m.id)")
	assert.Contains(t, where, "mb.gym_id = $1")
	assert.Len(t, args, 1)
}

func TestFilterWhere_Empty(t *testing.T) {
	where, args := Filter{}.Where()
	assert.Empty(t, where)
	assert.Nil(t, args)
}
