package membership

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type predicateKind int

const (
	predGym predicateKind = iota
	predLifecycle
	predEndOnOrAfter
	predEndOnOrBefore
	predLatestForMember
)

// Predicate is one typed condition of a listing query. Values always travel
// as bind parameters.
type Predicate struct {
	kind  predicateKind
	gymID uuid.UUID
	state LifecycleState
	date  time.Time
}

func InGym(gymID uuid.UUID) Predicate {
	return Predicate{kind: predGym, gymID: gymID}
}

func LifecycleIs(state LifecycleState) Predicate {
	return Predicate{kind: predLifecycle, state: state}
}

func EndsOnOrAfter(d time.Time) Predicate {
	return Predicate{kind: predEndOnOrAfter, date: d}
}

func EndsOnOrBefore(d time.Time) Predicate {
	return Predicate{kind: predEndOnOrBefore, date: d}
}

// LatestForMember keeps only the membership with the greatest end_date of
// each member. Ties go to the most recently created row.
func LatestForMember() Predicate {
	return Predicate{kind: predLatestForMember}
}

// Filter is a conjunction of predicates over memberships m joined to
// members mb.
type Filter []Predicate

// Where renders the filter as a WHERE clause with $n placeholders.
func (f Filter) Where() (string, []any) {
	if len(f) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(f))
	args := make([]any, 0, len(f))
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, p := range f {
		switch p.kind {
		case predGym:
			clauses = append(clauses, "mb.gym_id = "+next(p.gymID))
		case predLifecycle:
			clauses = append(clauses, "m.lifecycle_state = "+next(string(p.state)))
		case predEndOnOrAfter:
			clauses = append(clauses, "m.end_date >= "+next(dateArg(p.date)))
		case predEndOnOrBefore:
			clauses = append(clauses, "m.end_date <= "+next(dateArg(p.date)))
		case predLatestForMember:
			clauses = append(clauses, `NOT EXISTS (
			SELECT 1 FROM memberships later
			WHERE later.member_id = m.member_id
				AND (later.end_date > m.end_date
					OR (later.end_date = m.end_date AND (later.created_at, later.id) > (m.created_at, m.id)))
		)`)
		}
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// dateArg formats a calendar date the way Postgres DATE input expects it, so
// the session time zone never shifts the day.
func dateArg(d time.Time) string {
	return d.Format(time.DateOnly)
}
