package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	all := []Status{StatusPending, StatusApproved, StatusReturned, StatusCanceled, StatusDenied}

	allowed := map[Status]map[Status]bool{
		StatusPending: {
			StatusApproved: true,
			StatusDenied:   true,
			StatusCanceled: true,
		},
		StatusApproved: {
			StatusReturned: true,
		},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatesAllowNoTransitions(t *testing.T) {
	for _, s := range []Status{StatusReturned, StatusCanceled, StatusDenied} {
		require.True(t, s.Terminal(), "%s should be terminal", s)
		for _, next := range []Status{StatusPending, StatusApproved, StatusReturned, StatusCanceled, StatusDenied} {
			assert.False(t, s.CanTransitionTo(next), "%s -> %s must be rejected", s, next)
		}
	}

	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApproved.Terminal())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusApproved, StatusReturned, StatusCanceled, StatusDenied} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("confirmed").Valid())
	assert.False(t, Status("").Valid())
}

func TestDueDate(t *testing.T) {
	approvedAt := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), dueDate(approvedAt, 14))
	assert.Equal(t, time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC), dueDate(approvedAt, 1))
	assert.Equal(t, time.Date(2024, 1, 31, 10, 30, 0, 0, time.UTC), dueDate(approvedAt, 30))
}
