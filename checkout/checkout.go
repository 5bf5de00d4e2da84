// Package checkout implements the lending lifecycle: a member requests an
// instance, an admin approves or denies the request, and an approved loan is
// eventually returned. Every transition that touches instance status runs in
// one transaction so the denormalized instance flag cannot drift from the
// checkout rows.
package checkout

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("checkout not found")
	ErrNotPending    = errors.New("checkout is not pending")
	ErrNotApproved   = errors.New("checkout is not approved")
	ErrNotOwner      = errors.New("checkout belongs to another member")
	ErrInvalidLength = errors.New("approved length must be at least one day")
	// ErrInstanceUnavailable: the instance is in maintenance, retired, or
	// already checked out.
	ErrInstanceUnavailable = errors.New("instance is not available")
	// ErrAlreadyCheckedOut: an approved checkout already holds the instance.
	ErrAlreadyCheckedOut = errors.New("instance already has an approved checkout")
	// ErrAlreadyRequested: the member already has a pending request for the
	// same instance.
	ErrAlreadyRequested = errors.New("member already has a pending request for this instance")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusReturned Status = "returned"
	StatusCanceled Status = "canceled"
	StatusDenied   Status = "denied"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusDenied, StatusCanceled},
	StatusApproved: {StatusReturned},
	StatusReturned: nil,
	StatusCanceled: nil,
	StatusDenied:   nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

type Checkout struct {
	ID                 uuid.UUID
	CarrierInstanceID  uuid.UUID `db:"carrier_instance_id"`
	MemberID           uuid.UUID `db:"member_id"`
	Status             Status
	RequestedAt        time.Time  `db:"requested_at"`
	ApprovedAt         *time.Time `db:"approved_at"`
	DueAt              *time.Time `db:"due_at"`
	ReturnedAt         *time.Time `db:"returned_at"`
	RequestedNotes     *string    `db:"requested_notes"`
	ConditionBefore    *string    `db:"condition_before"`
	ConditionAfter     *string    `db:"condition_after"`
	ApprovedLengthDays *int       `db:"approved_length_days"`
	AdminNotes         *string    `db:"admin_notes"`
}

// Detail is a checkout joined with member and carrier info for the admin
// board.
type Detail struct {
	Checkout
	MemberUserID string  `db:"member_user_id"`
	CarrierBrand string  `db:"carrier_brand"`
	CarrierModel *string `db:"carrier_model"`
	CarrierType  string  `db:"carrier_type"`
}

// dueDate computes the due timestamp for an approval: whole days from the
// approval moment, no rounding to midnight.
func dueDate(approvedAt time.Time, lengthDays int) time.Time {
	return approvedAt.Add(time.Duration(lengthDays) * 24 * time.Hour)
}
