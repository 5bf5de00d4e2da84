// Package member holds membership records and the gate that decides whether
// a user may request checkouts.
package member

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("member not found")
	// ErrNotMember: the user id has no member row at all. Distinct from an
	// inactive membership.
	ErrNotMember     = errors.New("user is not a member")
	ErrInactive      = errors.New("membership is not active")
	ErrInvalidStatus = errors.New("invalid member status")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusExpired, StatusSuspended:
		return true
	}
	return false
}

type PaymentType string

const (
	PaymentCash   PaymentType = "cash"
	PaymentCard   PaymentType = "card"
	PaymentVenmo  PaymentType = "venmo"
	PaymentPaypal PaymentType = "paypal"
	PaymentOther  PaymentType = "other"
)

type Member struct {
	ID           uuid.UUID
	UserID       string `db:"user_id"`
	Status       Status
	LastPaidAt   *time.Time   `db:"last_paid_at"`
	PaymentType  *PaymentType `db:"payment_type"`
	ContactEmail *string      `db:"contact_email"`
	ContactPhone *string      `db:"contact_phone"`
	Notes        *string
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Eligible decides whether a member may request a checkout at the given
// moment. expireAfter is an optional read-side policy: if non-zero, an
// active member whose last payment is older than the window counts as
// expired without waiting for an admin to flip the row. Zero disables it.
func Eligible(m Member, now time.Time, expireAfter time.Duration) error {
	if m.Status != StatusActive {
		return ErrInactive
	}
	if expireAfter > 0 {
		if m.LastPaidAt == nil || now.Sub(*m.LastPaidAt) > expireAfter {
			return ErrInactive
		}
	}
	return nil
}
