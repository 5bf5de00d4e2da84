// Package review stores member feedback on individual carrier instances.
// Reviews are independent of the checkout lifecycle.
package review

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

type Review struct {
	ID                uuid.UUID
	CarrierInstanceID uuid.UUID `db:"carrier_instance_id"`
	MemberID          uuid.UUID `db:"member_id"`
	Rating            int
	Comment           *string
	CreatedAt         time.Time `db:"created_at"`
}
