// Package inventory tracks the physical carrier units and derives their
// availability.
package inventory

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusCheckedOut  Status = "checked_out"
	StatusMaintenance Status = "maintenance"
	StatusRetired     Status = "retired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusCheckedOut, StatusMaintenance, StatusRetired:
		return true
	}
	return false
}

// Lendable reports whether an instance in this status may receive checkout
// requests. checked_out is excluded here even though the availability check
// also scans for an approved checkout row; the two must agree.
func (s Status) Lendable() bool {
	return s == StatusAvailable
}

// Instance is one physical, trackable unit of a catalog carrier.
type Instance struct {
	ID             uuid.UUID
	CarrierID      uuid.UUID `db:"carrier_id"`
	SerialNumber   *string   `db:"serial_number"`
	QRCodeValue    *string   `db:"qr_code_value"`
	ImageURL       *string   `db:"image_url"`
	Status         Status
	ConditionNotes *string `db:"condition_notes"`
	Issues         *string
	Location       *string
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// InstanceWithCarrier joins an instance with its catalog definition for
// listing pages.
type InstanceWithCarrier struct {
	Instance
	CarrierBrand string  `db:"carrier_brand"`
	CarrierModel *string `db:"carrier_model"`
	CarrierType  string  `db:"carrier_type"`
}
