// Package carrier holds the catalog-level carrier definitions. A Carrier
// describes a model of baby carrier; the physical units that can actually be
// lent out live in the inventory package.
package carrier

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Type int

const (
	SoftStructured Type = iota
	RingSling
	WovenWrap
	StretchWrap
	MehDaiHalfBuckle
	Onbuhimo
)

var typeNames = [...]string{
	"soft_structured_carrier",
	"ring_sling",
	"woven_wrap",
	"stretch_wrap",
	"meh_dai_half_buckle",
	"onbuhimo",
}

type Carrier struct {
	ID              uuid.UUID
	Brand           string
	Type            Type
	Model           *string
	Material        *string
	Description     *string
	ImageURL        *string   `db:"image_url"`
	VideoURL        *string   `db:"video_url"`
	SafetyInfo      *string   `db:"safety_info"`
	RecallInfo      *string   `db:"recall_info"`
	SafetyTests     *string   `db:"safety_tests"`
	ManufacturerURL *string   `db:"manufacturer_url"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (t Type) String() string {
	return typeNames[t]
}

// ParseType maps the wire/database form of a carrier type onto Type.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown carrier type %q", s)
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t *Type) Scan(i any) error {
	switch v := i.(type) {
	case string:
		parsed, err := ParseType(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case []byte:
		return t.Scan(string(v))
	}
	return fmt.Errorf("cannot scan %T into carrier.Type", i)
}

func (t Type) Value() (driver.Value, error) {
	return t.String(), nil
}
