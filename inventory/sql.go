package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound      = errors.New("instance not found")
	ErrInvalidStatus = errors.New("invalid instance status")
	// ErrCheckedOut is returned when an admin tries to move an instance out
	// of circulation while an approved checkout still holds it.
	ErrCheckedOut = errors.New("instance has an open checkout")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, in *Instance) error {
	if in.Status == "" {
		in.Status = StatusAvailable
	}
	if !in.Status.Valid() {
		return ErrInvalidStatus
	}
	return r.db.GetContext(ctx, in, createInstanceQuery,
		uuid.New(), in.CarrierID, in.SerialNumber, in.Status,
		in.ConditionNotes, in.Issues, in.Location, in.ImageURL)
}

const createInstanceQuery = `
INSERT INTO carrier_instances (id, carrier_id, serial_number, status,
    condition_notes, issues, location, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING *
`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Instance, error) {
	var in Instance
	err := r.db.GetContext(ctx, &in, getInstanceQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Instance{}, ErrNotFound
	}
	return in, err
}

const getInstanceQuery = `SELECT * FROM carrier_instances WHERE id = $1`

func (r *Repository) ListByCarrier(ctx context.Context, carrierID uuid.UUID) ([]Instance, error) {
	var instances []Instance
	err := r.db.SelectContext(ctx, &instances, listByCarrierQuery, carrierID)
	return instances, err
}

const listByCarrierQuery = `
SELECT * FROM carrier_instances WHERE carrier_id = $1 ORDER BY created_at
`

// List returns every instance joined with its carrier, for the catalog and
// the admin inventory board.
func (r *Repository) List(ctx context.Context) ([]InstanceWithCarrier, error) {
	var instances []InstanceWithCarrier
	err := r.db.SelectContext(ctx, &instances, listInstancesQuery)
	return instances, err
}

const listInstancesQuery = `
SELECT i.*, c.brand AS carrier_brand, c.model AS carrier_model,
       c.type::text AS carrier_type
FROM carrier_instances i
JOIN carriers c ON i.carrier_id = c.id
ORDER BY c.brand, c.model NULLS LAST, i.created_at
`

// Update applies an admin edit to condition, location, image and status.
// Manual status changes are refused while an approved checkout exists, so
// the checkout lifecycle stays the only writer of checked_out.
func (r *Repository) Update(ctx context.Context, in *Instance) error {
	if !in.Status.Valid() {
		return ErrInvalidStatus
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current Status
	err = tx.GetContext(ctx, &current, lockInstanceStatusQuery, in.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if in.Status != current {
		var approved int
		if err := tx.GetContext(ctx, &approved, countApprovedQuery, in.ID); err != nil {
			return err
		}
		if approved > 0 {
			return ErrCheckedOut
		}
		if in.Status == StatusCheckedOut {
			// checked_out is derived from the checkout lifecycle, never set
			// by hand.
			return ErrInvalidStatus
		}
	}

	err = tx.GetContext(ctx, in, updateInstanceQuery,
		in.ID, in.Status, in.ConditionNotes, in.Issues, in.Location, in.ImageURL)
	if err != nil {
		return err
	}

	return tx.Commit()
}

const lockInstanceStatusQuery = `
SELECT status FROM carrier_instances WHERE id = $1 FOR UPDATE
`

const countApprovedQuery = `
SELECT count(*) FROM checkouts
WHERE carrier_instance_id = $1 AND status = 'approved'
`

const updateInstanceQuery = `
UPDATE carrier_instances SET
    status = $2, condition_notes = $3, issues = $4, location = $5,
    image_url = $6, updated_at = now()
WHERE id = $1
RETURNING *
`

// SetQRCode stores the scannable value printed on the unit's label.
func (r *Repository) SetQRCode(ctx context.Context, id uuid.UUID, value string) error {
	res, err := r.db.ExecContext(ctx, setQRCodeQuery, id, value)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const setQRCodeQuery = `
UPDATE carrier_instances SET qr_code_value = $2, updated_at = now() WHERE id = $1
`

// IsAvailable reports whether an instance can receive a checkout request:
// status is available and no approved checkout row exists. The row scan
// backs up the status flag rather than trusting it alone.
func (r *Repository) IsAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	var available bool
	err := r.db.GetContext(ctx, &available, isAvailableQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return available, err
}

const isAvailableQuery = `
SELECT i.status = 'available' AND NOT EXISTS (
    SELECT 1 FROM checkouts ck
    WHERE ck.carrier_instance_id = i.id AND ck.status = 'approved'
)
FROM carrier_instances i
WHERE i.id = $1
`

// Availability returns the available/not flag for every instance in one
// query, keyed by instance id, for catalog listings.
func (r *Repository) Availability(ctx context.Context) (map[uuid.UUID]bool, error) {
	var rows []struct {
		ID        uuid.UUID `db:"id"`
		Available bool      `db:"available"`
	}
	if err := r.db.SelectContext(ctx, &rows, availabilityQuery); err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Available
	}
	return out, nil
}

const availabilityQuery = `
SELECT i.id, i.status = 'available' AND NOT EXISTS (
    SELECT 1 FROM checkouts ck
    WHERE ck.carrier_instance_id = i.id AND ck.status = 'approved'
) AS available
FROM carrier_instances i
`
