package carrier

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("carrier not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, c *Carrier) error {
	return r.db.GetContext(ctx, c, createCarrierQuery,
		uuid.New(), c.Brand, c.Type, c.Model, c.Material, c.Description,
		c.ImageURL, c.VideoURL, c.SafetyInfo, c.RecallInfo, c.SafetyTests,
		c.ManufacturerURL)
}

const createCarrierQuery = `
INSERT INTO carriers (id, brand, type, model, material, description,
    image_url, video_url, safety_info, recall_info, safety_tests,
    manufacturer_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING *
`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Carrier, error) {
	var c Carrier
	err := r.db.GetContext(ctx, &c, getCarrierQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Carrier{}, ErrNotFound
	}
	return c, err
}

const getCarrierQuery = `SELECT * FROM carriers WHERE id = $1`

func (r *Repository) List(ctx context.Context) ([]Carrier, error) {
	var carriers []Carrier
	err := r.db.SelectContext(ctx, &carriers, listCarriersQuery)
	return carriers, err
}

const listCarriersQuery = `SELECT * FROM carriers ORDER BY brand, model NULLS LAST`

// Update rewrites the descriptive fields of a carrier. Identity (id, brand,
// type) stays as created unless explicitly provided.
func (r *Repository) Update(ctx context.Context, c *Carrier) error {
	err := r.db.GetContext(ctx, c, updateCarrierQuery,
		c.ID, c.Brand, c.Type, c.Model, c.Material, c.Description,
		c.ImageURL, c.VideoURL, c.SafetyInfo, c.RecallInfo, c.SafetyTests,
		c.ManufacturerURL)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const updateCarrierQuery = `
UPDATE carriers SET
    brand = $2, type = $3, model = $4, material = $5, description = $6,
    image_url = $7, video_url = $8, safety_info = $9, recall_info = $10,
    safety_tests = $11, manufacturer_url = $12, updated_at = now()
WHERE id = $1
RETURNING *
`

// Delete removes a carrier. Its instances go with it (ON DELETE CASCADE).
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, deleteCarrierQuery, id)
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

const deleteCarrierQuery = `DELETE FROM carriers WHERE id = $1`
