package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rv *Review) error {
	if rv.Rating < 1 || rv.Rating > 5 {
		return ErrInvalidRating
	}
	return r.db.GetContext(ctx, rv, createReviewQuery,
		uuid.New(), rv.CarrierInstanceID, rv.MemberID, rv.Rating, rv.Comment)
}

const createReviewQuery = `
INSERT INTO reviews (id, carrier_instance_id, member_id, rating, comment)
VALUES ($1, $2, $3, $4, $5)
RETURNING *
`

func (r *Repository) ListByInstance(ctx context.Context, instanceID uuid.UUID) ([]Review, error) {
	var reviews []Review
	err := r.db.SelectContext(ctx, &reviews, listByInstanceQuery, instanceID)
	return reviews, err
}

const listByInstanceQuery = `
SELECT * FROM reviews WHERE carrier_instance_id = $1 ORDER BY created_at DESC
`
