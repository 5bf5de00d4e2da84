package member

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB

	// ExpireAfter, when non-zero, treats active members whose last payment
	// is older than the window as expired at read time.
	ExpireAfter time.Duration

	now func() time.Time
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) GetByUserID(ctx context.Context, userID string) (Member, error) {
	var m Member
	err := r.db.GetContext(ctx, &m, getByUserIDQuery, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, ErrNotMember
	}
	return m, err
}

const getByUserIDQuery = `SELECT * FROM members WHERE user_id = $1`

// ActiveMember resolves a user id to a member eligible to request
// checkouts. ErrNotMember when no row exists, ErrInactive when the
// membership does not pass the gate.
func (r *Repository) ActiveMember(ctx context.Context, userID string) (Member, error) {
	m, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return Member{}, err
	}
	if err := Eligible(m, r.now(), r.ExpireAfter); err != nil {
		return Member{}, err
	}
	return m, nil
}

func (r *Repository) List(ctx context.Context) ([]Member, error) {
	var members []Member
	err := r.db.SelectContext(ctx, &members, listMembersQuery)
	return members, err
}

const listMembersQuery = `SELECT * FROM members ORDER BY created_at`

// Upsert creates or replaces the membership record keyed by user id. This is
// the admin data-entry path; fee fields are recorded, never charged.
func (r *Repository) Upsert(ctx context.Context, m *Member) error {
	if !m.Status.Valid() {
		return ErrInvalidStatus
	}
	return r.db.GetContext(ctx, m, upsertMemberQuery,
		uuid.New(), m.UserID, m.Status, m.LastPaidAt, m.PaymentType,
		m.ContactEmail, m.ContactPhone, m.Notes)
}

const upsertMemberQuery = `
INSERT INTO members (id, user_id, status, last_paid_at, payment_type,
    contact_email, contact_phone, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id) DO UPDATE SET
    status = EXCLUDED.status,
    last_paid_at = EXCLUDED.last_paid_at,
    payment_type = EXCLUDED.payment_type,
    contact_email = EXCLUDED.contact_email,
    contact_phone = EXCLUDED.contact_phone,
    notes = EXCLUDED.notes,
    updated_at = now()
RETURNING *
`
