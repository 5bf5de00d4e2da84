package checkout

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const pgUniqueViolation = "23505"

type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Checkout, error) {
	var ck Checkout
	err := r.db.GetContext(ctx, &ck, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkout{}, ErrNotFound
	}
	return ck, err
}

const getByIDQuery = `SELECT * FROM checkouts WHERE id = $1`

// Request opens a pending checkout for a member on an instance. The
// instance row is locked for the duration so racing requests serialize:
// the instance must be lendable, not held by an approved checkout, and the
// member must not already have a pending request for it.
func (r *Repository) Request(ctx context.Context, instanceID, memberID uuid.UUID, notes *string) (Checkout, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Checkout{}, err
	}
	defer tx.Rollback()

	var status string
	err = tx.GetContext(ctx, &status, lockInstanceQuery, instanceID)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkout{}, ErrNotFound
	}
	if err != nil {
		return Checkout{}, err
	}
	if status != "available" {
		return Checkout{}, ErrInstanceUnavailable
	}

	var approved int
	if err := tx.GetContext(ctx, &approved, countApprovedForInstanceQuery, instanceID); err != nil {
		return Checkout{}, err
	}
	if approved > 0 {
		return Checkout{}, ErrInstanceUnavailable
	}

	var pending int
	if err := tx.GetContext(ctx, &pending, countPendingByMemberQuery, instanceID, memberID); err != nil {
		return Checkout{}, err
	}
	if pending > 0 {
		return Checkout{}, ErrAlreadyRequested
	}

	var ck Checkout
	err = tx.GetContext(ctx, &ck, insertRequestQuery, uuid.New(), instanceID, memberID, r.now(), notes)
	if err != nil {
		return Checkout{}, err
	}

	return ck, tx.Commit()
}

const lockInstanceQuery = `
SELECT status::text FROM carrier_instances WHERE id = $1 FOR UPDATE
`

const countApprovedForInstanceQuery = `
SELECT count(*) FROM checkouts
WHERE carrier_instance_id = $1 AND status = 'approved'
`

const countPendingByMemberQuery = `
SELECT count(*) FROM checkouts
WHERE carrier_instance_id = $1 AND member_id = $2 AND status = 'pending'
`

const insertRequestQuery = `
INSERT INTO checkouts (id, carrier_instance_id, member_id, status,
    requested_at, requested_notes)
VALUES ($1, $2, $3, 'pending', $4, $5)
RETURNING *
`

// Approve moves a pending checkout to approved and flips the instance to
// checked_out, in one transaction. The instance id comes from the checkout
// row itself. A partial unique index on (carrier_instance_id) WHERE
// status = 'approved' backstops the in-transaction check against races.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID, lengthDays int, conditionBefore, adminNotes *string) (Checkout, error) {
	if lengthDays < 1 {
		return Checkout{}, ErrInvalidLength
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Checkout{}, err
	}
	defer tx.Rollback()

	ck, err := r.lockCheckout(ctx, tx, id)
	if err != nil {
		return Checkout{}, err
	}
	if !ck.Status.CanTransitionTo(StatusApproved) {
		return Checkout{}, ErrNotPending
	}

	var approved int
	if err := tx.GetContext(ctx, &approved, countApprovedForInstanceQuery, ck.CarrierInstanceID); err != nil {
		return Checkout{}, err
	}
	if approved > 0 {
		return Checkout{}, ErrAlreadyCheckedOut
	}

	approvedAt := r.now()
	err = tx.GetContext(ctx, &ck, approveQuery,
		id, approvedAt, dueDate(approvedAt, lengthDays), lengthDays,
		conditionBefore, adminNotes)
	if err != nil {
		if isUniqueViolation(err) {
			return Checkout{}, ErrAlreadyCheckedOut
		}
		return Checkout{}, err
	}

	if _, err := tx.ExecContext(ctx, setInstanceStatusQuery, ck.CarrierInstanceID, "checked_out"); err != nil {
		return Checkout{}, err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return Checkout{}, ErrAlreadyCheckedOut
		}
		return Checkout{}, err
	}
	return ck, nil
}

const approveQuery = `
UPDATE checkouts SET
    status = 'approved', approved_at = $2, due_at = $3,
    approved_length_days = $4, condition_before = $5, admin_notes = $6
WHERE id = $1
RETURNING *
`

const setInstanceStatusQuery = `
UPDATE carrier_instances SET status = $2, updated_at = now() WHERE id = $1
`

// Deny rejects a pending checkout. The instance is untouched.
func (r *Repository) Deny(ctx context.Context, id uuid.UUID, adminNotes *string) (Checkout, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Checkout{}, err
	}
	defer tx.Rollback()

	ck, err := r.lockCheckout(ctx, tx, id)
	if err != nil {
		return Checkout{}, err
	}
	if !ck.Status.CanTransitionTo(StatusDenied) {
		return Checkout{}, ErrNotPending
	}

	err = tx.GetContext(ctx, &ck, denyQuery, id, adminNotes)
	if err != nil {
		return Checkout{}, err
	}

	return ck, tx.Commit()
}

const denyQuery = `
UPDATE checkouts SET status = 'denied', admin_notes = $2 WHERE id = $1
RETURNING *
`

// MarkReturned closes an approved checkout and releases the instance, in
// one transaction.
func (r *Repository) MarkReturned(ctx context.Context, id uuid.UUID, conditionAfter *string) (Checkout, error) {
	return r.finish(ctx, id, conditionAfter, nil)
}

// ForceReturn is the admin close-out path for an approved checkout outside
// the normal return flow (lost unit, lapsed member). Same effects as
// MarkReturned plus an admin note.
func (r *Repository) ForceReturn(ctx context.Context, id uuid.UUID, adminNotes *string) (Checkout, error) {
	return r.finish(ctx, id, nil, adminNotes)
}

func (r *Repository) finish(ctx context.Context, id uuid.UUID, conditionAfter, adminNotes *string) (Checkout, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Checkout{}, err
	}
	defer tx.Rollback()

	ck, err := r.lockCheckout(ctx, tx, id)
	if err != nil {
		return Checkout{}, err
	}
	if !ck.Status.CanTransitionTo(StatusReturned) {
		return Checkout{}, ErrNotApproved
	}

	err = tx.GetContext(ctx, &ck, returnQuery, id, r.now(), conditionAfter, adminNotes)
	if err != nil {
		return Checkout{}, err
	}

	if _, err := tx.ExecContext(ctx, setInstanceStatusQuery, ck.CarrierInstanceID, "available"); err != nil {
		return Checkout{}, err
	}

	return ck, tx.Commit()
}

const returnQuery = `
UPDATE checkouts SET
    status = 'returned', returned_at = $2, condition_after = $3,
    admin_notes = COALESCE($4, admin_notes)
WHERE id = $1
RETURNING *
`

// Cancel withdraws a pending request. Only the requesting member may cancel.
func (r *Repository) Cancel(ctx context.Context, id, memberID uuid.UUID) (Checkout, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Checkout{}, err
	}
	defer tx.Rollback()

	ck, err := r.lockCheckout(ctx, tx, id)
	if err != nil {
		return Checkout{}, err
	}
	if ck.MemberID != memberID {
		return Checkout{}, ErrNotOwner
	}
	if !ck.Status.CanTransitionTo(StatusCanceled) {
		return Checkout{}, ErrNotPending
	}

	err = tx.GetContext(ctx, &ck, cancelQuery, id)
	if err != nil {
		return Checkout{}, err
	}

	return ck, tx.Commit()
}

const cancelQuery = `
UPDATE checkouts SET status = 'canceled' WHERE id = $1 RETURNING *
`

func (r *Repository) lockCheckout(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (Checkout, error) {
	var ck Checkout
	err := tx.GetContext(ctx, &ck, lockCheckoutQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkout{}, ErrNotFound
	}
	return ck, err
}

const lockCheckoutQuery = `SELECT * FROM checkouts WHERE id = $1 FOR UPDATE`

// ListByMember fetches a member's checkouts, optionally filtered by status,
// newest request first.
func (r *Repository) ListByMember(ctx context.Context, memberID uuid.UUID, status *Status) ([]Checkout, error) {
	var checkouts []Checkout
	var err error
	if status != nil {
		err = r.db.SelectContext(ctx, &checkouts, listByMemberStatusQuery, memberID, *status)
	} else {
		err = r.db.SelectContext(ctx, &checkouts, listByMemberQuery, memberID)
	}
	return checkouts, err
}

const listByMemberQuery = `
SELECT * FROM checkouts WHERE member_id = $1 ORDER BY requested_at DESC
`

const listByMemberStatusQuery = `
SELECT * FROM checkouts WHERE member_id = $1 AND status = $2
ORDER BY requested_at DESC
`

// List fetches every checkout joined with member and carrier info for the
// admin board, oldest request first.
func (r *Repository) List(ctx context.Context) ([]Detail, error) {
	var details []Detail
	err := r.db.SelectContext(ctx, &details, listDetailsQuery)
	return details, err
}

const listDetailsQuery = `
SELECT ck.*, m.user_id AS member_user_id,
       c.brand AS carrier_brand, c.model AS carrier_model,
       c.type::text AS carrier_type
FROM checkouts ck
JOIN members m ON ck.member_id = m.id
JOIN carrier_instances i ON ck.carrier_instance_id = i.id
JOIN carriers c ON i.carrier_id = c.id
ORDER BY ck.requested_at
`

// PendingForMember returns the member's pending request on an instance, or
// nil when there is none.
func (r *Repository) PendingForMember(ctx context.Context, instanceID, memberID uuid.UUID) (*Checkout, error) {
	var ck Checkout
	err := r.db.GetContext(ctx, &ck, pendingForMemberQuery, instanceID, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ck, nil
}

const pendingForMemberQuery = `
SELECT * FROM checkouts
WHERE carrier_instance_id = $1 AND member_id = $2 AND status = 'pending'
LIMIT 1
`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
