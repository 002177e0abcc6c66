package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"incorpapi/internal/model"
	"incorpapi/internal/repository"
)

// RegistrationPostgres is a PostgreSQL implementation of repository.RegistrationRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Roster, documents, fees and sharing are JSONB columns.
type RegistrationPostgres struct {
	db *sql.DB
}

// NewRegistrationPostgres creates a new RegistrationPostgres repository.
func NewRegistrationPostgres(db *sql.DB) *RegistrationPostgres {
	return &RegistrationPostgres{db: db}
}

var _ repository.RegistrationRepository = (*RegistrationPostgres)(nil)

const registrationColumns = `id, owner_user_id, current_step, status,
		payment_approved, details_approved, documents_approved, documents_published,
		documents_acknowledged, balance_payment_approved, company_details_state,
		contact, company, shareholders, directors, documents, additional_fees,
		register_start_date, expire_days, expire_date, is_expired,
		expiry_notification_sent_at, shared_with_emails, created_at, updated_at`

// sharedApprovedClause matches rows shared with $2 at approved status. Plain
// string elements are the legacy shape and count as approved.
const sharedApprovedClause = `EXISTS (
			SELECT 1
			FROM jsonb_array_elements(
				CASE WHEN jsonb_typeof(shared_with_emails) = 'array' THEN shared_with_emails ELSE '[]'::jsonb END
			) AS e
			WHERE (jsonb_typeof(e) = 'string' AND lower(e #>> '{}') = $2)
			   OR (jsonb_typeof(e) = 'object' AND lower(e ->> 'email') = $2 AND e ->> 'status' = 'approved')
		)`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a registration row; an existing ID is returned untouched.
func (r *RegistrationPostgres) Create(ctx context.Context, reg *model.Registration) (*model.Registration, bool, error) {
	args, err := writeArgs(reg)
	if err != nil {
		return nil, false, err
	}
	q := `
		INSERT INTO registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + registrationColumns
	now := reg.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	args = append([]any{reg.ID, reg.OwnerUserID}, args...)
	args = append(args, now, now)

	out, err := scanRegistration(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			existing, findErr := r.FindByID(ctx, reg.ID)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return out, true, nil
}

// FindByID fetches a single registration by its ID.
func (r *RegistrationPostgres) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	q := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return scanRegistration(r.db.QueryRowContext(ctx, q, id))
}

// List returns registrations using LIMIT/OFFSET pagination and a total count.
func (r *RegistrationPostgres) List(ctx context.Context, f repository.ListFilter, pq repository.PageQuery) (*repository.PageResult[model.Registration], error) {
	where := ""
	var args []any
	if !f.All {
		where = `WHERE ($1 <> '' AND owner_user_id = $1)
		   OR ($2 <> '' AND ` + sharedApprovedClause + `)`
		args = append(args, f.OwnerUserID, model.NormalizeEmail(f.SharedEmail))
	}

	// Count total rows
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	n := len(args)
	qList := fmt.Sprintf(`SELECT %s FROM registrations %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, registrationColumns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collect(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Registration]{
		Items: items,
		Total: total,
	}, nil
}

// ListExpiryCandidates returns rows due for an expiry notification as of today.
func (r *RegistrationPostgres) ListExpiryCandidates(ctx context.Context, today time.Time, limit int) ([]model.Registration, error) {
	q := `SELECT ` + registrationColumns + `
		FROM registrations
		WHERE (is_expired OR (expire_date IS NOT NULL AND expire_date < $1::date))
		  AND (expiry_notification_sent_at IS NULL OR expiry_notification_sent_at < $2)
		ORDER BY expire_date ASC NULLS LAST, id ASC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, q, today.Format(time.DateOnly), today, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Mutate locks the row, hands it to fn and writes the result in the same transaction.
func (r *RegistrationPostgres) Mutate(ctx context.Context, id string, fn repository.MutateFunc) (*model.Registration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	qSelect := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1 FOR UPDATE`
	current, err := scanRegistration(tx.QueryRowContext(ctx, qSelect, id))
	if err != nil {
		return nil, err
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	args, err := writeArgs(next)
	if err != nil {
		return nil, err
	}
	qUpdate := `
		UPDATE registrations SET
			current_step = $2, status = $3,
			payment_approved = $4, details_approved = $5, documents_approved = $6,
			documents_published = $7, documents_acknowledged = $8, balance_payment_approved = $9,
			company_details_state = $10, contact = $11, company = $12,
			shareholders = $13, directors = $14, documents = $15, additional_fees = $16,
			register_start_date = $17, expire_days = $18, expire_date = $19, is_expired = $20,
			expiry_notification_sent_at = $21, shared_with_emails = $22, updated_at = now()
		WHERE id = $1
		RETURNING ` + registrationColumns
	updated, err := scanRegistration(tx.QueryRowContext(ctx, qUpdate, append([]any{current.ID}, args...)...))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return updated, nil
}

// ClaimExpiryDispatch stamps the row with at unless a dispatch is already recorded
// at or after dayStart. The row lock makes concurrent claims for the same day
// resolve to one winner. prev is the stamp that was replaced.
func (r *RegistrationPostgres) ClaimExpiryDispatch(ctx context.Context, id string, at, dayStart time.Time) (*time.Time, bool, error) {
	const q = `
		WITH prev AS (
			SELECT id, expiry_notification_sent_at FROM registrations WHERE id = $1 FOR UPDATE
		)
		UPDATE registrations r
		SET expiry_notification_sent_at = $2
		FROM prev
		WHERE r.id = prev.id
		  AND (prev.expiry_notification_sent_at IS NULL OR prev.expiry_notification_sent_at < $3)
		RETURNING prev.expiry_notification_sent_at
	`
	var prev sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id, at, dayStart).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !prev.Valid {
		return nil, true, nil
	}
	t := prev.Time
	return &t, true, nil
}

// ReleaseExpiryDispatch puts prev back if the row still carries the claim at.
func (r *RegistrationPostgres) ReleaseExpiryDispatch(ctx context.Context, id string, at time.Time, prev *time.Time) error {
	const q = `
		UPDATE registrations
		SET expiry_notification_sent_at = $3
		WHERE id = $1 AND expiry_notification_sent_at = $2
	`
	var restore sql.NullTime
	if prev != nil {
		restore = sql.NullTime{Time: *prev, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q, id, at, restore)
	return err
}

// MarkExpiryNotified stores the notification timestamp and flags the row expired.
func (r *RegistrationPostgres) MarkExpiryNotified(ctx context.Context, id string, at time.Time) (int64, error) {
	const q = `
		UPDATE registrations
		SET expiry_notification_sent_at = $2, is_expired = TRUE, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes a registration by ID. A missing row yields zero affected rows.
func (r *RegistrationPostgres) Delete(ctx context.Context, id string) (int64, error) {
	const q = `DELETE FROM registrations WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collect(rows *sql.Rows) ([]model.Registration, error) {
	items := make([]model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanRegistration(s rowScanner) (*model.Registration, error) {
	var (
		reg                                                  model.Registration
		step, state                                          string
		contact, company, shareholders, directors, documents []byte
		fees, shared                                         []byte
		start, expire, sentAt                                sql.NullTime
	)
	if err := s.Scan(
		&reg.ID,
		&reg.OwnerUserID,
		&step,
		&reg.Status,
		&reg.PaymentApproved,
		&reg.DetailsApproved,
		&reg.DocumentsApproved,
		&reg.DocumentsPublished,
		&reg.DocumentsAcknowledged,
		&reg.BalancePaymentApproved,
		&state,
		&contact,
		&company,
		&shareholders,
		&directors,
		&documents,
		&fees,
		&start,
		&reg.ExpireDays,
		&expire,
		&reg.IsExpired,
		&sentAt,
		&shared,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	); err != nil {
		return nil, err
	}

	reg.CurrentStep = model.Step(step)
	reg.CompanyDetailsState = model.ParseApprovalState(state)
	reg.RegisterStartDate = timePtr(start)
	reg.ExpireDate = timePtr(expire)
	reg.ExpiryNotificationSentAt = timePtr(sentAt)

	columns := []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"contact", contact, &reg.Contact},
		{"company", company, &reg.Company},
		{"shareholders", shareholders, &reg.Shareholders},
		{"directors", directors, &reg.Directors},
		{"documents", documents, &reg.Documents},
		{"additional_fees", fees, &reg.AdditionalFees},
		{"shared_with_emails", shared, &reg.SharedWithEmails},
	}
	for _, c := range columns {
		if len(c.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(c.raw, c.dst); err != nil {
			return nil, fmt.Errorf("decode %s of registration %s: %w", c.name, reg.ID, err)
		}
	}
	return &reg, nil
}

// writeArgs encodes the mutable columns, current_step through shared_with_emails,
// in column order.
func writeArgs(reg *model.Registration) ([]any, error) {
	encode := func(v any, empty string) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		if s := string(b); s != "null" {
			return s, nil
		}
		return empty, nil
	}

	jsonCols := []struct {
		v     any
		empty string
	}{
		{reg.Contact, "{}"},
		{reg.Company, "{}"},
		{reg.Shareholders, "[]"},
		{reg.Directors, "[]"},
		{reg.Documents, "{}"},
	}
	encoded := make([]any, 0, len(jsonCols)+1)
	for _, c := range jsonCols {
		s, err := encode(c.v, c.empty)
		if err != nil {
			return nil, fmt.Errorf("encode registration %s: %w", reg.ID, err)
		}
		encoded = append(encoded, s)
	}

	var fees any
	if reg.AdditionalFees != nil {
		s, err := encode(reg.AdditionalFees, "")
		if err != nil {
			return nil, fmt.Errorf("encode additional fees: %w", err)
		}
		fees = s
	}
	shared, err := encode(reg.SharedWithEmails, "[]")
	if err != nil {
		return nil, fmt.Errorf("encode shared emails: %w", err)
	}

	state := reg.CompanyDetailsState
	if state == "" {
		state = model.ApprovalNone
	}

	args := []any{
		string(reg.CurrentStep),
		strings.TrimSpace(reg.Status),
		reg.PaymentApproved,
		reg.DetailsApproved,
		reg.DocumentsApproved,
		reg.DocumentsPublished,
		reg.DocumentsAcknowledged,
		reg.BalancePaymentApproved,
		string(state),
	}
	args = append(args, encoded...)
	args = append(args,
		fees,
		nullTime(reg.RegisterStartDate),
		reg.ExpireDays,
		nullTime(reg.ExpireDate),
		reg.IsExpired,
		nullTime(reg.ExpiryNotificationSentAt),
		shared,
	)
	return args, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
