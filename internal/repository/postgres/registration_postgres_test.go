package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incorpapi/internal/model"
	"incorpapi/internal/repository"
)

var columns = []string{
	"id", "owner_user_id", "current_step", "status",
	"payment_approved", "details_approved", "documents_approved", "documents_published",
	"documents_acknowledged", "balance_payment_approved", "company_details_state",
	"contact", "company", "shareholders", "directors", "documents", "additional_fees",
	"register_start_date", "expire_days", "expire_date", "is_expired",
	"expiry_notification_sent_at", "shared_with_emails", "created_at", "updated_at",
}

type rowOpts struct {
	id, owner, step, state string
	shareholders, shared   string
	fees                   driver.Value
	expire                 driver.Value
}

func registrationRow(o rowOpts) []driver.Value {
	if o.step == "" {
		o.step = "contact-details"
	}
	if o.state == "" {
		o.state = "none"
	}
	if o.shareholders == "" {
		o.shareholders = "[]"
	}
	if o.shared == "" {
		o.shared = "[]"
	}
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return []driver.Value{
		o.id, o.owner, o.step, "",
		false, false, false, false,
		false, false, o.state,
		[]byte(`{"name":"Ann","email":"ann@example.com"}`), []byte(`{}`), []byte(o.shareholders), []byte(`[]`), []byte(`{}`), o.fees,
		now, 30, o.expire, false,
		nil, []byte(o.shared), now, now,
	}
}

func newRepo(t *testing.T) (*RegistrationPostgres, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return NewRegistrationPostgres(db), mock, func() { db.Close() }
}

func TestRegistrationPostgres_Create(t *testing.T) {
	repo, mock, done := newRepo(t)
	defer done()
	ctx := context.Background()

	reg := &model.Registration{
		ID:          "reg-1",
		OwnerUserID: "user-1",
		CurrentStep: model.StepContactDetails,
		Contact:     model.ContactDetails{Name: "Ann", Email: "ann@example.com"},
	}

	t.Run("inserted", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).AddRow(registrationRow(rowOpts{id: "reg-1", owner: "user-1"})...)
		mock.ExpectQuery("INSERT INTO registrations (.+) ON CONFLICT \\(id\\) DO NOTHING").
			WithArgs(append([]driver.Value{"reg-1", "user-1", "contact-details", "", false, false, false, false, false, false, "none"},
				sqlmock.AnyArg(), sqlmock.AnyArg(), "[]", "[]", "{}", nil,
				nil, 0, nil, false, nil, "[]", sqlmock.AnyArg(), sqlmock.AnyArg())...).
			WillReturnRows(rows)

		out, created, err := repo.Create(ctx, reg)

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "reg-1", out.ID)
		assert.Equal(t, "ann@example.com", out.Contact.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing id returns stored row", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO registrations").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT (.+) FROM registrations WHERE id = ?").
			WithArgs("reg-1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(registrationRow(rowOpts{id: "reg-1", owner: "user-1", step: "payment"})...))

		out, created, err := repo.Create(ctx, reg)

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, model.StepPayment, out.CurrentStep)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationPostgres_FindByID(t *testing.T) {
	repo, mock, done := newRepo(t)
	defer done()
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).AddRow(registrationRow(rowOpts{
			id:           "reg-1",
			owner:        "user-1",
			state:        "rejected",
			shareholders: `[{"name":"A","residency":"foreign","type":"legal-entity"}]`,
			shared:       `["Friend@Example.com"]`,
			fees:         []byte(`{"shareholders":{"total":"2000"},"directors":{"total":"0"},"total":"2000"}`),
			expire:       time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC),
		})...)

		mock.ExpectQuery("SELECT (.+) FROM registrations WHERE id = ?").
			WithArgs("reg-1").
			WillReturnRows(rows)

		reg, err := repo.FindByID(ctx, "reg-1")

		require.NoError(t, err)
		assert.Equal(t, model.ApprovalRejected, reg.CompanyDetailsState)
		require.Len(t, reg.Shareholders, 1)
		assert.Equal(t, model.LegalTypeLegalEntity, reg.Shareholders[0].Type)
		assert.Equal(t, model.LegacyList, reg.SharedWithEmails.Kind)
		assert.True(t, reg.SharedWithEmails.Approved("friend@example.com"))
		require.NotNil(t, reg.AdditionalFees)
		assert.Equal(t, "2000", reg.AdditionalFees.Total.String())
		require.NotNil(t, reg.ExpireDate)
		assert.Nil(t, reg.ExpiryNotificationSentAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM registrations WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		reg, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, reg)
	})

	t.Run("corrupt json column", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).AddRow(registrationRow(rowOpts{id: "bad", shared: `{"oops":true}`})...)
		mock.ExpectQuery("SELECT (.+) FROM registrations WHERE id = ?").
			WithArgs("bad").
			WillReturnRows(rows)

		_, err := repo.FindByID(ctx, "bad")

		assert.ErrorContains(t, err, "shared_with_emails")
	})
}

func TestRegistrationPostgres_List(t *testing.T) {
	repo, mock, done := newRepo(t)
	defer done()
	ctx := context.Background()

	t.Run("owner or shared", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM registrations WHERE (.+)jsonb_array_elements").
			WithArgs("user-1", "friend@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		mock.ExpectQuery("SELECT (.+) FROM registrations WHERE (.+) ORDER BY (.+) LIMIT \\$3 OFFSET \\$4").
			WithArgs("user-1", "friend@example.com", 10, 0).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(registrationRow(rowOpts{id: "reg-1", owner: "user-1"})...))

		res, err := repo.List(ctx, repository.ListFilter{OwnerUserID: "user-1", SharedEmail: "Friend@Example.com"}, repository.PageQuery{Limit: 10, Offset: 0})

		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM registrations").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery("SELECT (.+) FROM registrations\\s+ORDER BY (.+) LIMIT \\$1 OFFSET \\$2").
			WithArgs(5, 5).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(registrationRow(rowOpts{id: "reg-2"})...))

		res, err := repo.List(ctx, repository.ListFilter{All: true}, repository.PageQuery{Limit: 5, Offset: 5})

		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		assert.Len(t, res.Items, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationPostgres_ListExpiryCandidates(t *testing.T) {
	repo, mock, done := newRepo(t)
	defer done()

	today := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM registrations WHERE (.+)expire_date < \\$1::date(.+)expiry_notification_sent_at < \\$2").
		WithArgs("2026-10-19", today, 100).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(registrationRow(rowOpts{id: "reg-1"})...))

	items, err := repo.ListExpiryCandidates(context.Background(), today, 100)

	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationPostgres_Mutate(t *testing.T) {
	repo, mock, done := newRepo(t)
	defer done()
	ctx := context.Background()

	t.Run("commits the transformed row", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM registrations WHERE id = (.+) FOR UPDATE").
			WithArgs("reg-1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(registrationRow(rowOpts{id: "reg-1", owner: "user-1"})...))
		mock.ExpectQuery("UPDATE registrations SET (.+) WHERE id = \\$1 RETURNING").
			WithArgs(append([]driver.Value{"reg-1", "company-details"}, anyArgs(20)...)...).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(registrationRow(rowOpts{id: "reg-1", owner: "user-1", step: "company-details"})...))
		mock.ExpectCommit()

		out, err := repo.Mutate(ctx, "reg-1", func(cur *model.Registration) (*model.Registration, error) {
			next := *cur
			next.CurrentStep = model.StepCompanyDetails
			return &next, nil
		})

		require.NoError(t, err)
		assert.Equal(t, model.StepCompanyDetails, out.CurrentStep)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the transform fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM registrations WHERE id = (.+) FOR UPDATE").
			WithArgs("reg-1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(registrationRow(rowOpts{id: "reg-1"})...))
		mock.ExpectRollback()

		boom := errors.New("boom")
		_, err := repo.Mutate(ctx, "reg-1", func(*model.Registration) (*model.Registration, error) {
			return nil, boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FOR UPDATE").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.Mutate(ctx, "missing", func(cur *model.Registration) (*model.Registration, error) {
			t.Fatal("transform must not run")
			return cur, nil
		})

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationPostgres_MarkExpiryNotified(t *testing.T) {
	repo, mock, done := newRepo(t)
	defer done()

	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE registrations SET expiry_notification_sent_at = \\$2, is_expired = TRUE").
		WithArgs("reg-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.MarkExpiryNotified(context.Background(), "reg-1", at)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationPostgres_ClaimExpiryDispatch(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	dayStart := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	yesterday := at.Add(-24 * time.Hour)
	const q = "WITH prev AS .+ FOR UPDATE .+UPDATE registrations r SET expiry_notification_sent_at = \\$2"

	tests := []struct {
		name        string
		setupMock   func(mock sqlmock.Sqlmock)
		wantPrev    *time.Time
		wantClaimed bool
		wantErr     bool
	}{
		{
			name: "first claim of the day",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(q).WithArgs("reg-1", at, dayStart).
					WillReturnRows(sqlmock.NewRows([]string{"expiry_notification_sent_at"}).AddRow(nil))
			},
			wantClaimed: true,
		},
		{
			name: "replaces yesterday's stamp",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(q).WithArgs("reg-1", at, dayStart).
					WillReturnRows(sqlmock.NewRows([]string{"expiry_notification_sent_at"}).AddRow(yesterday))
			},
			wantPrev:    &yesterday,
			wantClaimed: true,
		},
		{
			name: "already stamped today",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(q).WithArgs("reg-1", at, dayStart).
					WillReturnRows(sqlmock.NewRows([]string{"expiry_notification_sent_at"}))
			},
		},
		{
			name: "db error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(q).WithArgs("reg-1", at, dayStart).WillReturnError(errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, done := newRepo(t)
			defer done()
			tt.setupMock(mock)

			prev, claimed, err := repo.ClaimExpiryDispatch(context.Background(), "reg-1", at, dayStart)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantClaimed, claimed)
			if tt.wantPrev == nil {
				assert.Nil(t, prev)
			} else {
				require.NotNil(t, prev)
				assert.True(t, tt.wantPrev.Equal(*prev))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationPostgres_ReleaseExpiryDispatch(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	yesterday := at.Add(-24 * time.Hour)

	t.Run("restores the previous stamp", func(t *testing.T) {
		repo, mock, done := newRepo(t)
		defer done()
		mock.ExpectExec("UPDATE registrations SET expiry_notification_sent_at = \\$3 WHERE id = \\$1 AND expiry_notification_sent_at = \\$2").
			WithArgs("reg-1", at, yesterday).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.ReleaseExpiryDispatch(context.Background(), "reg-1", at, &yesterday))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clears a first claim", func(t *testing.T) {
		repo, mock, done := newRepo(t)
		defer done()
		mock.ExpectExec("UPDATE registrations SET expiry_notification_sent_at = \\$3").
			WithArgs("reg-1", at, nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.ReleaseExpiryDispatch(context.Background(), "reg-1", at, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationPostgres_Delete(t *testing.T) {
	repo, mock, done := newRepo(t)
	defer done()

	mock.ExpectExec("DELETE FROM registrations WHERE id = ?").
		WithArgs("reg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Delete(context.Background(), "reg-1")

	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func anyArgs(n int) []driver.Value {
	out := make([]driver.Value, n)
	for i := range out {
		out[i] = sqlmock.AnyArg()
	}
	return out
}
