// Package migration bootstraps the registrations schema on startup.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_registrations",
		SQL: `CREATE TABLE IF NOT EXISTS registrations (
  id                          TEXT        PRIMARY KEY,
  owner_user_id               TEXT        NOT NULL,
  current_step                TEXT        NOT NULL DEFAULT 'contact-details',
  status                      TEXT        NOT NULL DEFAULT '',
  payment_approved            BOOLEAN     NOT NULL DEFAULT FALSE,
  details_approved            BOOLEAN     NOT NULL DEFAULT FALSE,
  documents_approved          BOOLEAN     NOT NULL DEFAULT FALSE,
  documents_published         BOOLEAN     NOT NULL DEFAULT FALSE,
  documents_acknowledged      BOOLEAN     NOT NULL DEFAULT FALSE,
  balance_payment_approved    BOOLEAN     NOT NULL DEFAULT FALSE,
  company_details_state       TEXT        NOT NULL DEFAULT 'none'
                              CHECK (company_details_state IN ('none', 'locked', 'approved', 'rejected')),
  contact                     JSONB       NOT NULL DEFAULT '{}'::jsonb,
  company                     JSONB       NOT NULL DEFAULT '{}'::jsonb,
  shareholders                JSONB       NOT NULL DEFAULT '[]'::jsonb,
  directors                   JSONB       NOT NULL DEFAULT '[]'::jsonb,
  documents                   JSONB       NOT NULL DEFAULT '{}'::jsonb,
  additional_fees             JSONB,
  register_start_date         DATE,
  expire_days                 INTEGER     NOT NULL DEFAULT 0 CHECK (expire_days >= 0),
  expire_date                 DATE,
  is_expired                  BOOLEAN     NOT NULL DEFAULT FALSE,
  expiry_notification_sent_at TIMESTAMPTZ,
  shared_with_emails          JSONB       NOT NULL DEFAULT '[]'::jsonb,
  created_at                  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at                  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_registrations_owner",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_registrations_owner_user_id ON registrations (owner_user_id, created_at DESC);`,
	},
	{
		Name: "create_index_registrations_expiry",
		SQL: `CREATE INDEX IF NOT EXISTS idx_registrations_expiry
  ON registrations (expire_date, expiry_notification_sent_at)
  WHERE expire_date IS NOT NULL OR is_expired;`,
	},
	{
		Name: "create_index_registrations_shared",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_registrations_shared_with_emails ON registrations USING GIN (shared_with_emails);`,
	},
}

// EnsureMigrated creates the schema unless the registrations table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check")

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass('public.registrations') IS NOT NULL").Scan(&exists); err != nil {
		log.Error("db_migration_failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		log.Info("db_migration_skip", zap.String("msg", "schema already exists"), zap.Duration("duration", time.Since(start)))
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Duration("step_duration", time.Since(stepStart)),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("db_migration_step",
			zap.String("migration_step", step.Name),
			zap.Duration("step_duration", time.Since(stepStart)),
		)
	}

	log.Info("db_migration_success", zap.Duration("duration", time.Since(start)))
	return nil
}
