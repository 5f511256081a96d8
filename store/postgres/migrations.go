package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the portal store.
var Migrations = migrate.NewGroup("portal")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_portal_subscriptions",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS portal_subscriptions (
    id                   TEXT PRIMARY KEY,
    customer_id          TEXT NOT NULL DEFAULT '',
    organization_id      TEXT NOT NULL DEFAULT '',
    status               TEXT NOT NULL DEFAULT 'incomplete',
    cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
    current_period_end   TIMESTAMPTZ,
    ended_at             TIMESTAMPTZ,
    snapshot             JSONB NOT NULL DEFAULT '{}',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    stored_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_portal_subs_customer ON portal_subscriptions (customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_portal_subs_status ON portal_subscriptions (customer_id, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS portal_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "index_portal_subscriptions_organization",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE INDEX IF NOT EXISTS idx_portal_subs_org ON portal_subscriptions (organization_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP INDEX IF EXISTS idx_portal_subs_org`)
				return err
			},
		},
	)
}
