package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the gate store (PostgreSQL).
var Migrations = migrate.NewGroup("gate")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_decision_logs",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gate_decision_logs (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL DEFAULT '',
    app_id          TEXT NOT NULL DEFAULT '',
    actor           TEXT NOT NULL,
    ability         TEXT NOT NULL,
    policy          TEXT NOT NULL,
    action          TEXT NOT NULL,
    subject         TEXT NOT NULL DEFAULT '',
    decision        TEXT NOT NULL,
    complete        BOOLEAN NOT NULL DEFAULT FALSE,
    message         TEXT NOT NULL,
    params          JSONB NOT NULL DEFAULT '[]',
    error           TEXT NOT NULL DEFAULT '',
    eval_time_ns    BIGINT NOT NULL DEFAULT 0,
    metadata        JSONB NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_gate_dlogs_tenant ON gate_decision_logs (tenant_id);
CREATE INDEX IF NOT EXISTS idx_gate_dlogs_actor ON gate_decision_logs (tenant_id, actor);
CREATE INDEX IF NOT EXISTS idx_gate_dlogs_ability ON gate_decision_logs (tenant_id, policy, action);
CREATE INDEX IF NOT EXISTS idx_gate_dlogs_decision ON gate_decision_logs (tenant_id, decision);
CREATE INDEX IF NOT EXISTS idx_gate_dlogs_created ON gate_decision_logs (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gate_decision_logs`)
				return err
			},
		},
	)
}
