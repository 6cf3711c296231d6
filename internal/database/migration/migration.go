package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docsaga/internal/jsonlog"
)

type migrationStep struct {
	Name string
	SQL  string
}

// steps create the identity correlation schema idempotently. Order matters:
// identity_mappings and identity_audit reference identities.
var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_identities",
		SQL: `CREATE TABLE IF NOT EXISTS identities (
  uuid          UUID        PRIMARY KEY,
  aktenzeichen  TEXT        UNIQUE,
  status        TEXT        NOT NULL,
  source_system TEXT        NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_identity_mappings",
		SQL: `CREATE TABLE IF NOT EXISTS identity_mappings (
  uuid            UUID        PRIMARY KEY REFERENCES identities (uuid) ON DELETE CASCADE,
  aktenzeichen    TEXT,
  relational_id   TEXT,
  graph_id        TEXT,
  vector_id       TEXT,
  file_storage_id TEXT,
  metadata        JSONB       NOT NULL DEFAULT '{}'::jsonb,
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_identity_audit",
		SQL: `CREATE TABLE IF NOT EXISTS identity_audit (
  audit_id   UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  uuid       UUID        NOT NULL REFERENCES identities (uuid) ON DELETE CASCADE,
  action     TEXT        NOT NULL,
  actor      TEXT        NOT NULL,
  details    JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_identity_metrics",
		SQL: `CREATE TABLE IF NOT EXISTS identity_metrics (
  metric_id  UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name       TEXT        NOT NULL,
  value      JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_identity_traces",
		SQL: `CREATE TABLE IF NOT EXISTS identity_traces (
  trace_id   UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  uuid       UUID,
  operation  TEXT        NOT NULL,
  details    JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_identity_audit_uuid",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_identity_audit_uuid ON identity_audit (uuid);`,
	},
	{
		Name: "create_index_identity_audit_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_identity_audit_created_at ON identity_audit (created_at);`,
	},
	{
		Name: "create_index_identities_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_identities_status ON identities (status);`,
	},
}

// EnsureMigrated checks if the 'identities' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, dbHost string) error {
	start := time.Now()

	jsonlog.Emit(map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.identities') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		jsonlog.Emit(map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		jsonlog.Emit(map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	jsonlog.Emit(map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			jsonlog.Emit(map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		jsonlog.Emit(map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	jsonlog.Emit(map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}
