package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one numbered SQL file.
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// MigrationStatus reports whether a migration has been applied to a schema.
// Modified is set when the file changed after it was applied.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	Modified  bool
	AppliedAt *time.Time
}

// migrationLockID serializes migration runs across server instances.
const migrationLockID = 0x64656e746978

// Migrator applies numbered SQL files to a clinic schema.
type Migrator struct {
	pool *pgxpool.Pool
	fsys fs.FS
}

// NewMigrator reads migrations from the root of fsys, usually an embedded
// filesystem, and applies them through pool.
func NewMigrator(pool *pgxpool.Pool, fsys fs.FS) *Migrator {
	return &Migrator{pool: pool, fsys: fsys}
}

// LoadMigrations returns the .sql files sorted by the numeric filename prefix
// ("001_dental_chart.sql" is version 1). Files without a prefix are skipped.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	if m.fsys == nil {
		return nil, fmt.Errorf("no migrations filesystem configured")
	}
	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		content, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}
		sum := sha256.Sum256(content)
		out = append(out, Migration{
			Version:  version,
			Name:     name,
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

type appliedMigration struct {
	checksum  string
	appliedAt time.Time
}

// Up applies every pending migration to schema, each in its own transaction,
// and returns how many ran. It refuses to run when an applied file has
// since been edited.
func (m *Migrator) Up(ctx context.Context, schema string) (int, error) {
	migs, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return 0, fmt.Errorf("lock migrations: %w", err)
	}
	defer conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID)

	if err := ensureMigrationsTable(ctx, conn.Conn(), schema); err != nil {
		return 0, err
	}
	applied, err := appliedMigrations(ctx, conn.Conn(), schema)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range migs {
		if prev, ok := applied[mig.Version]; ok {
			if prev.checksum != "" && prev.checksum != mig.Checksum {
				return count, fmt.Errorf("migration %s was modified after it was applied to %s", mig.Name, schema)
			}
			continue
		}
		if err := applyMigration(ctx, conn.Conn(), schema, mig); err != nil {
			return count, fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

// Status lists every known migration with its state in schema.
func (m *Migrator) Status(ctx context.Context, schema string) ([]MigrationStatus, error) {
	migs, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := ensureMigrationsTable(ctx, conn.Conn(), schema); err != nil {
		return nil, err
	}
	applied, err := appliedMigrations(ctx, conn.Conn(), schema)
	if err != nil {
		return nil, err
	}
	return migrationStatuses(migs, applied), nil
}

func migrationStatuses(migs []Migration, applied map[int]appliedMigration) []MigrationStatus {
	out := make([]MigrationStatus, 0, len(migs))
	for _, mig := range migs {
		st := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if prev, ok := applied[mig.Version]; ok {
			at := prev.appliedAt
			st.Applied = true
			st.AppliedAt = &at
			st.Modified = prev.checksum != "" && prev.checksum != mig.Checksum
		}
		out = append(out, st)
	}
	return out
}

func ensureMigrationsTable(ctx context.Context, conn *pgx.Conn, schema string) error {
	table := pgx.Identifier{schema, "_migrations"}.Sanitize()
	_, err := conn.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    version    INTEGER PRIMARY KEY,
    name       VARCHAR(255) NOT NULL,
    checksum   CHAR(64),
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, table))
	if err != nil {
		return fmt.Errorf("create _migrations table in %s: %w", schema, err)
	}
	return nil
}

func appliedMigrations(ctx context.Context, conn *pgx.Conn, schema string) (map[int]appliedMigration, error) {
	table := pgx.Identifier{schema, "_migrations"}.Sanitize()
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT version, COALESCE(checksum, ''), applied_at FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("query applied migrations in %s: %w", schema, err)
	}
	defer rows.Close()

	applied := make(map[int]appliedMigration)
	for rows.Next() {
		var v int
		var a appliedMigration
		if err := rows.Scan(&v, &a.checksum, &a.appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		applied[v] = a
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, conn *pgx.Conn, schema string, mig Migration) error {
	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL search_path TO %s, public", pgx.Identifier{schema}.Sanitize())); err != nil {
			return fmt.Errorf("set search_path: %w", err)
		}
		if _, err := tx.Exec(ctx, mig.SQL); err != nil {
			return fmt.Errorf("execute SQL: %w", err)
		}
		_, err := tx.Exec(ctx,
			"INSERT INTO _migrations (version, name, checksum) VALUES ($1, $2, $3)",
			mig.Version, mig.Name, mig.Checksum)
		if err != nil {
			return fmt.Errorf("record migration: %w", err)
		}
		return nil
	})
}
