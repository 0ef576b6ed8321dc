package db

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one schema step. Files are named NNNN_name.up.sql and
// NNNN_name.down.sql.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

type migrator struct {
	source fs.FS
	logger zerolog.Logger
}

func newMigrator(logger zerolog.Logger) migrator {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return migrator{source: sub, logger: logger}
}

// load reads every migration from the source, pairing up and down files by
// version. Unpaired or duplicate files are an error.
func (m migrator) load() ([]Migration, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := map[int]*Migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		version, name, up, err := splitName(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", entry.Name(), err)
		}

		body, err := fs.ReadFile(m.source, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: name}
			byVersion[version] = mig
		}

		slot := &mig.Down
		if up {
			slot = &mig.Up
		}
		if *slot != "" {
			return nil, fmt.Errorf("migration %04d: duplicate %s file", version, direction(up))
		}
		*slot = string(body)
	}

	out := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		switch {
		case mig.Up == "":
			return nil, fmt.Errorf("migration %04d: missing up file", mig.Version)
		case mig.Down == "":
			return nil, fmt.Errorf("migration %04d: missing down file", mig.Version)
		}
		out = append(out, *mig)
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

// up applies pending migrations in version order and reports how many ran.
func (m migrator) up(ctx context.Context, conn *sql.DB) (int, error) {
	migrations, err := m.load()
	if err != nil {
		return 0, err
	}

	applied, err := m.applied(ctx, conn)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}

		m.logger.Debug().Int("version", mig.Version).Str("name", mig.Name).Msg("applying migration")
		err := inTx(ctx, conn, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.Up); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
				mig.Version, mig.Name, time.Now().UnixNano(),
			)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("apply %04d_%s: %w", mig.Version, mig.Name, err)
		}
		ran++
	}

	if ran > 0 {
		m.logger.Info().Int("applied", ran).Msg("database migrated")
	}
	return ran, nil
}

// down reverts the newest n applied migrations.
func (m migrator) down(ctx context.Context, conn *sql.DB, n int) error {
	if n <= 0 {
		return fmt.Errorf("n must be positive, got %d", n)
	}

	migrations, err := m.load()
	if err != nil {
		return err
	}

	applied, err := m.applied(ctx, conn)
	if err != nil {
		return err
	}

	var revert []Migration
	for _, mig := range slices.Backward(migrations) {
		if applied[mig.Version] {
			revert = append(revert, mig)
		}
	}
	if n > len(revert) {
		return fmt.Errorf("cannot revert %d migrations, %d applied", n, len(revert))
	}

	for _, mig := range revert[:n] {
		m.logger.Debug().Int("version", mig.Version).Str("name", mig.Name).Msg("reverting migration")
		err := inTx(ctx, conn, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.Down); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", mig.Version)
			return err
		})
		if err != nil {
			return fmt.Errorf("revert %04d_%s: %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// applied creates the tracking table when needed and returns the recorded
// versions.
func (m migrator) applied(ctx context.Context, conn *sql.DB) (map[int]bool, error) {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := conn.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	versions := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions[v] = true
	}
	return versions, rows.Err()
}

// MigrateDown reverts the newest n applied migrations.
func MigrateDown(ctx context.Context, conn *sql.DB, n int) error {
	return newMigrator(zerolog.Nop()).down(ctx, conn, n)
}

// SchemaVersion returns the highest applied migration version, or 0 on an
// empty database.
func SchemaVersion(ctx context.Context, conn *sql.DB) (int, error) {
	applied, err := newMigrator(zerolog.Nop()).applied(ctx, conn)
	if err != nil {
		return 0, err
	}
	version := 0
	for v := range applied {
		version = max(version, v)
	}
	return version, nil
}

func inTx(ctx context.Context, conn *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// splitName parses NNNN_name.up.sql or NNNN_name.down.sql.
func splitName(filename string) (version int, name string, up bool, err error) {
	base, isUp := strings.CutSuffix(filename, ".up.sql")
	if !isUp {
		var isDown bool
		if base, isDown = strings.CutSuffix(filename, ".down.sql"); !isDown {
			return 0, "", false, fmt.Errorf("want .up.sql or .down.sql suffix")
		}
	}

	num, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", false, fmt.Errorf("want NNNN_name")
	}

	version, err = strconv.Atoi(num)
	if err != nil {
		return 0, "", false, fmt.Errorf("version %q: %w", num, err)
	}
	if version <= 0 {
		return 0, "", false, fmt.Errorf("version must be positive, got %d", version)
	}
	return version, name, isUp, nil
}

func direction(up bool) string {
	if up {
		return "up"
	}
	return "down"
}
