package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/shared"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// Migration is one versioned change to the kv schema.
//
// Files are named NNNN_name.up.sql and NNNN_name.down.sql. The applied version is kept in
// SQLite's user_version header, so no bookkeeping table is needed.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Migrations returns the embedded migrations in version order.
func Migrations() ([]Migration, error) {
	return loadMigrations(schemaFiles, "schema")
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, name := range names {
		base := path.Base(name)
		stem, up := strings.CutSuffix(base, ".up.sql")
		if !up {
			var down bool
			if stem, down = strings.CutSuffix(base, ".down.sql"); !down {
				return nil, fmt.Errorf("migration %s is neither .up.sql nor .down.sql", base)
			}
		}
		num, label, ok := strings.Cut(stem, "_")
		version, err := strconv.Atoi(num)
		if !ok || err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s has no positive version prefix", base)
		}

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", base, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: label}
			byVersion[version] = m
		}
		if up {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if strings.TrimSpace(m.Up) == "" || strings.TrimSpace(m.Down) == "" {
			return nil, fmt.Errorf("migration %d (%s) needs both up and down SQL", m.Version, m.Name)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out, nil
}

// SchemaVersion reads the applied migration version. Zero means an empty database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Migrate applies every pending migration, each in its own transaction, and returns the
// versions it applied.
func Migrate(ctx context.Context, db *sql.DB, logger *log.Logger) ([]int, error) {
	all, err := Migrations()
	if err != nil || len(all) == 0 {
		return nil, err
	}
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return nil, err
	}
	if latest := all[len(all)-1].Version; current > latest {
		return nil, fmt.Errorf("%w: database at %d, build knows %d", shared.ErrSchemaTooNew, current, latest)
	}

	var applied []int
	for _, m := range all {
		if m.Version <= current {
			continue
		}
		if err := stepSchema(ctx, db, m.Up, m.Version); err != nil {
			return applied, fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		logger.Info("applied migration", "version", m.Version, "name", m.Name)
		applied = append(applied, m.Version)
	}
	return applied, nil
}

// Rollback reverts the latest applied migration and returns the version now in effect.
func Rollback(ctx context.Context, db *sql.DB, logger *log.Logger) (int, error) {
	all, err := Migrations()
	if err != nil {
		return 0, err
	}
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return 0, err
	}
	if current == 0 {
		return 0, shared.ErrNoRollback
	}

	i := slices.IndexFunc(all, func(m Migration) bool { return m.Version == current })
	if i < 0 {
		return current, fmt.Errorf("%w: no migration for version %d", shared.ErrSchemaTooNew, current)
	}
	prev := 0
	if i > 0 {
		prev = all[i-1].Version
	}

	m := all[i]
	if err := stepSchema(ctx, db, m.Down, prev); err != nil {
		return current, fmt.Errorf("failed to roll back migration %d (%s): %w", m.Version, m.Name, err)
	}
	logger.Info("rolled back migration", "version", m.Version, "name", m.Name, "now", prev)
	return prev, nil
}

// stepSchema runs script and records version atomically. The sqlite3 driver executes
// multi-statement scripts in one Exec call.
func stepSchema(ctx context.Context, db *sql.DB, script string, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return err
	}
	return tx.Commit()
}
