// Command migrate applies the versioned SQL migrations under
// migrations/postgres to the warehouse. Migrations run in version order,
// each inside its own transaction, and are recorded in
// nyc_taxi.schema_migrations with a content checksum so edited history is
// detected instead of silently re-applied.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/config"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/infra/postgres"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/logger"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

var (
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "migrations/postgres", "Path to migrations directory")
)

func main() {
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	pool, err := postgres.Connect(ctx, cfg.ConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to warehouse")
	}
	defer pool.Close()

	if err := ensureSchemaMigrationsTable(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("could not ensure schema_migrations table")
	}

	migrations, err := readMigrations(*migrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("could not read migrations")
	}
	log.Info().Int("files", len(migrations)).Msg("found migration files")

	applied, err := getAppliedMigrations(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load applied migrations")
	}
	log.Info().Int("applied", len(applied)).Msg("found applied migrations")

	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		appliedByVersion[am.Version] = am
	}

	appliedCount := 0
	for _, migration := range migrations {
		if am, ok := appliedByVersion[migration.Version]; ok {
			if am.Checksum != "" && am.Checksum != migration.Checksum {
				log.Fatal().
					Str("file", migration.Filename).
					Msg("applied migration was modified after being applied")
			}
			log.Info().Str("file", migration.Filename).Msg("skip: already applied")
			continue
		}

		log.Info().Str("file", migration.Filename).Msg("applying")
		if err := applyMigration(ctx, pool, migration, *appliedBy); err != nil {
			log.Fatal().Err(err).Str("file", migration.Filename).Msg("migration failed")
		}
		appliedCount++
	}

	if appliedCount == 0 {
		log.Info().Msg("no new migrations to apply, database is up to date")
	} else {
		log.Info().Int("count", appliedCount).Msg("migrations applied")
	}
}

// ensureSchemaMigrationsTable creates the tracking table if it doesn't exist
func ensureSchemaMigrationsTable(ctx context.Context, pool *pgxpool.Pool) error {
	const sql = `
		CREATE SCHEMA IF NOT EXISTS nyc_taxi;
		CREATE TABLE IF NOT EXISTS nyc_taxi.schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			checksum   TEXT,
			applied_by TEXT
		)`
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("ensureSchemaMigrationsTable: %w", err)
	}
	return nil
}

// readMigrations reads all migration files from the migrations directory
func readMigrations(dir string) ([]Migration, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Try from parent directory (in case we're in cmd/migrate)
		alt := filepath.Join("../..", dir)
		if _, err := os.Stat(alt); os.IsNotExist(err) {
			return nil, fmt.Errorf("migrations directory not found: %s", dir)
		}
		dir = alt
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// getAppliedMigrations retrieves the list of already applied migrations
func getAppliedMigrations(ctx context.Context, pool *pgxpool.Pool) ([]AppliedMigration, error) {
	const sql = `
		SELECT version, name, applied_at, COALESCE(checksum, ''), COALESCE(applied_by, '')
		FROM nyc_taxi.schema_migrations
		ORDER BY version ASC`

	rows, err := pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var am AppliedMigration
		if err := rows.Scan(&am.Version, &am.Name, &am.AppliedAt, &am.Checksum, &am.AppliedBy); err != nil {
			return nil, fmt.Errorf("scanning applied migration: %w", err)
		}
		applied = append(applied, am)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating applied migrations: %w", err)
	}
	return applied, nil
}

// applyMigration executes one migration and records it, both inside a
// single transaction so a half-applied migration is never marked done.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, migration Migration, appliedBy string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("applyMigration: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, migration.SQL); err != nil {
		return fmt.Errorf("applyMigration: exec: %w", err)
	}

	const record = `
		INSERT INTO nyc_taxi.schema_migrations (version, name, checksum, applied_by)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, record, migration.Version, migration.Name, migration.Checksum, appliedBy); err != nil {
		return fmt.Errorf("applyMigration: record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("applyMigration: commit: %w", err)
	}
	return nil
}
