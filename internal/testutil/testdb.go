package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"treasure-raffle/internal/config"
	"treasure-raffle/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const commitTable = "hunt_commitments"

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// OpenCommitStore opens a Postgres commit store in a throwaway schema with
// every up migration applied, so hunt_commitments starts empty. The test is
// skipped when TEST_POSTGRES_DSN is unset. The schema is dropped on cleanup.
func OpenCommitStore(t *testing.T) *store.Store {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip commit store: %v", err)
	}
	ctx := context.Background()
	schema := fmt.Sprintf("commits_%d", time.Now().UnixNano())
	if err := execSchemaDDL(ctx, cfg.CommitStoreDSN, "CREATE SCHEMA %s", schema); err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		_ = execSchemaDDL(context.Background(), cfg.CommitStoreDSN, "DROP SCHEMA %s CASCADE", schema)
	})

	st, err := store.New(scopedDSN(cfg.CommitStoreDSN, schema))
	if err != nil {
		t.Fatalf("open commit store: %v", err)
	}
	t.Cleanup(st.Close)
	if err := migrate(ctx, st); err != nil {
		t.Fatalf("migrate %s: %v", schema, err)
	}
	var table *string
	if err := st.Pool.QueryRow(ctx, "SELECT to_regclass($1)::text", commitTable).Scan(&table); err != nil || table == nil {
		t.Fatalf("%s missing after migrations: %v", commitTable, err)
	}
	return st
}

func migrate(ctx context.Context, st *store.Store) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return err
	}
	sort.Strings(ups)
	for _, p := range ups {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if _, err := st.Pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// migrationsDir walks up from the package under test to the module root.
func migrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		p := filepath.Join(dir, "migrations")
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("migrations directory not found above %s", dir)
		}
		dir = parent
	}
}

func scopedDSN(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func execSchemaDDL(ctx context.Context, dsn, format, schema string) error {
	if !schemaNamePattern.MatchString(schema) {
		return fmt.Errorf("schema %q is not a plain identifier", schema)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()))
	return err
}
