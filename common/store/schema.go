package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schemaSQL string

// Execer runs statements that return no rows. *db.DB satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema returns the statements that make up the partition schema
func Schema() []string {
	var stmts []string
	for _, stmt := range strings.Split(schemaSQL, ";") {
		lines := make([]string, 0)
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if s := strings.TrimSpace(strings.Join(lines, "\n")); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// EnsureSchema creates the keyspace and the index and blob tables if they
// do not exist yet. Safe to run repeatedly.
func EnsureSchema(ctx context.Context, exec Execer, keyspace string) error {
	if keyspace != "" {
		stmt := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{keyspace}.Sanitize()
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create keyspace %s: %w", keyspace, err)
		}
	}

	for _, stmt := range Schema() {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
