package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	stmts  []string
	failOn string
}

func (e *recordingExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.stmts = append(e.stmts, sql)
	if e.failOn != "" && strings.Contains(sql, e.failOn) {
		return pgconn.CommandTag{}, errors.New("permission denied")
	}
	return pgconn.CommandTag{}, nil
}

func TestSchema_Statements(t *testing.T) {
	stmts := Schema()

	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS photo_blob")
	assert.Contains(t, stmts[1], "PRIMARY KEY (photo_id, cookie)")
	for _, s := range stmts {
		assert.NotContains(t, s, "--")
	}
}

func TestEnsureSchema_CreatesKeyspaceFirst(t *testing.T) {
	exec := &recordingExecer{}

	err := EnsureSchema(context.Background(), exec, "haystack")

	require.NoError(t, err)
	require.Len(t, exec.stmts, 4)
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "haystack"`, exec.stmts[0])
}

func TestEnsureSchema_PropagatesFailure(t *testing.T) {
	exec := &recordingExecer{failOn: "photo_index ("}

	err := EnsureSchema(context.Background(), exec, "")

	require.Error(t, err)
	assert.ErrorContains(t, err, "apply schema")
	assert.Len(t, exec.stmts, 2)
}
