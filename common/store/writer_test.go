package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/haystack/common/models"
)

// fakeTx records statements; only the methods the writer uses are implemented
type fakeTx struct {
	pgx.Tx

	execs     []string
	args      [][]any
	failOn    int
	failWith  error
	committed bool
	rolled    bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, sql)
	tx.args = append(tx.args, args)
	if tx.failWith != nil && len(tx.execs) == tx.failOn {
		return pgconn.CommandTag{}, tx.failWith
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolled = true
	return nil
}

type fakeBeginner struct {
	tx *fakeTx
}

func (b fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return b.tx, nil
}

func TestWriter_PutCommitsBlobAndIndex(t *testing.T) {
	tx := &fakeTx{}
	w := NewWriter(fakeBeginner{tx: tx})

	blob := models.BlobRecord{BlobID: "B1", Variant1: []byte("x"), Variant2: []byte("y"), Variant3: []byte("z")}
	rec, err := w.Put(context.Background(), models.NewPhotoIdentity("42", "abc"), blob, models.NeedleMedium)

	require.NoError(t, err)
	assert.Equal(t, models.IndexRecord{PhotoID: "42", Cookie: "abc", BlobID: "B1", NeedleOffset: 2}, rec)
	require.Len(t, tx.execs, 2)
	assert.Contains(t, tx.execs[0], "INSERT INTO photo_blob")
	assert.Contains(t, tx.execs[1], "INSERT INTO photo_index")
	assert.Equal(t, []any{"42", "abc", "B1", int16(2)}, tx.args[1])
	assert.True(t, tx.committed)
}

func TestWriter_PutGeneratesBlobID(t *testing.T) {
	tx := &fakeTx{}
	w := NewWriter(fakeBeginner{tx: tx})

	rec, err := w.Put(context.Background(), models.NewPhotoIdentity("42", "abc"), models.BlobRecord{Variant1: []byte("thumb")}, models.NeedleThumbnail)

	require.NoError(t, err)
	assert.Len(t, rec.BlobID, 36)
	assert.Equal(t, rec.BlobID, tx.args[0][0])
}

func TestWriter_PutRejectsInvalidOffset(t *testing.T) {
	tx := &fakeTx{}
	w := NewWriter(fakeBeginner{tx: tx})

	_, err := w.Put(context.Background(), models.NewPhotoIdentity("42", "abc"), models.BlobRecord{}, 4)

	require.Error(t, err)
	assert.Empty(t, tx.execs)
}

func TestWriter_DuplicateIdentity(t *testing.T) {
	tx := &fakeTx{failOn: 2, failWith: &pgconn.PgError{Code: "23505"}}
	w := NewWriter(fakeBeginner{tx: tx})

	_, err := w.Put(context.Background(), models.NewPhotoIdentity("42", "abc"), models.BlobRecord{BlobID: "B1", Variant1: []byte("thumb")}, 1)

	assert.ErrorIs(t, err, ErrIdentityExists)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolled)
}

func TestWriter_BlobInsertFailure(t *testing.T) {
	tx := &fakeTx{failOn: 1, failWith: errors.New("disk full")}
	w := NewWriter(fakeBeginner{tx: tx})

	_, err := w.Put(context.Background(), models.NewPhotoIdentity("42", "abc"), models.BlobRecord{BlobID: "B1", Variant1: []byte("thumb")}, 1)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIdentityExists)
	assert.Len(t, tx.execs, 1)
	assert.True(t, tx.rolled)
}

func TestWriter_PutRejectsEmptyServedVariant(t *testing.T) {
	tx := &fakeTx{}
	w := NewWriter(fakeBeginner{tx: tx})

	blob := models.BlobRecord{BlobID: "B1", Variant1: []byte("thumb"), Variant3: []byte{}}
	for _, offset := range []models.NeedleOffset{models.NeedleMedium, models.NeedleFull} {
		_, err := w.Put(context.Background(), models.NewPhotoIdentity("42", "abc"), blob, offset)

		assert.ErrorIs(t, err, ErrEmptyNeedle, "offset %d", offset)
	}
	assert.Empty(t, tx.execs)
}
