package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lyzr/haystack/common/models"
)

// uniqueViolation is the Postgres SQLSTATE for a primary key conflict
const uniqueViolation = "23505"

// ErrIdentityExists is returned when (photo_id, cookie) is already indexed
var ErrIdentityExists = errors.New("photo identity already indexed")

// ErrEmptyNeedle is returned when the indexed variant has no bytes
var ErrEmptyNeedle = errors.New("indexed variant is empty")

// Beginner opens transactions. *db.DB satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Writer appends photos to one partition. It is the administrative write
// path and is not used when serving reads.
type Writer struct {
	db Beginner
}

// NewWriter creates a writer over a partition connection
func NewWriter(db Beginner) *Writer {
	return &Writer{db: db}
}

// Put stores blob and indexes identity at offset, in one transaction.
// The variant at offset must be non-empty. An empty blob.BlobID is replaced by a fresh UUID. The resulting index
// record is returned.
func (w *Writer) Put(ctx context.Context, identity models.PhotoIdentity, blob models.BlobRecord, offset models.NeedleOffset) (models.IndexRecord, error) {
	if !offset.Valid() {
		return models.IndexRecord{}, fmt.Errorf("needle offset %d outside 1..3", offset)
	}
	if data, _ := blob.Needle(offset); len(data) == 0 {
		return models.IndexRecord{}, fmt.Errorf("%w: needle %d", ErrEmptyNeedle, offset)
	}
	if blob.BlobID == "" {
		blob.BlobID = uuid.New().String()
	}

	rec := models.IndexRecord{
		PhotoID:      identity.PhotoID,
		Cookie:       identity.Cookie,
		BlobID:       blob.BlobID,
		NeedleOffset: offset,
	}

	err := pgx.BeginFunc(ctx, w.db, func(tx pgx.Tx) error {
		blobInsert := `
			INSERT INTO photo_blob (blob_id, variant_1, variant_2, variant_3)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (blob_id) DO NOTHING
		`
		if _, err := tx.Exec(ctx, blobInsert, blob.BlobID, blob.Variant1, blob.Variant2, blob.Variant3); err != nil {
			return fmt.Errorf("failed to insert blob: %w", err)
		}

		indexInsert := `
			INSERT INTO photo_index (photo_id, cookie, blob_id, needle_offset)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.Exec(ctx, indexInsert, rec.PhotoID, rec.Cookie, rec.BlobID, int16(rec.NeedleOffset)); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: %s", ErrIdentityExists, identity)
			}
			return fmt.Errorf("failed to insert index record: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.IndexRecord{}, err
	}

	return rec, nil
}
