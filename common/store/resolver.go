package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/metrics"
	"github.com/lyzr/haystack/common/models"
)

const (
	// (photo_id, cookie) is the primary key, so at most one row matches.
	// LIMIT 1 keeps first-row-wins if the key is ever relaxed.
	indexQuery = `
		SELECT blob_id, needle_offset
		FROM photo_index
		WHERE photo_id = $1 AND cookie = $2
		LIMIT 1
	`

	blobQuery = `
		SELECT variant_1, variant_2, variant_3
		FROM photo_blob
		WHERE blob_id = $1
	`
)

// Router hands out the session for a partition. *Manager satisfies it.
type Router interface {
	Session(machineID int) (Session, error)
}

// Resolver walks the two-level index (photo_index -> photo_blob needle) on
// the partition a request is routed to. It borrows sessions and never
// opens or closes them.
type Resolver struct {
	router Router
	log    *logger.Logger
	tracer trace.Tracer
}

// NewResolver creates a resolver over the given partitions
func NewResolver(router Router, log *logger.Logger) *Resolver {
	return &Resolver{
		router: router,
		log:    log,
		tracer: otel.Tracer("haystack/store"),
	}
}

// Resolve returns the bytes of the variant identity points at on partition
// machineID. A missing index row is reported as (nil, false, nil); every
// other failure is a *Fault.
func (r *Resolver) Resolve(ctx context.Context, identity models.PhotoIdentity, machineID int) ([]byte, bool, error) {
	ctx, span := r.tracer.Start(ctx, "store.Resolve", trace.WithAttributes(
		attribute.String("photo.id", identity.PhotoID),
		attribute.Int("machine.id", machineID),
	))
	defer span.End()

	data, found, err := r.resolve(ctx, identity, machineID)
	if err != nil {
		kind := KindOf(err)
		metrics.StoreFaults.WithLabelValues(kind.String()).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())

		log := r.log.WithPhotoID(identity.PhotoID).WithMachineID(machineID)
		if kind == KindRouting {
			log.WarnContext(ctx, "store resolve rejected", "kind", kind.String(), "error", err)
		} else {
			log.ErrorContext(ctx, "store resolve failed", "kind", kind.String(), "error", err)
		}
		return nil, false, err
	}

	span.SetAttributes(attribute.Bool("store.found", found))
	return data, found, nil
}

func (r *Resolver) resolve(ctx context.Context, identity models.PhotoIdentity, machineID int) ([]byte, bool, error) {
	sess, err := r.router.Session(machineID)
	if err != nil {
		return nil, false, err
	}

	rec := models.IndexRecord{PhotoID: identity.PhotoID, Cookie: identity.Cookie}
	var offset int32
	err = sess.QueryRow(ctx, indexQuery, identity.PhotoID, identity.Cookie).Scan(&rec.BlobID, &offset)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, newFault(KindQuery, "index lookup", machineID, err)
	}

	rec.NeedleOffset = models.NeedleOffset(offset)
	if !rec.NeedleOffset.Valid() {
		return nil, false, newFault(KindIndexCorruption, "index lookup", machineID,
			fmt.Errorf("photo %s points at needle offset %d of blob %s", identity.PhotoID, offset, rec.BlobID))
	}

	blob := models.BlobRecord{BlobID: rec.BlobID}
	err = sess.QueryRow(ctx, blobQuery, rec.BlobID).Scan(&blob.Variant1, &blob.Variant2, &blob.Variant3)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, newFault(KindIndexCorruption, "blob lookup", machineID,
			fmt.Errorf("blob %s referenced by photo %s does not exist", rec.BlobID, identity.PhotoID))
	}
	if err != nil {
		return nil, false, newFault(KindQuery, "blob lookup", machineID, err)
	}

	data, err := blob.Needle(rec.NeedleOffset)
	if err != nil {
		return nil, false, newFault(KindIndexCorruption, "blob lookup", machineID, err)
	}
	if len(data) == 0 {
		return nil, false, newFault(KindIndexCorruption, "blob lookup", machineID,
			fmt.Errorf("photo %s points at empty needle %d of blob %s", identity.PhotoID, rec.NeedleOffset, rec.BlobID))
	}

	r.log.WithPhotoID(identity.PhotoID).DebugContext(ctx, "store resolved photo",
		"machine_id", machineID,
		"blob_id", rec.BlobID,
		"needle_offset", int(rec.NeedleOffset),
		"bytes", len(data),
	)

	return data, true, nil
}
