package resolution

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/lyzr/haystack/common/cache"
	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/metrics"
	"github.com/lyzr/haystack/common/models"
)

// ErrNotInStore is returned by Warm when the store has no such photo
var ErrNotInStore = errors.New("photo not found in store")

// Status is the terminal state of a lookup
type Status int

const (
	// StatusNotFound: no entry and no fallback tier to consult
	StatusNotFound Status = iota
	// StatusFound: Data holds the value
	StatusFound
	// StatusInconsistent: the photo is in neither the cache nor the store
	StatusInconsistent
)

// String implements fmt.Stringer
func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusInconsistent:
		return "inconsistent"
	default:
		return "not_found"
	}
}

// Result of a lookup
type Result struct {
	Status Status
	Data   []byte
}

// Store resolves identities on a partition. *store.Resolver satisfies it.
type Store interface {
	Resolve(ctx context.Context, identity models.PhotoIdentity, machineID int) ([]byte, bool, error)
}

// Orchestrator is the read-through photo pipeline: cache check, store
// fallback, cache repair. It holds shared handles only and is safe for
// concurrent use.
type Orchestrator struct {
	cache  cache.Cache
	store  Store
	ttl    time.Duration
	log    *logger.Logger
	tracer trace.Tracer
	group  singleflight.Group
}

type storeResult struct {
	data  []byte
	found bool
}

// NewOrchestrator creates the photo pipeline. ttl applies to every cache
// write (0 = no expiration).
func NewOrchestrator(c cache.Cache, s Store, ttl time.Duration, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		cache:  c,
		store:  s,
		ttl:    ttl,
		log:    log,
		tracer: otel.Tracer("haystack/resolution"),
	}
}

// Lookup serves identity from the cache, falling back to partition
// machineID on a miss. Store faults are returned unchanged; a photo absent
// from both tiers is StatusInconsistent, never an error.
func (o *Orchestrator) Lookup(ctx context.Context, identity models.PhotoIdentity, machineID int) (Result, error) {
	ctx, span := o.tracer.Start(ctx, "resolution.Lookup", trace.WithAttributes(
		attribute.String("photo.id", identity.PhotoID),
		attribute.Int("machine.id", machineID),
	))
	defer span.End()

	log := o.log.WithContext(ctx).WithPhotoID(identity.PhotoID).WithMachineID(machineID)
	key := identity.CacheKey()

	data, hit, err := o.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheRequests.WithLabelValues(metrics.CachePhoto, metrics.ResultError).Inc()
		log.Warn("cache get failed, falling back to store", "error", err)
	case hit:
		metrics.CacheRequests.WithLabelValues(metrics.CachePhoto, metrics.ResultHit).Inc()
		span.SetAttributes(attribute.String("resolution.source", "cache"))
		return Result{Status: StatusFound, Data: data}, nil
	default:
		metrics.CacheRequests.WithLabelValues(metrics.CachePhoto, metrics.ResultMiss).Inc()
	}

	// The walk is shared by every caller of this key, so it must not end
	// when the caller that started it goes away.
	flightCtx := context.WithoutCancel(ctx)
	flight := o.group.DoChan(strconv.Itoa(machineID)+"/"+key, func() (any, error) {
		data, found, err := o.store.Resolve(flightCtx, identity, machineID)
		if err != nil || !found {
			return storeResult{}, err
		}
		o.repair(flightCtx, log, key, data)
		return storeResult{data: data, found: true}, nil
	})

	var fr singleflight.Result
	select {
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return Result{}, ctx.Err()
	case fr = <-flight:
	}

	v, err := fr.Val, fr.Err
	span.SetAttributes(attribute.Bool("resolution.shared", fr.Shared))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store fault")
		return Result{}, err
	}

	res := v.(storeResult)
	if !res.found {
		metrics.Inconsistencies.Inc()
		span.SetAttributes(attribute.String("resolution.source", "none"))
		log.Warn("detected inconsistency: photo missing from cache and store")
		return Result{Status: StatusInconsistent}, nil
	}

	span.SetAttributes(attribute.String("resolution.source", "store"))
	return Result{Status: StatusFound, Data: res.data}, nil
}

// Populate writes data for identity straight into the cache. Used by the
// write path once a photo is durably stored.
func (o *Orchestrator) Populate(ctx context.Context, identity models.PhotoIdentity, data []byte) error {
	if err := o.cache.Set(ctx, identity.CacheKey(), data, o.ttl); err != nil {
		return fmt.Errorf("failed to populate %s: %w", identity.PhotoID, err)
	}
	o.log.WithContext(ctx).WithPhotoID(identity.PhotoID).Debug("cache populated", "bytes", len(data))
	return nil
}

// Warm loads identity from partition machineID into the cache. A photo the
// store does not hold yields ErrNotInStore.
func (o *Orchestrator) Warm(ctx context.Context, identity models.PhotoIdentity, machineID int) error {
	data, found, err := o.store.Resolve(ctx, identity, machineID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s on machine %d", ErrNotInStore, identity.PhotoID, machineID)
	}
	return o.Populate(ctx, identity, data)
}

func (o *Orchestrator) repair(ctx context.Context, log *logger.Logger, key string, data []byte) {
	if err := o.cache.Set(ctx, key, data, o.ttl); err != nil {
		metrics.CacheRepairFailures.Inc()
		log.Warn("cache repair failed", "error", err)
		return
	}
	log.Debug("cache repaired from store", "bytes", len(data))
}
