package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

// fakeRow implements pgx.Row over fixed values
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int32:
			*p = r.values[i].(int32)
		case *[]byte:
			if r.values[i] == nil {
				*p = nil
				continue
			}
			*p = r.values[i].([]byte)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type indexRow struct {
	blobID string
	offset int32
}

// fakePartition is an in-memory partition answering the resolver queries
type fakePartition struct {
	address string

	mu      sync.Mutex
	index   map[[2]string]indexRow
	blobs   map[string][3][]byte
	queries int
	err     error
	closed  bool
}

func newFakePartition(address string) *fakePartition {
	return &fakePartition{
		address: address,
		index:   make(map[[2]string]indexRow),
		blobs:   make(map[string][3][]byte),
	}
}

func (p *fakePartition) putIndex(photoID, cookie, blobID string, offset int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index[[2]string{photoID, cookie}] = indexRow{blobID: blobID, offset: offset}
}

func (p *fakePartition) putBlob(blobID string, v1, v2, v3 string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blobs[blobID] = [3][]byte{[]byte(v1), []byte(v2), []byte(v3)}
}

// putBlobVariants stores raw variants; a nil entry models a NULL column
func (p *fakePartition) putBlobVariants(blobID string, variants [3][]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blobs[blobID] = variants
}

func (p *fakePartition) queryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

func (p *fakePartition) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queries++
	if p.err != nil {
		return fakeRow{err: p.err}
	}

	switch sql {
	case indexQuery:
		row, ok := p.index[[2]string{args[0].(string), args[1].(string)}]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{values: []any{row.blobID, row.offset}}
	case blobQuery:
		blob, ok := p.blobs[args[0].(string)]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{values: []any{blob[0], blob[1], blob[2]}}
	default:
		return fakeRow{err: errors.New("unexpected query")}
	}
}

func (p *fakePartition) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// staticRouter serves a fixed partition list
type staticRouter []Session

func (r staticRouter) Session(machineID int) (Session, error) {
	if machineID < 0 || machineID >= len(r) {
		return nil, newFault(KindRouting, "route", machineID, errors.New("out of range"))
	}
	return r[machineID], nil
}
