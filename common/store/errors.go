package store

import (
	"errors"
	"fmt"
)

// Kind classifies store faults. A miss is not a fault.
type Kind int

const (
	// KindNone is reported for errors that are not store faults
	KindNone Kind = iota
	// KindRouting: machine_id does not index the partition list
	KindRouting
	// KindUnavailable: the partition never connected and is marked fatal
	KindUnavailable
	// KindIndexCorruption: an index row points at an invalid needle or a missing blob
	KindIndexCorruption
	// KindQuery: the session failed while querying
	KindQuery
)

// String returns the label used in logs and metrics
func (k Kind) String() string {
	switch k {
	case KindRouting:
		return "routing"
	case KindUnavailable:
		return "unavailable"
	case KindIndexCorruption:
		return "index_corruption"
	case KindQuery:
		return "query"
	default:
		return "none"
	}
}

// Fault is a store-level failure carrying its kind and the partition involved
type Fault struct {
	Kind      Kind
	Op        string
	MachineID int
	Err       error
}

// Error implements the error interface
func (f *Fault) Error() string {
	base := fmt.Sprintf("%s: %s fault on machine %d", f.Op, f.Kind, f.MachineID)
	if f.Err != nil {
		return base + ": " + f.Err.Error()
	}
	return base
}

// Unwrap returns the underlying error
func (f *Fault) Unwrap() error { return f.Err }

// Is matches faults of the same kind, so errors.Is(err, ErrRouting) works
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}
	return t.Op == "" && t.Kind == f.Kind
}

// Sentinels for errors.Is checks
var (
	ErrRouting         = &Fault{Kind: KindRouting}
	ErrUnavailable     = &Fault{Kind: KindUnavailable}
	ErrIndexCorruption = &Fault{Kind: KindIndexCorruption}
	ErrQuery           = &Fault{Kind: KindQuery}
)

func newFault(kind Kind, op string, machineID int, err error) error {
	return &Fault{Kind: kind, Op: op, MachineID: machineID, Err: err}
}

// KindOf extracts the Kind from err, walking wrapped errors as needed
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindNone
}
