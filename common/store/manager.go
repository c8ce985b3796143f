package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/lyzr/haystack/common/config"
	"github.com/lyzr/haystack/common/db"
	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/metrics"
)

// Connection retry bounds for a store partition
const (
	DefaultConnectAttempts = 20
	DefaultConnectBackoff  = 5 * time.Second
)

// ErrPartitionFatal marks a partition that exhausted its connect attempts
var ErrPartitionFatal = errors.New("store partition marked fatal")

// Session is a connected store partition. *db.DB satisfies it.
type Session interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Dialer establishes one session to a partition address
type Dialer func(ctx context.Context, address string) (Session, error)

// PostgresDialer dials partitions as pgx pools using the shared store config
func PostgresDialer(cfg config.StoreConfig, log *logger.Logger) Dialer {
	return func(ctx context.Context, address string) (Session, error) {
		d, err := db.New(ctx, cfg, address, log)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// PartitionStatus describes one configured partition
type PartitionStatus struct {
	MachineID int    `json:"machine_id"`
	Address   string `json:"address"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Manager owns one session per store partition. Sessions are addressed by
// position (machine_id) and are shared by all requests.
type Manager struct {
	dial     Dialer
	attempts int
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	log      *logger.Logger

	mu        sync.RWMutex
	addresses []string
	sessions  []Session
	faults    []error
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConnectAttempts sets the number of dial attempts per partition
func WithConnectAttempts(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.attempts = n
		}
	}
}

// WithConnectBackoff sets the fixed pause between dial attempts
func WithConnectBackoff(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d >= 0 {
			m.backoff = d
		}
	}
}

// WithSleep replaces the function used to wait between attempts
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ManagerOption {
	return func(m *Manager) {
		m.sleep = fn
	}
}

// NewManager creates a connection manager using dial for every partition
func NewManager(dial Dialer, log *logger.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		dial:     dial,
		attempts: DefaultConnectAttempts,
		backoff:  DefaultConnectBackoff,
		sleep:    sleepContext,
		log:      log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ConnectAll connects every partition in parallel. The returned slice is
// index-aligned with addresses; a partition that could not be reached holds
// nil and stays unavailable for the life of the manager.
func (m *Manager) ConnectAll(ctx context.Context, addresses []string) []Session {
	sessions := make([]Session, len(addresses))
	faults := make([]error, len(addresses))

	var g errgroup.Group
	for i, address := range addresses {
		g.Go(func() error {
			sessions[i], faults[i] = m.ConnectOne(ctx, address)
			return nil
		})
	}
	_ = g.Wait()

	available := 0
	for i, err := range faults {
		if err != nil {
			m.log.Error("store partition unavailable", "machine_id", i, "address", addresses[i], "error", err)
			continue
		}
		available++
	}
	metrics.StorePartitions.WithLabelValues("available").Set(float64(available))
	metrics.StorePartitions.WithLabelValues("fatal").Set(float64(len(addresses) - available))

	m.mu.Lock()
	m.addresses = append([]string(nil), addresses...)
	m.sessions = sessions
	m.faults = faults
	m.mu.Unlock()

	m.log.Info("store partitions connected", "total", len(addresses), "available", available)

	return append([]Session(nil), sessions...)
}

// ConnectOne dials a single partition, retrying with a fixed backoff up to
// the configured number of attempts. Exhausting the attempts returns an
// error wrapping ErrPartitionFatal.
func (m *Manager) ConnectOne(ctx context.Context, address string) (Session, error) {
	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		sess, err := m.dial(ctx, address)
		if err == nil {
			metrics.StoreConnectAttempts.WithLabelValues("success").Inc()
			m.log.Info("store session established", "address", address, "attempt", attempt)
			return sess, nil
		}

		lastErr = err
		metrics.StoreConnectAttempts.WithLabelValues("failure").Inc()
		m.log.Warn("store connect failed",
			"address", address,
			"attempt", attempt,
			"max_attempts", m.attempts,
			"error", err,
		)

		if attempt == m.attempts {
			break
		}
		if err := m.sleep(ctx, m.backoff); err != nil {
			return nil, fmt.Errorf("connect %s interrupted: %w", address, err)
		}
	}

	return nil, fmt.Errorf("%w: %s unreachable after %d attempts: %w", ErrPartitionFatal, address, m.attempts, lastErr)
}

// Session borrows the session for machineID
func (m *Manager) Session(machineID int) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if machineID < 0 || machineID >= len(m.sessions) {
		return nil, newFault(KindRouting, "route", machineID,
			fmt.Errorf("machine_id %d outside %d partitions", machineID, len(m.sessions)))
	}
	if sess := m.sessions[machineID]; sess != nil {
		return sess, nil
	}
	return nil, newFault(KindUnavailable, "route", machineID, m.faults[machineID])
}

// Len returns the number of configured partitions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Partitions reports the state of every configured partition
func (m *Manager) Partitions() []PartitionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]PartitionStatus, len(m.sessions))
	for i := range m.sessions {
		out[i] = PartitionStatus{
			MachineID: i,
			Address:   m.addresses[i],
			Available: m.sessions[i] != nil,
		}
		if m.faults[i] != nil {
			out[i].Error = m.faults[i].Error()
		}
	}
	return out
}

// Close closes every established session
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sess := range m.sessions {
		if sess != nil {
			sess.Close()
			m.sessions[i] = nil
			m.faults[i] = errors.New("manager closed")
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
