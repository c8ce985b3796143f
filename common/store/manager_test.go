package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/haystack/common/logger"
)

// recordingSleep captures requested pauses without waiting
type recordingSleep struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses = append(s.pauses, d)
	return nil
}

func (s *recordingSleep) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum time.Duration
	for _, d := range s.pauses {
		sum += d
	}
	return sum
}

// countingDialer fails the first failures[address] dials of each address
type countingDialer struct {
	mu       sync.Mutex
	failures map[string]int
	dials    map[string]int
}

func newCountingDialer(failures map[string]int) *countingDialer {
	return &countingDialer{failures: failures, dials: make(map[string]int)}
}

func (d *countingDialer) dial(ctx context.Context, address string) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials[address]++
	if d.failures[address] < 0 || d.dials[address] <= d.failures[address] {
		return nil, errors.New("connection refused")
	}
	return newFakePartition(address), nil
}

func (d *countingDialer) count(address string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[address]
}

func TestConnectOne_AlwaysFailingAddress(t *testing.T) {
	dialer := newCountingDialer(map[string]int{"10.0.0.9": -1})
	sleeper := &recordingSleep{}
	m := NewManager(dialer.dial, logger.Discard(), WithSleep(sleeper.sleep))

	sess, err := m.ConnectOne(context.Background(), "10.0.0.9")

	require.Error(t, err)
	assert.Nil(t, sess)
	assert.True(t, errors.Is(err, ErrPartitionFatal))
	assert.Equal(t, 20, dialer.count("10.0.0.9"))
	require.Len(t, sleeper.pauses, 19)
	for _, d := range sleeper.pauses {
		assert.Equal(t, 5*time.Second, d)
	}
	assert.Equal(t, 95*time.Second, sleeper.total())
}

func TestConnectOne_SucceedsAfterTransientFailures(t *testing.T) {
	dialer := newCountingDialer(map[string]int{"10.0.0.1": 3})
	sleeper := &recordingSleep{}
	m := NewManager(dialer.dial, logger.Discard(), WithSleep(sleeper.sleep))

	sess, err := m.ConnectOne(context.Background(), "10.0.0.1")

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "10.0.0.1", sess.(*fakePartition).address)
	assert.Equal(t, 4, dialer.count("10.0.0.1"))
	assert.Len(t, sleeper.pauses, 3)
}

func TestConnectOne_CustomBounds(t *testing.T) {
	dialer := newCountingDialer(map[string]int{"db": -1})
	sleeper := &recordingSleep{}
	m := NewManager(dialer.dial, logger.Discard(),
		WithSleep(sleeper.sleep),
		WithConnectAttempts(3),
		WithConnectBackoff(time.Millisecond),
	)

	_, err := m.ConnectOne(context.Background(), "db")

	require.Error(t, err)
	assert.Equal(t, 3, dialer.count("db"))
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, sleeper.pauses)
}

func TestConnectOne_StopsWhenContextCancelled(t *testing.T) {
	dialer := newCountingDialer(map[string]int{"db": -1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(dialer.dial, logger.Discard(), WithConnectBackoff(time.Hour))

	_, err := m.ConnectOne(ctx, "db")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrPartitionFatal))
	assert.Equal(t, 1, dialer.count("db"))
}

func TestConnectAll_PreservesPartitionOrder(t *testing.T) {
	dialer := newCountingDialer(nil)
	m := NewManager(dialer.dial, logger.Discard(), WithSleep((&recordingSleep{}).sleep))

	sessions := m.ConnectAll(context.Background(), []string{"10.0.0.1", "10.0.0.2"})

	require.Len(t, sessions, 2)
	assert.Equal(t, "10.0.0.1", sessions[0].(*fakePartition).address)
	assert.Equal(t, "10.0.0.2", sessions[1].(*fakePartition).address)
	assert.Equal(t, 2, m.Len())

	for machineID, want := range []string{"10.0.0.1", "10.0.0.2"} {
		sess, err := m.Session(machineID)
		require.NoError(t, err)
		assert.Equal(t, want, sess.(*fakePartition).address)
	}
}

func TestConnectAll_FatalPartitionDoesNotBlockOthers(t *testing.T) {
	dialer := newCountingDialer(map[string]int{"10.0.0.2": -1, "10.0.0.3": 2})
	m := NewManager(dialer.dial, logger.Discard(), WithSleep((&recordingSleep{}).sleep))

	sessions := m.ConnectAll(context.Background(), []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"})

	require.Len(t, sessions, 3)
	assert.NotNil(t, sessions[0])
	assert.Nil(t, sessions[1])
	assert.NotNil(t, sessions[2])
	assert.Equal(t, 20, dialer.count("10.0.0.2"))

	_, err := m.Session(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.True(t, errors.Is(err, ErrPartitionFatal))

	status := m.Partitions()
	require.Len(t, status, 3)
	assert.True(t, status[0].Available)
	assert.False(t, status[1].Available)
	assert.Equal(t, "10.0.0.2", status[1].Address)
	assert.NotEmpty(t, status[1].Error)
	assert.True(t, status[2].Available)
}

func TestSession_OutOfRangeIsRoutingFault(t *testing.T) {
	dialer := newCountingDialer(nil)
	m := NewManager(dialer.dial, logger.Discard())
	m.ConnectAll(context.Background(), []string{"10.0.0.1", "10.0.0.2"})

	for _, machineID := range []int{5, 2, -1} {
		_, err := m.Session(machineID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRouting), "machine %d", machineID)
		assert.False(t, errors.Is(err, ErrUnavailable))

		var fault *Fault
		require.True(t, errors.As(err, &fault))
		assert.Equal(t, machineID, fault.MachineID)
	}
}

func TestManager_CloseReleasesSessions(t *testing.T) {
	dialer := newCountingDialer(nil)
	m := NewManager(dialer.dial, logger.Discard())
	sessions := m.ConnectAll(context.Background(), []string{"a", "b"})

	m.Close()

	for _, s := range sessions {
		assert.True(t, s.(*fakePartition).closed)
	}
	_, err := m.Session(0)
	assert.True(t, errors.Is(err, ErrUnavailable))
}
