package match

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T, playersPerRoom int) *Manager {
	t.Helper()
	m := NewManager(zap.NewNop())
	m.Init(playersPerRoom)
	t.Cleanup(m.Shutdown)
	return m
}

// statusRecorder captures player status callback invocations in order.
type statusRecorder struct {
	mu     sync.Mutex
	events []statusEvent
}

type statusEvent struct {
	id      PlayerID
	inQueue bool
}

func (r *statusRecorder) record(id PlayerID, inQueue bool) {
	r.mu.Lock()
	r.events = append(r.events, statusEvent{id, inQueue})
	r.mu.Unlock()
}

func (r *statusRecorder) snapshot() []statusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]statusEvent(nil), r.events...)
}

func TestManagerMonotonicPlayerIDs(t *testing.T) {
	m := newTestManager(t, 2)

	a := m.CreatePlayer("a", 1500)
	b := m.CreatePlayer("b", 1500)
	assert.Greater(t, b.ID(), a.ID())

	m.RemovePlayer(a.ID())
	c := m.CreatePlayer("c", 1500)
	assert.Greater(t, c.ID(), b.ID(), "ids are never reused")
}

func TestManagerGetPlayer(t *testing.T) {
	m := newTestManager(t, 2)
	p := m.CreatePlayer("a", 1700)

	got, ok := m.GetPlayer(p.ID())
	require.True(t, ok)
	assert.Same(t, p, got)
	assert.Equal(t, 1700, got.Rating())

	_, ok = m.GetPlayer(9999)
	assert.False(t, ok)
}

func TestManagerJoinLeaveLaws(t *testing.T) {
	m := newTestManager(t, 8) // large room size: the loop never commits
	p := m.CreatePlayer("a", 1500)

	require.NoError(t, m.JoinMatchmaking(p.ID()))
	assert.True(t, p.InQueue())
	assert.Equal(t, 1, m.QueueSize())

	// Joining a queued player fails and does not duplicate the entry.
	assert.ErrorIs(t, m.JoinMatchmaking(p.ID()), ErrAlreadyInQueue)
	assert.Equal(t, 1, m.QueueSize())

	require.NoError(t, m.LeaveMatchmaking(p.ID()))
	assert.False(t, p.InQueue())
	assert.Equal(t, 0, m.QueueSize())

	// Leaving when not queued fails; state unchanged.
	assert.ErrorIs(t, m.LeaveMatchmaking(p.ID()), ErrNotInQueue)

	assert.ErrorIs(t, m.JoinMatchmaking(9999), ErrPlayerNotFound)
	assert.ErrorIs(t, m.LeaveMatchmaking(9999), ErrPlayerNotFound)
}

func TestManagerJoinRefreshesActivity(t *testing.T) {
	m := newTestManager(t, 8)
	p := m.CreatePlayer("a", 1500)
	before := p.LastActivity()
	require.Positive(t, before)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, m.JoinMatchmaking(p.ID()))
	assert.GreaterOrEqual(t, p.LastActivity(), before)
}

func TestManagerRemovePlayerClearsQueue(t *testing.T) {
	m := newTestManager(t, 8)
	rec := &statusRecorder{}
	m.SetPlayerStatusCallback(rec.record)

	p := m.CreatePlayer("a", 1500)
	require.NoError(t, m.JoinMatchmaking(p.ID()))

	m.RemovePlayer(p.ID())
	assert.Equal(t, 0, m.QueueSize())
	assert.Equal(t, 0, m.PlayerCount())
	assert.False(t, p.InQueue())

	events := rec.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, statusEvent{p.ID(), true}, events[0])
	assert.Equal(t, statusEvent{p.ID(), false}, events[1])

	// Removing an absent id is a no-op.
	m.RemovePlayer(p.ID())
	m.RemovePlayer(9999)
}

func TestManagerBasicTwoPlayerMatch(t *testing.T) {
	m := newTestManager(t, 2)

	rooms := make(chan *Room, 1)
	m.SetMatchNotifyCallback(func(r *Room) { rooms <- r })

	p1 := m.CreatePlayer("p1", 1500)
	p2 := m.CreatePlayer("p2", 1600)
	require.NoError(t, m.JoinMatchmaking(p1.ID()))
	require.NoError(t, m.JoinMatchmaking(p2.ID()))

	select {
	case room := <-rooms:
		ids := make(map[PlayerID]bool)
		for _, p := range room.Players() {
			ids[p.ID()] = true
			assert.False(t, p.InQueue())
		}
		assert.True(t, ids[p1.ID()])
		assert.True(t, ids[p2.ID()])
	case <-time.After(2 * time.Second):
		t.Fatal("no match within deadline")
	}
	assert.Equal(t, 0, m.QueueSize())
	assert.Equal(t, 1, m.RoomCount())
}

func TestManagerRatingGate(t *testing.T) {
	m := newTestManager(t, 2)
	m.SetMaxRatingDifference(300)
	m.SetForceMatchOnTimeout(false)

	p1 := m.CreatePlayer("p1", 1500)
	p2 := m.CreatePlayer("p2", 2000)
	require.NoError(t, m.JoinMatchmaking(p1.ID()))
	require.NoError(t, m.JoinMatchmaking(p2.ID()))

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 2, m.QueueSize())
	assert.Equal(t, 0, m.RoomCount())

	p3 := m.CreatePlayer("p3", 1600)
	require.NoError(t, m.JoinMatchmaking(p3.ID()))

	require.Eventually(t, func() bool { return m.RoomCount() == 1 }, 2*time.Second, 20*time.Millisecond)

	rooms := m.Rooms()
	require.Len(t, rooms, 1)
	ids := make(map[PlayerID]bool)
	for _, p := range rooms[0].Players() {
		ids[p.ID()] = true
	}
	assert.True(t, ids[p1.ID()])
	assert.True(t, ids[p3.ID()])

	// The out-of-band player is still waiting.
	assert.Equal(t, 1, m.QueueSize())
	assert.True(t, p2.InQueue())
}

func TestManagerLeaveBeforeMatch(t *testing.T) {
	m := newTestManager(t, 2)
	m.SetForceMatchOnTimeout(false)
	rec := &statusRecorder{}
	m.SetPlayerStatusCallback(rec.record)

	p1 := m.CreatePlayer("p1", 1500)
	p2 := m.CreatePlayer("p2", 1600)

	require.NoError(t, m.JoinMatchmaking(p1.ID()))
	require.NoError(t, m.LeaveMatchmaking(p1.ID()))
	require.NoError(t, m.JoinMatchmaking(p2.ID()))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, m.QueueSize())
	assert.Equal(t, 0, m.RoomCount())

	events := rec.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, statusEvent{p1.ID(), true}, events[0])
	assert.Equal(t, statusEvent{p1.ID(), false}, events[1])
	assert.Equal(t, statusEvent{p2.ID(), true}, events[2])
}

func TestManagerTimeoutFallback(t *testing.T) {
	m := newTestManager(t, 2)
	m.SetMaxRatingDifference(50)
	m.SetForceMatchOnTimeout(true)
	m.SetMatchTimeoutThreshold(300)

	p1 := m.CreatePlayer("p1", 1000)
	p2 := m.CreatePlayer("p2", 2000)
	require.NoError(t, m.JoinMatchmaking(p1.ID()))
	require.NoError(t, m.JoinMatchmaking(p2.ID()))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, m.RoomCount(), "no match before the deadline")

	require.Eventually(t, func() bool { return m.RoomCount() == 1 }, 2*time.Second, 20*time.Millisecond)
	rooms := m.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].PlayerCount())
}

func TestManagerConcurrentJoinLeave(t *testing.T) {
	m := newTestManager(t, 64)

	const players = 32
	ids := make([]PlayerID, players)
	for i := range ids {
		ids[i] = m.CreatePlayer("p", 1500).ID()
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				m.JoinMatchmaking(id)
				m.LeaveMatchmaking(id)
			}
		}()
	}
	wg.Wait()

	// Flag and queue membership agree at quiescence.
	assert.Equal(t, 0, m.QueueSize())
	for _, id := range ids {
		p, ok := m.GetPlayer(id)
		require.True(t, ok)
		assert.False(t, p.InQueue())
	}
}

func TestManagerInitShutdownIdempotent(t *testing.T) {
	m := NewManager(zap.NewNop())

	assert.ErrorIs(t, m.JoinMatchmaking(1), ErrNotRunning)

	m.Init(2)
	m.Init(4) // no-op

	p := m.CreatePlayer("a", 1500)
	require.NoError(t, m.JoinMatchmaking(p.ID()))

	m.Shutdown()
	m.Shutdown()
	assert.Equal(t, 0, m.PlayerCount())
}

func TestManagerStatusCallbackPanicRecovered(t *testing.T) {
	m := newTestManager(t, 8)
	m.SetPlayerStatusCallback(func(PlayerID, bool) { panic("boom") })

	p := m.CreatePlayer("a", 1500)
	require.NoError(t, m.JoinMatchmaking(p.ID()))
	require.NoError(t, m.LeaveMatchmaking(p.ID()))
	assert.Equal(t, 0, m.QueueSize())
}

func TestManagerPrintMatchmakingStatus(t *testing.T) {
	m := newTestManager(t, 2)
	m.SetForceMatchOnTimeout(false)

	b := m.CreatePlayer("bob", 1900)
	a := m.CreatePlayer("alice", 1200)
	require.NoError(t, m.JoinMatchmaking(b.ID()))
	require.NoError(t, m.JoinMatchmaking(a.ID()))

	var buf bytes.Buffer
	m.PrintMatchmakingStatus(&buf)
	out := buf.String()

	assert.Contains(t, out, "Players in queue: 2")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "max_rating_diff=300")
	assert.Contains(t, out, "players_per_room=2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("alice")), bytes.Index(buf.Bytes(), []byte("bob")),
		"queue dump is sorted by rating")
}
