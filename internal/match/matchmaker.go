package match

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// matchInterval is the matching loop cadence. Polling at a fixed cadence
// bounds both worst-case match latency and wasted work.
const matchInterval = 100 * time.Millisecond

// DefaultMatchTimeout is the default head-waiter deadline for the forced
// fallback path, in milliseconds.
const DefaultMatchTimeout = int64(5000)

// MatchNotifyFunc is invoked once per successfully created room, outside all
// internal locks.
type MatchNotifyFunc func(*Room)

// Matchmaker owns the match queue, the room registry and the matching loop.
type Matchmaker struct {
	logger *zap.Logger

	queue          *Queue
	playersPerRoom int

	roomsMu    sync.Mutex
	rooms      map[RoomID]*Room
	nextRoomID RoomID

	forceMatchOnTimeout atomic.Bool
	matchTimeout        atomic.Int64 // milliseconds

	notifyMu sync.RWMutex
	notify   MatchNotifyFunc

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewMatchmaker creates a matchmaker that groups playersPerRoom players per
// room. The loop does not run until Start is called.
func NewMatchmaker(playersPerRoom int, logger *zap.Logger) *Matchmaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Matchmaker{
		logger:         logger,
		queue:          NewQueue(),
		playersPerRoom: playersPerRoom,
		rooms:          make(map[RoomID]*Room),
	}
	m.forceMatchOnTimeout.Store(true)
	m.matchTimeout.Store(DefaultMatchTimeout)
	return m
}

// Start launches the matching loop. Idempotent.
func (m *Matchmaker) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.stopCh = make(chan struct{})
	m.wg.Add(1)
	go m.matchLoop()
	m.logger.Info("matchmaker started", zap.Int("players_per_room", m.playersPerRoom))
}

// Stop requests termination, joins the loop, then clears the queue.
// Idempotent.
func (m *Matchmaker) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
	m.queue.Clear()
	m.logger.Info("matchmaker stopped")
}

// Add forwards a player to the queue. It fails if the player is already
// queued.
func (m *Matchmaker) Add(p *Player) bool {
	return m.queue.Add(p)
}

// Remove forwards a removal to the queue.
func (m *Matchmaker) Remove(id PlayerID) {
	m.queue.Remove(id)
}

// QueueSize returns the current queue length.
func (m *Matchmaker) QueueSize() int {
	return m.queue.Len()
}

// QueuedPlayers returns a snapshot of the queue, for diagnostics.
func (m *Matchmaker) QueuedPlayers() []*Player {
	return m.queue.Players()
}

// PlayersPerRoom returns the group size the loop selects.
func (m *Matchmaker) PlayersPerRoom() int {
	return m.playersPerRoom
}

func (m *Matchmaker) SetStrategy(s Strategy) {
	m.queue.SetStrategy(s)
}

func (m *Matchmaker) Strategy() Strategy {
	return m.queue.Strategy()
}

func (m *Matchmaker) SetForceMatchOnTimeout(enabled bool) {
	m.forceMatchOnTimeout.Store(enabled)
}

func (m *Matchmaker) ForceMatchOnTimeout() bool {
	return m.forceMatchOnTimeout.Load()
}

// SetMatchTimeoutThreshold sets the head-waiter deadline in milliseconds for
// the forced fallback path.
func (m *Matchmaker) SetMatchTimeoutThreshold(ms int64) {
	m.matchTimeout.Store(ms)
}

func (m *Matchmaker) MatchTimeoutThreshold() int64 {
	return m.matchTimeout.Load()
}

// SetMatchNotify installs the single sink for successful matches.
func (m *Matchmaker) SetMatchNotify(fn MatchNotifyFunc) {
	m.notifyMu.Lock()
	m.notify = fn
	m.notifyMu.Unlock()
}

// CreateRoom assigns the next room id, constructs an unbounded room sized to
// the group, adds the players and registers it. Also used directly by
// callers that synthesize rooms.
func (m *Matchmaker) CreateRoom(players []*Player) *Room {
	m.roomsMu.Lock()
	m.nextRoomID++
	room := NewRoom(m.nextRoomID, len(players), 0, 0)
	for _, p := range players {
		room.AddPlayer(p)
	}
	m.rooms[room.ID()] = room
	m.roomsMu.Unlock()
	return room
}

// Rooms returns a snapshot of the room registry values, order unspecified.
func (m *Matchmaker) Rooms() []*Room {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Room looks up a room by id.
func (m *Matchmaker) Room(id RoomID) (*Room, bool) {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()
	room, ok := m.rooms[id]
	return room, ok
}

// RoomCount returns the number of registered rooms.
func (m *Matchmaker) RoomCount() int {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()
	return len(m.rooms)
}

func (m *Matchmaker) matchLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(matchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Matchmaker) tick() {
	timeout := time.Duration(m.matchTimeout.Load()) * time.Millisecond
	group, forced := m.queue.TrySelect(m.playersPerRoom, m.forceMatchOnTimeout.Load(), timeout)
	if group == nil {
		return
	}
	if forced {
		m.logger.Warn("force matching due to timeout",
			zap.Int64("timeout_ms", m.matchTimeout.Load()),
			zap.Int("group_size", len(group)))
	}

	room := m.CreateRoom(group)
	m.logger.Info("match found",
		zap.Uint64("room_id", uint64(room.ID())),
		zap.Int("players", room.PlayerCount()))

	m.fireMatchNotify(room)
}

// fireMatchNotify invokes the notify sink outside all locks. A panicking
// callback is recovered and logged; it must not kill the loop.
func (m *Matchmaker) fireMatchNotify(room *Room) {
	m.notifyMu.RLock()
	fn := m.notify
	m.notifyMu.RUnlock()
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("match notify callback panicked",
				zap.Uint64("room_id", uint64(room.ID())),
				zap.Any("panic", r))
		}
	}()
	fn(room)
}
