package match

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultRating is assigned when a player is created without one.
const DefaultRating = 1500

// PlayerStatusFunc is invoked when a player's queue membership changes,
// outside all internal locks.
type PlayerStatusFunc func(id PlayerID, inQueue bool)

// Manager is the process-wide matchmaking façade: it owns the player
// registry and id allocator, delegates queueing to the matchmaker and fans
// results out through the two callback slots. Construct one per engine
// instance; it is not ambient global state.
type Manager struct {
	logger *zap.Logger

	mu           sync.Mutex // guards players + nextPlayerID
	players      map[PlayerID]*Player
	nextPlayerID PlayerID

	// opMu serializes the flag-flip-plus-queue-op phase of join, leave and
	// remove, so the in-queue flag and queue membership agree at every
	// quiescent point. It is never held while a callback runs, and it is
	// distinct from mu, which must not span a matchmaker call.
	opMu sync.Mutex

	matchmaker  *Matchmaker
	initialized atomic.Bool

	cbMu         sync.RWMutex
	matchNotify  MatchNotifyFunc
	playerStatus PlayerStatusFunc
}

// NewManager creates an uninitialized manager. Call Init before use.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:  logger,
		players: make(map[PlayerID]*Player),
	}
}

// Init constructs the matchmaker with the default rating strategy, wires the
// match-notify callback through to the external slot and starts the matching
// loop. Idempotent.
func (m *Manager) Init(playersPerRoom int) {
	if !m.initialized.CompareAndSwap(false, true) {
		return
	}
	mm := NewMatchmaker(playersPerRoom, m.logger)
	mm.SetStrategy(NewRatingStrategy(DefaultMaxRatingDiff))
	mm.SetMatchNotify(m.fireMatchNotify)
	m.matchmaker = mm
	mm.Start()
}

// Shutdown stops the matchmaker and clears the player registry. Idempotent.
func (m *Manager) Shutdown() {
	if !m.initialized.CompareAndSwap(true, false) {
		return
	}
	if m.matchmaker != nil {
		m.matchmaker.Stop()
	}

	m.mu.Lock()
	m.players = make(map[PlayerID]*Player)
	m.mu.Unlock()
}

// CreatePlayer registers a new player and returns it. IDs are strictly
// increasing and never reused.
func (m *Manager) CreatePlayer(name string, rating int) *Player {
	m.mu.Lock()
	m.nextPlayerID++
	p := NewPlayer(m.nextPlayerID, name, rating)
	m.players[p.ID()] = p
	m.mu.Unlock()

	p.Touch()
	m.logger.Debug("player created",
		zap.Uint64("player_id", uint64(p.ID())),
		zap.String("name", name),
		zap.Int("rating", rating))
	return p
}

// GetPlayer looks up a player by id.
func (m *Manager) GetPlayer(id PlayerID) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	return p, ok
}

// RemovePlayer deletes a player, correct whether or not it is queued. The
// registry lock is never held across the matchmaker call or the status
// callback. Removing an absent id is a no-op.
func (m *Manager) RemovePlayer(id PlayerID) {
	m.mu.Lock()
	p, ok := m.players[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.players, id)
	m.mu.Unlock()

	wasInQueue := false
	m.opMu.Lock()
	if p.InQueue() && m.matchmaker != nil {
		m.matchmaker.Remove(id)
		p.SetInQueue(false)
		wasInQueue = true
	}
	m.opMu.Unlock()

	if wasInQueue {
		m.fireStatus(id, false)
	}
	m.logger.Debug("player removed", zap.Uint64("player_id", uint64(id)))
}

// JoinMatchmaking adds a player to the match queue. The in-queue flag is
// flipped before the queue add is observable to the matching loop, so a
// concurrent leave cannot race past it; on add failure the flag is rolled
// back.
func (m *Manager) JoinMatchmaking(id PlayerID) error {
	if !m.initialized.Load() || m.matchmaker == nil {
		return ErrNotRunning
	}
	p, ok := m.GetPlayer(id)
	if !ok {
		return ErrPlayerNotFound
	}

	m.opMu.Lock()
	if p.InQueue() {
		m.opMu.Unlock()
		return ErrAlreadyInQueue
	}
	p.SetInQueue(true)
	p.Touch()
	if !m.matchmaker.Add(p) {
		p.SetInQueue(false)
		m.opMu.Unlock()
		return ErrQueueAddFailed
	}
	m.opMu.Unlock()

	m.fireStatus(id, true)
	return nil
}

// LeaveMatchmaking removes a player from the match queue.
func (m *Manager) LeaveMatchmaking(id PlayerID) error {
	if !m.initialized.Load() || m.matchmaker == nil {
		return ErrNotRunning
	}
	p, ok := m.GetPlayer(id)
	if !ok {
		return ErrPlayerNotFound
	}

	m.opMu.Lock()
	if !p.InQueue() {
		m.opMu.Unlock()
		return ErrNotInQueue
	}
	p.Touch()
	m.matchmaker.Remove(id)
	p.SetInQueue(false)
	m.opMu.Unlock()

	m.fireStatus(id, false)
	return nil
}

// QueueSize returns the current match queue length.
func (m *Manager) QueueSize() int {
	if m.matchmaker == nil {
		return 0
	}
	return m.matchmaker.QueueSize()
}

// PlayerCount returns the number of registered players.
func (m *Manager) PlayerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// Rooms returns a snapshot of all rooms.
func (m *Manager) Rooms() []*Room {
	if m.matchmaker == nil {
		return nil
	}
	return m.matchmaker.Rooms()
}

// GetRoom looks up a room by id.
func (m *Manager) GetRoom(id RoomID) (*Room, bool) {
	if m.matchmaker == nil {
		return nil, false
	}
	return m.matchmaker.Room(id)
}

// RoomCount returns the number of registered rooms.
func (m *Manager) RoomCount() int {
	if m.matchmaker == nil {
		return 0
	}
	return m.matchmaker.RoomCount()
}

// SetMatchNotifyCallback installs the external match notification sink.
func (m *Manager) SetMatchNotifyCallback(fn MatchNotifyFunc) {
	m.cbMu.Lock()
	m.matchNotify = fn
	m.cbMu.Unlock()
}

// SetPlayerStatusCallback installs the external player status sink.
func (m *Manager) SetPlayerStatusCallback(fn PlayerStatusFunc) {
	m.cbMu.Lock()
	m.playerStatus = fn
	m.cbMu.Unlock()
}

// SetMaxRatingDifference rebuilds the default strategy with a new threshold.
func (m *Manager) SetMaxRatingDifference(maxDiff int) {
	if m.matchmaker != nil {
		m.matchmaker.SetStrategy(NewRatingStrategy(maxDiff))
	}
}

// SetForceMatchOnTimeout enables or disables the greedy fallback path.
func (m *Manager) SetForceMatchOnTimeout(enabled bool) {
	if m.matchmaker != nil {
		m.matchmaker.SetForceMatchOnTimeout(enabled)
	}
}

// SetMatchTimeoutThreshold sets the head-waiter deadline in milliseconds.
func (m *Manager) SetMatchTimeoutThreshold(ms int64) {
	if m.matchmaker != nil {
		m.matchmaker.SetMatchTimeoutThreshold(ms)
	}
}

// PrintMatchmakingStatus writes a diagnostic dump of the queue (sorted by
// rating), the rooms and the effective configuration.
func (m *Manager) PrintMatchmakingStatus(w io.Writer) {
	fmt.Fprintln(w, "=== Matchmaking Status ===")

	if m.matchmaker == nil {
		fmt.Fprintln(w, "matchmaking not initialized")
		return
	}

	queued := m.matchmaker.QueuedPlayers()
	sort.Slice(queued, func(i, j int) bool {
		return queued[i].Rating() < queued[j].Rating()
	})
	fmt.Fprintf(w, "Players in queue: %d\n", len(queued))
	for _, p := range queued {
		fmt.Fprintf(w, "  [%d] %s (rating %d)\n", p.ID(), p.Name(), p.Rating())
	}

	rooms := m.matchmaker.Rooms()
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID() < rooms[j].ID() })
	fmt.Fprintf(w, "Rooms: %d\n", len(rooms))
	for _, r := range rooms {
		fmt.Fprintf(w, "  room %d: %s %d/%d avg %.1f\n",
			r.ID(), r.Status(), r.PlayerCount(), r.Capacity(), r.AverageRating())
	}

	maxDiff := "custom"
	if rs, ok := m.matchmaker.Strategy().(*RatingStrategy); ok {
		maxDiff = fmt.Sprintf("%d", rs.MaxRatingDiff())
	}
	fmt.Fprintf(w, "Config: players_per_room=%d max_rating_diff=%s force_match_on_timeout=%t match_timeout_ms=%d\n",
		m.matchmaker.PlayersPerRoom(), maxDiff,
		m.matchmaker.ForceMatchOnTimeout(), m.matchmaker.MatchTimeoutThreshold())
}

// fireMatchNotify forwards a new room to the external slot. Installed as the
// matchmaker's sink; the matchmaker already recovers callback panics.
func (m *Manager) fireMatchNotify(room *Room) {
	m.cbMu.RLock()
	fn := m.matchNotify
	m.cbMu.RUnlock()
	if fn != nil {
		fn(room)
	}
}

// fireStatus invokes the player status slot. Panics are recovered and
// logged; a failing callback stays registered.
func (m *Manager) fireStatus(id PlayerID, inQueue bool) {
	m.cbMu.RLock()
	fn := m.playerStatus
	m.cbMu.RUnlock()
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("player status callback panicked",
				zap.Uint64("player_id", uint64(id)),
				zap.Any("panic", r))
		}
	}()
	fn(id, inQueue)
}
