package match

import (
	"sync"
	"time"
)

// Queue is the single FIFO of players awaiting a match. Order is insertion
// order; the head is the oldest waiter and anchors every selection. All
// operations are serialized by one mutex, and TrySelect holds it for the
// whole scan-and-commit.
type Queue struct {
	mu       sync.Mutex
	players  []*Player
	strategy Strategy
}

// NewQueue creates an empty queue with the default rating strategy.
func NewQueue() *Queue {
	return &Queue{
		strategy: NewRatingStrategy(DefaultMaxRatingDiff),
	}
}

// Add appends a player to the tail. It fails if the player is already
// present. Add does not modify the player's in-queue flag; the manager owns
// it on this path.
func (q *Queue) Add(p *Player) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, existing := range q.players {
		if existing.ID() == p.ID() {
			return false
		}
	}
	q.players = append(q.players, p)
	return true
}

// Remove removes the first entry with the given id, preserving the relative
// order of the remainder. Removing an absent id is a no-op.
func (q *Queue) Remove(id PlayerID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, p := range q.players {
		if p.ID() == id {
			q.players = append(q.players[:i], q.players[i+1:]...)
			return
		}
	}
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.players)
}

// Players returns a snapshot of the queue in order, for diagnostics.
func (q *Queue) Players() []*Player {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]*Player, len(q.players))
	copy(snapshot, q.players)
	return snapshot
}

// SetStrategy replaces the compatibility predicate.
func (q *Queue) SetStrategy(s Strategy) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.strategy = s
}

// Strategy returns the current compatibility predicate.
func (q *Queue) Strategy() Strategy {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.strategy
}

// Clear removes all entries and clears their in-queue flags.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range q.players {
		p.SetInQueue(false)
	}
	q.players = nil
}

// TrySelect attempts one selection of a compatible group of size required.
//
// The candidate group is seeded with the head waiter, then the rest of the
// queue is scanned in order; a player joins the group only if it is
// compatible with every already-selected member. If the group falls short
// and forceOnTimeout is set and the head waiter has been inactive longer
// than timeout, the first required entries are taken greedily instead,
// ignoring the strategy; forced reports that fallback fired.
//
// On success the members are removed from the queue (remainder order
// preserved) and their in-queue flags cleared.
func (q *Queue) TrySelect(required int, forceOnTimeout bool, timeout time.Duration) (group []*Player, forced bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if required <= 0 || len(q.players) < required {
		return nil, false
	}

	group = make([]*Player, 0, required)
	group = append(group, q.players[0])

	for i := 1; i < len(q.players) && len(group) < required; i++ {
		candidate := q.players[i]
		compatible := true
		for _, member := range group {
			if !q.strategy.Match(member, candidate) {
				compatible = false
				break
			}
		}
		if compatible {
			group = append(group, candidate)
		}
	}

	if len(group) < required && forceOnTimeout {
		waited := time.Duration(nowMillis()-q.players[0].LastActivity()) * time.Millisecond
		if waited > timeout {
			group = group[:0]
			group = append(group, q.players[:required]...)
			forced = true
		}
	}

	if len(group) < required {
		return nil, false
	}

	q.commit(group)
	return group, forced
}

// commit removes the selected members and clears their in-queue flags.
// Caller holds q.mu.
func (q *Queue) commit(group []*Player) {
	selected := make(map[PlayerID]struct{}, len(group))
	for _, p := range group {
		selected[p.ID()] = struct{}{}
		p.SetInQueue(false)
	}

	remaining := q.players[:0]
	for _, p := range q.players {
		if _, ok := selected[p.ID()]; !ok {
			remaining = append(remaining, p)
		}
	}
	for i := len(remaining); i < len(q.players); i++ {
		q.players[i] = nil
	}
	q.players = remaining
}
