package match

import "sync"

// RoomID identifies a room within a matchmaker.
type RoomID uint64

// RoomStatus is the room lifecycle state.
type RoomStatus int32

const (
	RoomWaiting RoomStatus = iota
	RoomReady
	RoomStarted
	RoomFinished
)

func (s RoomStatus) String() string {
	switch s {
	case RoomWaiting:
		return "WAITING"
	case RoomReady:
		return "READY"
	case RoomStarted:
		return "STARTED"
	case RoomFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Room is a committed group of players plus metadata. Capacity and the
// optional rating band are fixed at creation; a band bound of 0 means
// unbounded. The matching path always creates unbounded rooms, the band only
// gates directly synthesized ones.
type Room struct {
	id        RoomID
	capacity  int
	minRating int
	maxRating int
	createdAt int64

	mu      sync.RWMutex
	players map[PlayerID]*Player
	status  RoomStatus
}

// NewRoom creates an empty WAITING room.
func NewRoom(id RoomID, capacity, minRating, maxRating int) *Room {
	return &Room{
		id:        id,
		capacity:  capacity,
		minRating: minRating,
		maxRating: maxRating,
		createdAt: nowMillis(),
		players:   make(map[PlayerID]*Player, capacity),
		status:    RoomWaiting,
	}
}

func (r *Room) ID() RoomID { return r.id }

func (r *Room) Capacity() int { return r.capacity }

func (r *Room) MinRating() int { return r.minRating }

func (r *Room) MaxRating() int { return r.maxRating }

func (r *Room) CreatedAt() int64 { return r.createdAt }

func (r *Room) Status() RoomStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Room) SetStatus(status RoomStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

func (r *Room) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

func (r *Room) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players) >= r.capacity
}

// AddPlayer adds a player to the room. It fails if the room is no longer
// WAITING, is full, the player's rating falls outside the band, or the
// player is already present. Filling the last slot flips the room to READY.
func (r *Room) AddPlayer(p *Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != RoomWaiting || len(r.players) >= r.capacity {
		return false
	}
	if !r.ratingInRange(p.Rating()) {
		return false
	}
	if _, exists := r.players[p.ID()]; exists {
		return false
	}

	r.players[p.ID()] = p
	if len(r.players) >= r.capacity {
		r.status = RoomReady
	}
	return true
}

// RemovePlayer removes a player by id. A READY room drops back to WAITING.
func (r *Room) RemovePlayer(id PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.players[id]; !exists {
		return false
	}
	delete(r.players, id)
	if r.status == RoomReady {
		r.status = RoomWaiting
	}
	return true
}

// Players returns a snapshot of the room members.
func (r *Room) Players() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	return players
}

// RatingInRange reports whether a rating fits the room's band.
func (r *Room) RatingInRange(rating int) bool {
	return r.ratingInRange(rating)
}

func (r *Room) ratingInRange(rating int) bool {
	if r.minRating > 0 && rating < r.minRating {
		return false
	}
	if r.maxRating > 0 && rating > r.maxRating {
		return false
	}
	return true
}

// AverageRating returns the mean rating of the current members, 0 for an
// empty room.
func (r *Room) AverageRating() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.players) == 0 {
		return 0
	}
	sum := 0
	for _, p := range r.players {
		sum += p.Rating()
	}
	return float64(sum) / float64(len(r.players))
}
