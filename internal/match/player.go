package match

import (
	"time"

	"go.uber.org/atomic"
)

// PlayerID identifies a player for the lifetime of the process. IDs are
// allocated by the Manager, strictly increasing and never reused.
type PlayerID uint64

// Player is a registered participant. The record is shared by reference
// between the manager's registry, the match queue and rooms, so the mutable
// fields are atomics: the matching loop and transport goroutines read them
// without taking the manager lock.
type Player struct {
	id   PlayerID
	name string

	rating       atomic.Int64
	inQueue      atomic.Bool
	lastActivity atomic.Int64 // epoch milliseconds
}

// NewPlayer creates a player with the given id, name and rating.
func NewPlayer(id PlayerID, name string, rating int) *Player {
	p := &Player{
		id:   id,
		name: name,
	}
	p.rating.Store(int64(rating))
	return p
}

func (p *Player) ID() PlayerID { return p.id }

func (p *Player) Name() string { return p.name }

func (p *Player) Rating() int { return int(p.rating.Load()) }

func (p *Player) SetRating(rating int) { p.rating.Store(int64(rating)) }

// InQueue reports whether the player is currently a member of the match
// queue. The flag is owned by the manager on the join/leave/remove paths and
// cleared by the queue when a selection commits.
func (p *Player) InQueue() bool { return p.inQueue.Load() }

func (p *Player) SetInQueue(inQueue bool) { p.inQueue.Store(inQueue) }

// LastActivity returns the epoch-millisecond timestamp of the most recent
// manager-level operation touching this player.
func (p *Player) LastActivity() int64 { return p.lastActivity.Load() }

// Touch refreshes the activity timestamp to now.
func (p *Player) Touch() { p.lastActivity.Store(nowMillis()) }

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
