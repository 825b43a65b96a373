package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedPlayer(id PlayerID, rating int) *Player {
	p := NewPlayer(id, "p", rating)
	p.SetInQueue(true)
	p.Touch()
	return p
}

func TestQueueAddRejectsDuplicates(t *testing.T) {
	q := NewQueue()
	p := queuedPlayer(1, 1500)

	require.True(t, q.Add(p))
	assert.False(t, q.Add(p))
	assert.Equal(t, 1, q.Len())
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue()
	a := queuedPlayer(1, 1500)
	b := queuedPlayer(2, 1600)
	c := queuedPlayer(3, 1700)
	q.Add(a)
	q.Add(b)
	q.Add(c)

	q.Remove(2)
	require.Equal(t, 2, q.Len())
	snapshot := q.Players()
	assert.Equal(t, PlayerID(1), snapshot[0].ID(), "remainder order preserved")
	assert.Equal(t, PlayerID(3), snapshot[1].ID())

	// Removing an absent id is a no-op.
	q.Remove(42)
	assert.Equal(t, 2, q.Len())
}

func TestQueueTrySelectInsufficientPlayers(t *testing.T) {
	q := NewQueue()
	q.Add(queuedPlayer(1, 1500))

	group, forced := q.TrySelect(2, false, 0)
	assert.Nil(t, group)
	assert.False(t, forced)
	assert.Equal(t, 1, q.Len())
}

func TestQueueTrySelectHeadAnchored(t *testing.T) {
	q := NewQueue()
	q.SetStrategy(NewRatingStrategy(300))
	q.Add(queuedPlayer(1, 1000))
	q.Add(queuedPlayer(2, 2000))
	q.Add(queuedPlayer(3, 1100))

	group, forced := q.TrySelect(2, false, 0)
	require.Len(t, group, 2)
	assert.False(t, forced)
	assert.Equal(t, PlayerID(1), group[0].ID(), "head waiter anchors the group")
	assert.Equal(t, PlayerID(3), group[1].ID())

	// The incompatible middle entry is left behind.
	remaining := q.Players()
	require.Len(t, remaining, 1)
	assert.Equal(t, PlayerID(2), remaining[0].ID())
}

func TestQueueTrySelectChecksWholeGroup(t *testing.T) {
	q := NewQueue()
	q.SetStrategy(NewRatingStrategy(300))
	// 1300 is within 300 of the seed but not of the second member.
	q.Add(queuedPlayer(1, 1500))
	q.Add(queuedPlayer(2, 1750))
	q.Add(queuedPlayer(3, 1300))

	group, _ := q.TrySelect(3, false, 0)
	assert.Nil(t, group)
	assert.Equal(t, 3, q.Len())
}

func TestQueueTrySelectCommitClearsFlags(t *testing.T) {
	q := NewQueue()
	a := queuedPlayer(1, 1500)
	b := queuedPlayer(2, 1600)
	q.Add(a)
	q.Add(b)

	group, _ := q.TrySelect(2, false, 0)
	require.Len(t, group, 2)
	assert.False(t, a.InQueue())
	assert.False(t, b.InQueue())
	assert.Equal(t, 0, q.Len())
}

func TestQueueTrySelectTimeoutFallback(t *testing.T) {
	q := NewQueue()
	q.SetStrategy(NewRatingStrategy(50))
	a := queuedPlayer(1, 1000)
	b := queuedPlayer(2, 2000)
	q.Add(a)
	q.Add(b)

	// Before the head waiter's deadline the strategy holds.
	group, forced := q.TrySelect(2, true, 200*time.Millisecond)
	assert.Nil(t, group)
	assert.False(t, forced)

	time.Sleep(250 * time.Millisecond)

	group, forced = q.TrySelect(2, true, 200*time.Millisecond)
	require.Len(t, group, 2)
	assert.True(t, forced)
	assert.Equal(t, PlayerID(1), group[0].ID())
	assert.Equal(t, PlayerID(2), group[1].ID())
	assert.Equal(t, 0, q.Len())
}

func TestQueueTrySelectFallbackDisabled(t *testing.T) {
	q := NewQueue()
	q.SetStrategy(NewRatingStrategy(50))
	q.Add(queuedPlayer(1, 1000))
	q.Add(queuedPlayer(2, 2000))

	time.Sleep(50 * time.Millisecond)

	group, forced := q.TrySelect(2, false, time.Millisecond)
	assert.Nil(t, group)
	assert.False(t, forced)
	assert.Equal(t, 2, q.Len())
}

func TestQueueClearResetsFlags(t *testing.T) {
	q := NewQueue()
	a := queuedPlayer(1, 1500)
	b := queuedPlayer(2, 1600)
	q.Add(a)
	q.Add(b)

	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.False(t, a.InQueue())
	assert.False(t, b.InQueue())
}

func TestQueueSetStrategy(t *testing.T) {
	q := NewQueue()
	require.IsType(t, &RatingStrategy{}, q.Strategy())

	s := NewRatingStrategy(50)
	q.SetStrategy(s)
	assert.Same(t, Strategy(s), q.Strategy())
}
