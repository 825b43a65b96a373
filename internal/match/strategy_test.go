package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatingStrategyMatch(t *testing.T) {
	s := NewRatingStrategy(300)

	a := NewPlayer(1, "a", 1500)
	b := NewPlayer(2, "b", 1800)
	c := NewPlayer(3, "c", 1801)

	assert.True(t, s.Match(a, b), "difference of exactly the threshold matches")
	assert.True(t, s.Match(b, a), "predicate is symmetric")
	assert.False(t, s.Match(a, c), "difference above the threshold does not match")
	assert.True(t, s.Match(a, a), "player matches itself")
}

func TestRatingStrategyMaxRatingDiff(t *testing.T) {
	assert.Equal(t, 150, NewRatingStrategy(150).MaxRatingDiff())
	assert.Equal(t, DefaultMaxRatingDiff, NewRatingStrategy(DefaultMaxRatingDiff).MaxRatingDiff())
}
