package match

// DefaultMaxRatingDiff is the rating spread the default strategy tolerates.
const DefaultMaxRatingDiff = 300

// Strategy decides whether two players may share a room. Implementations
// must be pure: no side effects and no retained references to the inspected
// players. The queue caches the strategy pointer under its lock, so swapping
// a strategy is atomic from the matching loop's perspective.
type Strategy interface {
	Match(a, b *Player) bool
}

// RatingStrategy matches players whose ratings differ by at most MaxRatingDiff.
type RatingStrategy struct {
	maxDiff int
}

// NewRatingStrategy creates a rating-difference strategy with the given
// threshold.
func NewRatingStrategy(maxDiff int) *RatingStrategy {
	return &RatingStrategy{maxDiff: maxDiff}
}

func (s *RatingStrategy) Match(a, b *Player) bool {
	diff := a.Rating() - b.Rating()
	if diff < 0 {
		diff = -diff
	}
	return diff <= s.maxDiff
}

// MaxRatingDiff returns the configured threshold, for diagnostics.
func (s *RatingStrategy) MaxRatingDiff() int {
	return s.maxDiff
}
