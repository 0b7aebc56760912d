// Package rating implements the Elo update applied to player profiles
// when a session ends.
package rating

import "math"

const (
	// Default is the rating a fresh profile starts with.
	Default = 1500
	// K is the update factor per game.
	K = 32
)

// Expected returns the expected score of a against b.
func Expected(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400.0))
}

// Apply returns the new ratings after a game where a scored scoreA
// (1 win, 0.5 draw, 0 loss).
func Apply(a, b int, scoreA float64) (int, int) {
	ea := Expected(a, b)
	eb := Expected(b, a)
	na := a + int(math.Round(K*(scoreA-ea)))
	nb := b + int(math.Round(K*((1.0-scoreA)-eb)))
	return na, nb
}
