package rag

import (
	"fmt"

	"manual-rag/internal/config"
)

// ScoreFunc converts a store distance into a similarity score where larger is better.
type ScoreFunc func(distance float64) float64

// InverseDistance maps any non-negative distance into (0, 1] as 1/(1+d).
func InverseDistance(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

// CosineDistance undoes a cosine distance (1 - similarity), clamped to [0, 1].
func CosineDistance(distance float64) float64 {
	return min(max(1-distance, 0), 1)
}

// ScoreFuncByName resolves the configured score strategy.
func ScoreFuncByName(name string) (ScoreFunc, error) {
	switch name {
	case config.ScoreInverseDistance, "":
		return InverseDistance, nil
	case config.ScoreCosineDistance:
		return CosineDistance, nil
	default:
		return nil, fmt.Errorf("unknown score strategy %q", name)
	}
}
