package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manual-rag/internal/config"
)

func TestInverseDistance(t *testing.T) {
	assert.Equal(t, 1.0, InverseDistance(0))
	assert.Equal(t, 0.5, InverseDistance(1))
	assert.Equal(t, 1.0, InverseDistance(-3))

	prev := InverseDistance(0)
	for d := 0.25; d < 100; d *= 1.5 {
		s := InverseDistance(d)
		assert.Less(t, s, prev, "score must strictly decrease at d=%v", d)
		assert.Greater(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		prev = s
	}
}

func TestCosineDistance(t *testing.T) {
	assert.Equal(t, 1.0, CosineDistance(0))
	assert.InDelta(t, 0.75, CosineDistance(0.25), 1e-9)
	assert.Equal(t, 0.0, CosineDistance(1.5))
	assert.Equal(t, 1.0, CosineDistance(-0.1))
}

func TestScoreFuncByName(t *testing.T) {
	fn, err := ScoreFuncByName(config.ScoreInverseDistance)
	require.NoError(t, err)
	assert.Equal(t, 0.5, fn(1))

	fn, err = ScoreFuncByName(config.ScoreCosineDistance)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, fn(0.8), 1e-9)

	_, err = ScoreFuncByName("dot")
	assert.Error(t, err)
}
