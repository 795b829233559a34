package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistinctChaptersSorted(t *testing.T) {
	chapters := DistinctChapters([]map[string]string{
		meta("TIRES", "1"), meta("PARKING", "2"), meta("TIRES", "3"), {"page": "4"}, meta("", "5"),
	})
	assert.Equal(t, []string{"PARKING", "TIRES"}, chapters)
	assert.Empty(t, DistinctChapters(nil))
}

func TestResolveChapterMatchesToken(t *testing.T) {
	ch, ok := ResolveChapter("How do I check tire pressure?", []string{"TIRE PRESSURE MONITOR"})
	assert.True(t, ok)
	assert.Equal(t, "TIRE PRESSURE MONITOR", ch)
}

func TestResolveChapterPrefersLongestToken(t *testing.T) {
	chapters := []string{"AIR CONDITIONING", "TIRE PRESSURE MONITOR"}
	ch, ok := ResolveChapter("what is the recommended tire pressure", chapters)
	assert.True(t, ok)
	assert.Equal(t, "TIRE PRESSURE MONITOR", ch)

	ch, ok = ResolveChapter("the air conditioning makes noise", chapters)
	assert.True(t, ok)
	assert.Equal(t, "AIR CONDITIONING", ch)
}

func TestResolveChapterTieGoesToFirst(t *testing.T) {
	chapters := DistinctChapters([]map[string]string{meta("SEAT BELTS", "1"), meta("SEAT HEATING", "2")})
	ch, ok := ResolveChapter("adjust the seat", chapters)
	assert.True(t, ok)
	assert.Equal(t, "SEAT BELTS", ch)
}

func TestResolveChapterSubstringMatch(t *testing.T) {
	ch, ok := ResolveChapter("Where are the parking sensors?", []string{"Parking assistant"})
	assert.True(t, ok)
	assert.Equal(t, "Parking assistant", ch)
}

func TestResolveChapterNone(t *testing.T) {
	_, ok := ResolveChapter("How do I open the sunroof?", []string{"TIRE PRESSURE MONITOR", "PARKING BRAKE"})
	assert.False(t, ok)

	_, ok = ResolveChapter("anything", nil)
	assert.False(t, ok)
}
