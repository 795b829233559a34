package rag

import (
	"sort"
	"strings"
	"unicode/utf8"

	"manual-rag/internal/models"
)

// DistinctChapters collects the chapter labels present in metas, sorted so
// that resolution does not depend on store iteration order.
func DistinctChapters(metas []map[string]string) []string {
	seen := make(map[string]struct{})
	for _, meta := range metas {
		if ch := meta[models.MetaChapter]; ch != "" {
			seen[ch] = struct{}{}
		}
	}
	chapters := make([]string, 0, len(seen))
	for ch := range seen {
		chapters = append(chapters, ch)
	}
	sort.Strings(chapters)
	return chapters
}

// ResolveChapter picks the chapter whose label shares the longest token with
// the question. Ties go to the chapter listed first.
func ResolveChapter(question string, chapters []string) (string, bool) {
	q := strings.ToLower(question)

	var (
		best    string
		bestLen int
	)
	for _, ch := range chapters {
		for _, token := range strings.Fields(strings.ToLower(ch)) {
			n := utf8.RuneCountInString(token)
			if n > bestLen && strings.Contains(q, token) {
				best = ch
				bestLen = n
			}
		}
	}
	return best, bestLen > 0
}
