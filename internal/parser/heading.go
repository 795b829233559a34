package parser

import (
	"strings"
	"unicode"
)

// HeadingClassifier decides whether a trimmed, non-blank line starts a new chapter.
type HeadingClassifier interface {
	IsHeading(line string) bool
}

// HeadingFunc adapts a plain function to HeadingClassifier.
type HeadingFunc func(line string) bool

func (f HeadingFunc) IsHeading(line string) bool { return f(line) }

const (
	defaultMinHeadingTokens = 3
	defaultMaxHeadingTokens = 8
)

// Heuristic treats short all-caps lines and lines opening with a known
// section phrase as headings.
type Heuristic struct {
	Phrases   []string
	MinTokens int
	MaxTokens int
}

// NewHeuristic returns a Heuristic accepting 3 to 8 upper-case tokens.
func NewHeuristic(phrases []string) *Heuristic {
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Heuristic{
		Phrases:   lowered,
		MinTokens: defaultMinHeadingTokens,
		MaxTokens: defaultMaxHeadingTokens,
	}
}

func (h *Heuristic) IsHeading(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	if isUpper(s) {
		if n := len(strings.Fields(s)); n >= h.MinTokens && n <= h.MaxTokens {
			return true
		}
	}
	lower := strings.ToLower(s)
	for _, phrase := range h.Phrases {
		if strings.HasPrefix(lower, phrase) {
			return true
		}
	}
	return false
}

// isUpper reports whether s has at least one cased letter and all of them are
// upper case. Title-case letters such as 'ǅ' do not count as upper case.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

// HeadingSet matches lines equal to one of a fixed set of headings.
type HeadingSet map[string]struct{}

func NewHeadingSet(headings []string) HeadingSet {
	set := make(HeadingSet, len(headings))
	for _, h := range headings {
		if h = strings.TrimSpace(h); h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}

func (s HeadingSet) IsHeading(line string) bool {
	_, ok := s[strings.TrimSpace(line)]
	return ok
}

// AnyOf reports a heading when any of the classifiers does.
func AnyOf(classifiers ...HeadingClassifier) HeadingClassifier {
	return HeadingFunc(func(line string) bool {
		for _, c := range classifiers {
			if c != nil && c.IsHeading(line) {
				return true
			}
		}
		return false
	})
}
