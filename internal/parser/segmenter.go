package parser

import (
	"iter"
	"strings"

	"manual-rag/internal/models"
)

// segmentState is the accumulator threaded through the line fold.
type segmentState struct {
	chapter string
}

// Segment turns pages into chapter-tagged content lines. Heading and blank
// lines are dropped. The sequence is lazy and can be ranged over repeatedly.
func Segment(pages []models.Page, cls HeadingClassifier) iter.Seq[models.LineRecord] {
	return func(yield func(models.LineRecord) bool) {
		state := segmentState{chapter: models.UnknownChapter}
		for _, page := range pages {
			for _, line := range strings.Split(page.Text, "\n") {
				var (
					rec models.LineRecord
					ok  bool
				)
				state, rec, ok = processLine(state, cls, page.Number, line)
				if ok && !yield(rec) {
					return
				}
			}
		}
	}
}

// processLine folds one raw line into the state, returning a record for content lines.
func processLine(state segmentState, cls HeadingClassifier, pageNumber int, raw string) (segmentState, models.LineRecord, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return state, models.LineRecord{}, false
	}
	if cls != nil && cls.IsHeading(line) {
		return segmentState{chapter: line}, models.LineRecord{}, false
	}
	return state, models.LineRecord{PageNumber: pageNumber, Chapter: state.chapter, Text: line}, true
}

// SegmentAll collects the whole sequence.
func SegmentAll(pages []models.Page, cls HeadingClassifier) []models.LineRecord {
	var records []models.LineRecord
	for rec := range Segment(pages, cls) {
		records = append(records, rec)
	}
	return records
}
