package parser

import (
	"iter"
	"slices"
	"strings"
	"unicode/utf8"

	"manual-rag/internal/helper"
	"manual-rag/internal/models"
)

const (
	defaultChunkSize    = 800 // characters
	defaultChunkOverlap = 200 // characters
)

// Chunker packs consecutive lines of one chapter into chunks of at most Size
// characters, carrying the last Overlap characters of a full chunk into the next.
type Chunker struct {
	Size    int
	Overlap int
	newID   func() string
}

// NewChunker builds a Chunker. Non-positive sizes fall back to the defaults and
// the overlap is clamped to [0, size). A nil newID generates random UUIDs.
func NewChunker(size, overlap int, newID func() string) *Chunker {
	if size <= 0 {
		size = defaultChunkSize
		if overlap == 0 {
			overlap = defaultChunkOverlap
		}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	if newID == nil {
		newID = helper.NewChunkID
	}
	return &Chunker{Size: size, Overlap: overlap, newID: newID}
}

// chunkBuffer holds the text being accumulated and where its first line came from.
type chunkBuffer struct {
	text    string
	length  int // in runes
	chapter string
	page    int
}

func (b *chunkBuffer) seed(text, chapter string, page int) {
	b.text = text
	b.length = utf8.RuneCountInString(text)
	b.chapter = chapter
	b.page = page
}

func (b *chunkBuffer) empty() bool { return b.text == "" }

// Chunk groups lines into chunks. A chapter change always closes the current
// chunk so that no chunk spans two chapters.
func (c *Chunker) Chunk(lines iter.Seq[models.LineRecord]) []models.Chunk {
	var (
		chunks []models.Chunk
		buf    chunkBuffer
	)
	flush := func(chapter string, page int) {
		if buf.empty() {
			return
		}
		chunks = append(chunks, models.Chunk{
			ID:         c.newID(),
			Text:       buf.text,
			Chapter:    chapter,
			PageNumber: page,
		})
	}

	for rec := range lines {
		if !buf.empty() && rec.Chapter != buf.chapter {
			flush(buf.chapter, buf.page)
			buf = chunkBuffer{}
		}

		if buf.empty() {
			buf.seed(rec.Text, rec.Chapter, rec.PageNumber)
			continue
		}

		lineLen := utf8.RuneCountInString(rec.Text)
		if buf.length+1+lineLen <= c.Size {
			buf.text += " " + rec.Text
			buf.length += 1 + lineLen
			continue
		}

		// full: close the chunk under the incoming line's page and slide the window
		flush(rec.Chapter, rec.PageNumber)
		seed := strings.TrimSpace(tail(buf.text, c.Overlap) + " " + rec.Text)
		buf.seed(seed, rec.Chapter, rec.PageNumber)
	}
	flush(buf.chapter, buf.page)

	return chunks
}

// ChunkRecords is Chunk over an already collected slice.
func (c *Chunker) ChunkRecords(records []models.LineRecord) []models.Chunk {
	return c.Chunk(slices.Values(records))
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := len(s); i > 0; {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
		count++
		if count == n {
			return s[i:]
		}
	}
	return s
}
