package models

const (
	// UnknownChapter labels lines seen before the first heading.
	UnknownChapter = "UNKNOWN"

	// RefusalAnswer is returned verbatim when the manual does not cover a question.
	RefusalAnswer = "I don't know based on the manual."

	MetaSource  = "source"
	MetaChapter = "chapter"
	MetaPage    = "page"
)

// DefaultHeadingPhrases open sections whose headings are not written in upper case.
var DefaultHeadingPhrases = []string{"getting in", "on the road", "parking", "mobility"}

var (
	PromptPreambleTemplate = `You are a support assistant for the %s owner's manual.
Answer strictly based on the context below.
If the answer is not clearly contained in the context, reply exactly:
"%s"`

	ChunkHeaderTemplate = "[Chunk %d | Chapter: %s | Page: %d]\n"
)
