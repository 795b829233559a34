package models

import "time"

// Page is the plain text of one page of the source document.
type Page struct {
	Number int
	Text   string
}

// LineRecord is a content line tagged with the chapter it was found in.
type LineRecord struct {
	PageNumber int    `json:"page_number"`
	Chapter    string `json:"chapter"`
	Text       string `json:"text"`
}

// Chunk represents a retrievable span of manual text with metadata
type Chunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Chapter    string `json:"chapter"`
	PageNumber int    `json:"page_number"`
}

type ChunkEmbedding struct {
	Chunk
	Source    string
	Embedding []float32
}

// Match is a single hit returned by a vector store. Smaller distances are closer.
type Match struct {
	ID       string
	Content  string
	Metadata map[string]string
	Distance float64
}

type RetrievalResult struct {
	Text    string  `json:"text"`
	Chapter string  `json:"chapter"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
}

// QueryOutcome is the complete answer to one question.
type QueryOutcome struct {
	Answer               string
	Sources              []RetrievalResult
	RetrievalLatency     time.Duration
	GenerationLatency    time.Duration
	AppliedChapterFilter *string
}
