package models

import "errors"

var (
	ErrEmptyQuestion      = errors.New("question cannot be empty")
	ErrSourceNotFound     = errors.New("source document not found")
	ErrEmbeddingMismatch  = errors.New("embedding count does not match input count")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrStoreNotConfigured = errors.New("vector store not configured")
)
