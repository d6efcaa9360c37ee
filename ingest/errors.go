package ingest

import "errors"

var (
	// ErrRepositoryRequired indicates no entity repository was provided.
	ErrRepositoryRequired = errors.New("entity repository is required")

	// ErrEmbedderRequired indicates no embedder was provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmbeddingMismatch indicates the embedder returned a different
	// number of vectors than texts submitted.
	ErrEmbeddingMismatch = errors.New("embedding count does not match text count")
)
