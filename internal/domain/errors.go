package domain

import "errors"

var (
	// ErrConfig signals missing credentials, endpoints or otherwise unusable settings.
	// It is the only fatal class: callers stop before doing any work.
	ErrConfig = errors.New("configuration error")
	// ErrEmptyText signals a document with no extractable text.
	ErrEmptyText = errors.New("no extractable text")
	// ErrExtract signals a document the PDF parser could not read.
	ErrExtract = errors.New("text extraction failed")
	// ErrEmbeddingQuotaExceeded signals an exhausted provider quota.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorDimMismatch signals an embedding with unexpected dimensionality.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrChatProviderError signals a chat completion failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrInvalidQueryType signals an unsupported retrieval query type.
	ErrInvalidQueryType = errors.New("invalid query type")
	// ErrIndexNotFound signals a search index that has not been created yet.
	ErrIndexNotFound = errors.New("search index not found")
	// ErrEmptyQuestion signals a blank user question.
	ErrEmptyQuestion = errors.New("question is empty")
)
