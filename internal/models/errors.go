package models

import "errors"

// Error taxonomy of the pipeline. Callers match with errors.Is; the
// concrete cause is wrapped alongside the sentinel where one exists.
var (
	// ErrEmbeddingBackend: the embedding backend is unreachable or
	// returned malformed output, after retries were exhausted.
	ErrEmbeddingBackend = errors.New("embedding backend error")

	// ErrInputTooLarge: a single text exceeds the backend's maximum
	// input length.
	ErrInputTooLarge = errors.New("input exceeds embedding backend limit")

	// ErrIndexUnavailable: the vector store cannot be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrIngestionInProgress: an ingestion job for the document is
	// already running; the request is rejected, not queued.
	ErrIngestionInProgress = errors.New("ingestion already in progress")

	// ErrModelVersionMismatch: the query embedder and the indexed
	// content disagree on embedding model/version.
	ErrModelVersionMismatch = errors.New("embedding model version mismatch")

	// ErrScopeUnavailable: the access scope could not be determined;
	// retrieval fails closed instead of defaulting to any scope.
	ErrScopeUnavailable = errors.New("access scope unavailable")

	// ErrDocumentNotFound: no relational record for the document id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidTransition: the requested status change is not a legal
	// edge of the ingestion state machine.
	ErrInvalidTransition = errors.New("invalid ingestion state transition")
)
