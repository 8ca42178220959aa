package models

import "time"

// DocumentStatus is the ingestion lifecycle state of a document.
type DocumentStatus string

const (
	StatusPending  DocumentStatus = "pending"
	StatusIndexing DocumentStatus = "indexing"
	StatusIndexed  DocumentStatus = "indexed"
	StatusFailed   DocumentStatus = "failed"
)

// CanTransitionTo reports whether moving to next is a legal edge of the
// ingestion state machine. Same-state updates are allowed so metadata
// refreshes stay idempotent.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending, StatusFailed, StatusIndexed:
		return next == StatusIndexing
	case StatusIndexing:
		return next == StatusIndexed || next == StatusFailed
	}
	return false
}

// Document is the relational record of one piece of study material.
// The vector index never holds a chunk for a document unless the
// document's committed IndexVersion covers it.
type Document struct {
	ID           string
	OwnerID      string
	Status       DocumentStatus
	IndexVersion int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Chunk is a bounded, ordered segment of a document's text, the unit of
// embedding and retrieval. Start and End are byte offsets into the source
// text, half-open.
type Chunk struct {
	ID         string
	DocumentID string
	Ordinal    int
	Text       string
	Start      int
	End        int
}

// QueryResultItem is one ranked retrieval hit. Never persisted.
type QueryResultItem struct {
	ChunkID    string
	DocumentID string
	Score      float32
	Rank       int
	Text       string
}

// Scope is the set of documents a requester may read, each pinned to its
// committed index version. The version pin is what gives concurrent
// queries a consistent snapshot while a document is being re-ingested.
type Scope struct {
	DocVersions map[string]int
}

// Allows reports whether a record for the given document and index
// version falls inside the scope.
func (s Scope) Allows(documentID string, version int) bool {
	v, ok := s.DocVersions[documentID]
	return ok && v == version
}

// Empty reports whether the scope contains no documents.
func (s Scope) Empty() bool {
	return len(s.DocVersions) == 0
}
