package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"studi-rag/internal/models"
)

// Memory is an in-process Store for tests and local development.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string]models.Document
	shares map[string]map[string]struct{} // document id -> user ids
}

func NewMemory() *Memory {
	return &Memory{
		docs:   make(map[string]models.Document),
		shares: make(map[string]map[string]struct{}),
	}
}

func (m *Memory) CreateDocument(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.docs[doc.ID]; ok {
		existing.Status = doc.Status
		existing.LastError = doc.LastError
		existing.UpdatedAt = now
		m.docs[doc.ID] = existing
		return nil
	}
	d := *doc
	d.CreatedAt = now
	d.UpdatedAt = now
	m.docs[doc.ID] = d
	return nil
}

func (m *Memory) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, models.ErrDocumentNotFound)
	}
	return &d, nil
}

func (m *Memory) ListOwnedAndShared(ctx context.Context, requesterID string) ([]*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []*models.Document
	for id, d := range m.docs {
		if d.OwnerID == requesterID || m.isShared(id, requesterID) {
			doc := d
			docs = append(docs, &doc)
		}
	}
	return docs, nil
}

func (m *Memory) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, models.ErrDocumentNotFound)
	}
	if !d.Status.CanTransitionTo(status) {
		return fmt.Errorf("%s -> %s: %w", d.Status, status, models.ErrInvalidTransition)
	}
	d.Status = status
	d.LastError = lastError
	d.UpdatedAt = time.Now().UTC()
	m.docs[id] = d
	return nil
}

func (m *Memory) CommitIndexed(ctx context.Context, id string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, models.ErrDocumentNotFound)
	}
	if !d.Status.CanTransitionTo(models.StatusIndexed) {
		return fmt.Errorf("%s -> %s: %w", d.Status, models.StatusIndexed, models.ErrInvalidTransition)
	}
	d.Status = models.StatusIndexed
	d.IndexVersion = version
	d.LastError = ""
	d.UpdatedAt = time.Now().UTC()
	m.docs[id] = d
	return nil
}

func (m *Memory) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	delete(m.shares, id)
	return nil
}

func (m *Memory) ShareDocument(ctx context.Context, documentID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shares[documentID] == nil {
		m.shares[documentID] = make(map[string]struct{})
	}
	m.shares[documentID][userID] = struct{}{}
	return nil
}

func (m *Memory) isShared(documentID, userID string) bool {
	users, ok := m.shares[documentID]
	if !ok {
		return false
	}
	_, ok = users[userID]
	return ok
}
