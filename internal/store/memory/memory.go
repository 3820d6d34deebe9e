// Package memory is an in-process DocumentStore with the same revision contract as
// the remote backends. It backs local runs and tests.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/Houeta/ems-roster/internal/codec"
	"github.com/Houeta/ems-roster/internal/models"
	"github.com/Houeta/ems-roster/internal/store"
)

// Commit is one accepted write.
type Commit struct {
	Revision string
	Message  string
}

// Store keeps the roster in memory. The zero value is not usable, call New.
type Store struct {
	mu       sync.Mutex
	exists   bool
	records  []models.Employee
	revision string
	history  []Commit
}

// New returns an empty store. The document is created lazily on first read.
func New() *Store {
	return &Store{}
}

// NewWithRecords returns a store whose document already holds records.
func NewWithRecords(records []models.Employee) (*Store, error) {
	s := New()
	if _, err := s.WriteDocument(context.Background(), records, "", store.MsgInitialize); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) ReadDocument(ctx context.Context) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, fmt.Errorf("%w: %w", store.ErrTransport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists {
		if err := s.commit(nil, store.MsgInitialize); err != nil {
			return store.Document{}, err
		}
	}

	return store.Document{Records: slices.Clone(s.records), Revision: s.revision}, nil
}

func (s *Store) WriteDocument(
	ctx context.Context,
	records []models.Employee,
	expectedRevision, message string,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrTransport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if expectedRevision != "" {
		if !s.exists {
			return "", &store.ProviderError{
				Op:      "write document",
				Status:  http.StatusNotFound,
				Message: "document does not exist",
				Kind:    store.ErrResourceNotFound,
			}
		}
		if expectedRevision != s.revision {
			return "", &store.ProviderError{
				Op:      "write document",
				Status:  http.StatusConflict,
				Message: fmt.Sprintf("document is at %s, not %s", s.revision, expectedRevision),
				Kind:    store.ErrRevisionConflict,
			}
		}
	}

	if err := s.commit(records, message); err != nil {
		return "", err
	}

	return s.revision, nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// History returns the accepted writes, oldest first.
func (s *Store) History() []Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.history)
}

func (s *Store) commit(records []models.Employee, message string) error {
	// equal rosters share a revision, like a git blob sha
	raw, err := codec.Marshal(records)
	if err != nil {
		return err
	}

	s.records = slices.Clone(records)
	if s.records == nil {
		s.records = []models.Employee{}
	}
	s.revision = codec.Revision(raw)
	s.exists = true
	s.history = append(s.history, Commit{Revision: s.revision, Message: message})

	return nil
}
