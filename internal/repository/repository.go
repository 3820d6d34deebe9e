package repository

import (
	"context"
	"fmt"

	"github.com/Houeta/ems-roster/internal/metrics"
	"github.com/Houeta/ems-roster/internal/store"
)

// DefaultDocument is the name of the roster document row.
const DefaultDocument = "Employee.json"

// Repository stores named roster documents in PostgreSQL.
type Repository struct {
	db      Database
	metrics *metrics.Metrics
	name    string
}

// HistoryRepoIface records accepted document writes.
type HistoryRepoIface interface {
	SaveCommit(ctx context.Context, name, revision, message string) error
}

// NewDocumentRepository returns a store.DocumentStore backed by the documents table.
func NewDocumentRepository(db Database, metrics *metrics.Metrics, name string) *Repository {
	if name == "" {
		name = DefaultDocument
	}

	return &Repository{db: db, metrics: metrics, name: name}
}

var (
	_ store.DocumentStore = (*Repository)(nil)
	_ HistoryRepoIface    = (*Repository)(nil)
)

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
