// Package store defines the versioned roster document and the contract every
// document backend fulfils: a whole-document read returning a revision token, and a
// whole-document write conditioned on that token.
package store

import (
	"context"

	"github.com/Houeta/ems-roster/internal/models"
)

// Commit messages recorded with each document write.
const (
	MsgInitialize = "Initialize Employee.json"
	MsgAdd        = "Add new employee"
	MsgUpdate     = "Update employee"
	MsgDelete     = "Delete employee"
)

// Document is a snapshot of the roster together with the revision it was read at.
type Document struct {
	Records  []models.Employee
	Revision string
}

// DocumentStore is a compare-and-swap store over one roster document.
//
// WriteDocument replaces the whole document. When expectedRevision is not empty the
// write succeeds only if the stored revision still matches it, otherwise it fails with
// ErrRevisionConflict and leaves the document unchanged. An empty expectedRevision
// makes the write unconditional.
type DocumentStore interface {
	ReadDocument(ctx context.Context) (Document, error)
	WriteDocument(ctx context.Context, records []models.Employee, expectedRevision, message string) (string, error)
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
