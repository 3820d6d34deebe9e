package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Houeta/ems-roster/internal/codec"
	"github.com/Houeta/ems-roster/internal/models"
	"github.com/Houeta/ems-roster/internal/store"
	"github.com/jackc/pgx/v5"
)

const (
	selectDocumentQuery = `SELECT content, revision FROM documents WHERE name = $1`
	initDocumentQuery   = `
		INSERT INTO documents (name, content, revision)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING;
	`
	upsertDocumentQuery = `
		INSERT INTO documents (name, content, revision)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET content = EXCLUDED.content, revision = EXCLUDED.revision, updated_at = CURRENT_TIMESTAMP;
	`
	casDocumentQuery = `
		UPDATE documents
		SET content = $2, revision = $3, updated_at = CURRENT_TIMESTAMP
		WHERE name = $1 AND revision = $4;
	`
	existsDocumentQuery = `SELECT EXISTS(SELECT 1 FROM documents WHERE name = $1)`
)

// ReadDocument returns the roster and its revision, creating an empty document first
// when the row does not exist.
func (r *Repository) ReadDocument(ctx context.Context) (store.Document, error) {
	startTime := time.Now()
	defer func() {
		r.metrics.DBQueryDuration.WithLabelValues("read_document").Observe(time.Since(startTime).Seconds())
	}()

	var content, revision string

	err := r.db.QueryRow(ctx, selectDocumentQuery, r.name).Scan(&content, &revision)
	if errors.Is(err, pgx.ErrNoRows) {
		if err = r.initDocument(ctx); err != nil {
			return store.Document{}, err
		}
		// read again, another writer may have initialized it first
		err = r.db.QueryRow(ctx, selectDocumentQuery, r.name).Scan(&content, &revision)
	}
	if err != nil {
		return store.Document{}, providerErr("read document", r.name, err)
	}

	records, err := codec.Unmarshal([]byte(content))
	if err != nil {
		return store.Document{}, fmt.Errorf("%w: %w", store.ErrMalformedDocument, err)
	}

	return store.Document{Records: records, Revision: revision}, nil
}

// WriteDocument replaces the roster. A non-empty expectedRevision turns the write into
// a compare-and-swap on the revision column. The document row and its history entry
// are written in one transaction.
func (r *Repository) WriteDocument(
	ctx context.Context,
	records []models.Employee,
	expectedRevision, message string,
) (string, error) {
	startTime := time.Now()
	defer func() {
		r.metrics.DBQueryDuration.WithLabelValues("write_document").Observe(time.Since(startTime).Seconds())
	}()

	raw, err := codec.Marshal(records)
	if err != nil {
		return "", err
	}
	revision := codec.Revision(raw)

	err = withTx(ctx, r.db, func(tx pgx.Tx) error {
		if expectedRevision == "" {
			if _, execErr := tx.Exec(ctx, upsertDocumentQuery, r.name, string(raw), revision); execErr != nil {
				return providerErr("write document", r.name, execErr)
			}
		} else {
			tag, execErr := tx.Exec(ctx, casDocumentQuery, r.name, string(raw), revision, expectedRevision)
			if execErr != nil {
				return providerErr("write document", r.name, execErr)
			}
			if tag.RowsAffected() == 0 {
				return r.casFailure(ctx, tx, expectedRevision)
			}
		}

		if commitErr := saveCommit(ctx, tx, r.name, revision, message); commitErr != nil {
			return providerErr("record commit of", r.name, commitErr)
		}

		return nil
	})
	if err != nil {
		return "", wrapTxErr(r.name, err)
	}

	return revision, nil
}

func (r *Repository) initDocument(ctx context.Context) error {
	raw, err := codec.Marshal(nil)
	if err != nil {
		return err
	}
	revision := codec.Revision(raw)

	err = withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, execErr := tx.Exec(ctx, initDocumentQuery, r.name, string(raw), revision)
		if execErr != nil {
			return providerErr("initialize document", r.name, execErr)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		if commitErr := saveCommit(ctx, tx, r.name, revision, store.MsgInitialize); commitErr != nil {
			return providerErr("record commit of", r.name, commitErr)
		}

		return nil
	})

	return wrapTxErr(r.name, err)
}

// casFailure tells a stale revision apart from a missing document.
func (r *Repository) casFailure(ctx context.Context, q Querier, expectedRevision string) error {
	var exists bool
	if err := q.QueryRow(ctx, existsDocumentQuery, r.name).Scan(&exists); err != nil {
		return providerErr("check document", r.name, err)
	}

	if !exists {
		return &store.ProviderError{
			Op:      "write document",
			Status:  http.StatusNotFound,
			Message: fmt.Sprintf("document %q does not exist", r.name),
			Kind:    store.ErrResourceNotFound,
		}
	}

	return &store.ProviderError{
		Op:      "write document",
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("document %q does not match %s", r.name, expectedRevision),
		Kind:    store.ErrRevisionConflict,
	}
}

func providerErr(action, name string, err error) error {
	return fmt.Errorf("failed to %s %q: %w: %w", action, name, store.ErrProvider, err)
}

// wrapTxErr types begin and commit failures, errors from inside the transaction
// already carry their kind.
func wrapTxErr(name string, err error) error {
	var perr *store.ProviderError
	if err == nil || errors.Is(err, store.ErrProvider) || errors.As(err, &perr) {
		return err
	}

	return providerErr("write document", name, err)
}
