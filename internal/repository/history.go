package repository

import (
	"context"
	"fmt"
)

const saveCommitQuery = `
	INSERT INTO document_history (name, revision, message)
	VALUES ($1, $2, $3);`

// SaveCommit appends an accepted write to the document history.
func (r *Repository) SaveCommit(ctx context.Context, name, revision, message string) error {
	return saveCommit(ctx, r.db, name, revision, message)
}

func saveCommit(ctx context.Context, q Querier, name, revision, message string) error {
	if _, err := q.Exec(ctx, saveCommitQuery, name, revision, message); err != nil {
		return fmt.Errorf("failed to execute insert query: %w", err)
	}

	return nil
}
