// Package employees is the roster facade: every operation is one read-modify-write
// cycle against a store.DocumentStore, with business rules checked before the write.
package employees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Houeta/ems-roster/internal/lib/logger/sl"
	"github.com/Houeta/ems-roster/internal/metrics"
	"github.com/Houeta/ems-roster/internal/models"
	"github.com/Houeta/ems-roster/internal/store"
)

const (
	opList   = "list"
	opGet    = "get"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"

	// DefaultConflictRetries is how many times a cycle is restarted after losing a race.
	DefaultConflictRetries = 2

	sharedReadTimeout = 30 * time.Second
)

// Staff implements the roster operations used by the API.
type Staff struct {
	log     *slog.Logger
	store   store.DocumentStore
	metrics *metrics.Metrics
	retries int
	now     func() time.Time
	group   singleflight.Group
}

// Option configures a Staff.
type Option func(*Staff)

// WithConflictRetries sets how many times a mutation is re-read, re-validated and
// re-applied after a revision conflict. Zero returns the first conflict to the caller.
func WithConflictRetries(retries int) Option {
	return func(s *Staff) {
		s.retries = max(retries, 0)
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Staff) {
		s.now = now
	}
}

func NewStaff(log *slog.Logger, docStore store.DocumentStore, appMetrics *metrics.Metrics, opts ...Option) *Staff {
	staff := &Staff{
		log:     log,
		store:   docStore,
		metrics: appMetrics,
		retries: DefaultConflictRetries,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(staff)
	}

	return staff
}

func (s *Staff) initLogger(opn string) *slog.Logger {
	return s.log.With(
		slog.String("op", opn),
		slog.String("division", "employee"),
	)
}

// List returns the current roster. Fetch failures are returned, never masked as an
// empty roster. Concurrent calls share one read.
func (s *Staff) List(ctx context.Context) ([]models.Employee, error) {
	const opn = "Staff.List"
	log := s.initLogger(opn)

	records, err := s.list(ctx)
	s.observe(opList, err)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list employees", sl.Err(err))
		return nil, err
	}

	return records, nil
}

// Get returns the employee with the given id.
func (s *Staff) Get(ctx context.Context, id int64) (models.Employee, error) {
	records, err := s.list(ctx)
	if err != nil {
		s.observe(opGet, err)
		return models.Employee{}, err
	}

	idx := slices.IndexFunc(records, func(emp models.Employee) bool { return emp.ID == id })
	if idx < 0 {
		err = fmt.Errorf("%w: id %d", ErrNotFound, id)
		s.observe(opGet, err)
		return models.Employee{}, err
	}

	s.observe(opGet, nil)

	return records[idx], nil
}

// Create validates input, checks uniqueness against the current roster, assigns an id
// and creation time and appends the record.
func (s *Staff) Create(ctx context.Context, input models.EmployeeInput) (models.Employee, error) {
	const opn = "Staff.Create"
	log := s.initLogger(opn)

	input = normalizeInput(input)
	if err := ValidateInput(input); err != nil {
		s.observe(opCreate, err)
		return models.Employee{}, err
	}

	var created models.Employee
	err := s.mutate(ctx, log, store.MsgAdd, func(records []models.Employee) ([]models.Employee, error) {
		candidate := models.Employee{
			Name:       input.Name,
			EmployeeID: input.EmployeeID,
			Phone:      input.Phone,
			Email:      input.Email,
			Password:   input.Password,
		}
		if err := CheckUnique(records, candidate, 0); err != nil {
			return nil, err
		}

		now := s.timestamp()
		candidate.ID = nextID(records, now)
		candidate.CreatedAt = now
		created = candidate

		return append(records, candidate), nil
	})
	s.observe(opCreate, err)
	if err != nil {
		return models.Employee{}, err
	}

	log.InfoContext(ctx, "Employee created", "id", created.ID, "employee_id", created.EmployeeID)

	return created, nil
}

// Update merges patch over the stored record, checks uniqueness excluding the record
// itself and stamps the update time.
func (s *Staff) Update(ctx context.Context, id int64, patch models.EmployeePatch) (models.Employee, error) {
	const opn = "Staff.Update"
	log := s.initLogger(opn)

	patch = normalizePatch(patch)
	if err := ValidatePatch(patch); err != nil {
		s.observe(opUpdate, err)
		return models.Employee{}, err
	}

	var updated models.Employee
	err := s.mutate(ctx, log, store.MsgUpdate, func(records []models.Employee) ([]models.Employee, error) {
		idx := slices.IndexFunc(records, func(emp models.Employee) bool { return emp.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}

		merged := merge(records[idx], patch)
		if err := CheckUnique(records, merged, id); err != nil {
			return nil, err
		}

		stamp := s.timestamp()
		merged.UpdatedAt = &stamp
		records[idx] = merged
		updated = merged

		return records, nil
	})
	s.observe(opUpdate, err)
	if err != nil {
		return models.Employee{}, err
	}

	log.InfoContext(ctx, "Employee updated", "id", id)

	return updated, nil
}

// Delete removes the employee with the given id.
func (s *Staff) Delete(ctx context.Context, id int64) error {
	const opn = "Staff.Delete"
	log := s.initLogger(opn)

	err := s.mutate(ctx, log, store.MsgDelete, func(records []models.Employee) ([]models.Employee, error) {
		idx := slices.IndexFunc(records, func(emp models.Employee) bool { return emp.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}

		return slices.Delete(records, idx, idx+1), nil
	})
	s.observe(opDelete, err)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "Employee deleted", "id", id)

	return nil
}

// list reads the roster once for all concurrent callers. The shared read is detached
// from any single caller's cancellation and bounded by sharedReadTimeout; each caller
// still stops waiting when its own ctx is done.
func (s *Staff) list(ctx context.Context) ([]models.Employee, error) {
	result := s.group.DoChan(opList, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()

		doc, err := s.store.ReadDocument(readCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to read roster: %w", err)
		}
		s.metrics.RosterSize.Set(float64(len(doc.Records)))

		return doc.Records, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to read roster: %w: %w", store.ErrTransport, ctx.Err())
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		// every caller gets its own copy of the shared snapshot
		return slices.Clone(res.Val.([]models.Employee)), nil
	}
}

// mutate runs one read-modify-write cycle. apply receives a private copy of the
// snapshot; an error from apply aborts the cycle before anything is written.
// A revision conflict restarts the whole cycle up to s.retries times.
func (s *Staff) mutate(
	ctx context.Context,
	log *slog.Logger,
	message string,
	apply func(records []models.Employee) ([]models.Employee, error),
) error {
	for attempt := 0; ; attempt++ {
		doc, err := s.store.ReadDocument(ctx)
		if err != nil {
			return fmt.Errorf("failed to read roster: %w", err)
		}
		s.metrics.RosterSize.Set(float64(len(doc.Records)))

		records, err := apply(slices.Clone(doc.Records))
		if err != nil {
			return err
		}

		_, err = s.store.WriteDocument(ctx, records, doc.Revision, message)
		if err == nil {
			s.metrics.RosterSize.Set(float64(len(records)))
			return nil
		}
		if !errors.Is(err, store.ErrRevisionConflict) {
			return fmt.Errorf("failed to write roster: %w", err)
		}

		s.metrics.RevisionConflicts.Inc()
		if attempt >= s.retries {
			return fmt.Errorf("failed to write roster after %d attempt(s): %w", attempt+1, err)
		}

		s.metrics.ConflictRetries.Inc()
		log.WarnContext(ctx, "Roster changed concurrently, retrying",
			"attempt", attempt+1, "of", s.retries+1, "revision", doc.Revision, sl.Err(err))
	}
}

func (s *Staff) observe(opn string, err error) {
	s.metrics.EmployeeOperations.WithLabelValues(opn, resultLabel(err)).Inc()
}

// timestamp is the current time at the millisecond precision of ISO8601 strings
// written by other clients of the document.
func (s *Staff) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateEmployeeCode), errors.Is(err, ErrDuplicateEmail):
		return "duplicate"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, store.ErrRevisionConflict):
		return "conflict"
	default:
		return "error"
	}
}

// nextID derives the id from the creation time, bumped past every existing id so
// that ids stay unique and are never reused.
func nextID(records []models.Employee, now time.Time) int64 {
	id := now.UnixMilli()
	for _, emp := range records {
		if emp.ID >= id {
			id = emp.ID + 1
		}
	}

	return id
}

func merge(existing models.Employee, patch models.EmployeePatch) models.Employee {
	if patch.Name != "" {
		existing.Name = patch.Name
	}
	if patch.EmployeeID != "" {
		existing.EmployeeID = patch.EmployeeID
	}
	if patch.Phone != "" {
		existing.Phone = patch.Phone
	}
	if patch.Email != "" {
		existing.Email = patch.Email
	}
	if patch.Password != "" {
		existing.Password = patch.Password
	}

	return existing
}

func normalizeInput(input models.EmployeeInput) models.EmployeeInput {
	input.Name = strings.TrimSpace(input.Name)
	input.EmployeeID = strings.TrimSpace(input.EmployeeID)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.TrimSpace(input.Email)

	return input
}

func normalizePatch(patch models.EmployeePatch) models.EmployeePatch {
	patch.Name = strings.TrimSpace(patch.Name)
	patch.EmployeeID = strings.TrimSpace(patch.EmployeeID)
	patch.Phone = strings.TrimSpace(patch.Phone)
	patch.Email = strings.TrimSpace(patch.Email)

	return patch
}
