package employees_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Houeta/ems-roster/internal/metrics"
	"github.com/Houeta/ems-roster/internal/models"
	"github.com/Houeta/ems-roster/internal/services/employees"
	"github.com/Houeta/ems-roster/internal/store"
	"github.com/Houeta/ems-roster/internal/store/memory"
	mocks "github.com/Houeta/ems-roster/mock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tamathecxder/randomail"
)

var fixedNow = time.Date(2025, 6, 1, 10, 30, 0, 123456789, time.UTC)

func newStaff(t *testing.T, docStore store.DocumentStore, opts ...employees.Option) (*employees.Staff, *metrics.Metrics) {
	t.Helper()

	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	opts = append([]employees.Option{employees.WithClock(func() time.Time { return fixedNow })}, opts...)

	return employees.NewStaff(slog.New(slog.DiscardHandler), docStore, appMetrics, opts...), appMetrics
}

func input(code string) models.EmployeeInput {
	return models.EmployeeInput{
		Name:       "Employee " + code,
		EmployeeID: code,
		Phone:      "+380961234567",
		Email:      randomail.GenerateRandomEmail(),
		Password:   "password",
	}
}

func TestScenario_CreateDuplicateDelete(t *testing.T) {
	t.Parallel()

	staff, _ := newStaff(t, memory.New())
	ctx := t.Context()

	first := input("EMS001")
	first.Email = "a@x.com"

	created, err := staff.Create(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.UnixMilli(), created.ID)
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), created.CreatedAt)
	assert.Nil(t, created.UpdatedAt)
	assert.Equal(t, "EMS001", created.EmployeeID)

	_, err = staff.Create(ctx, input("EMS001"))
	require.ErrorIs(t, err, employees.ErrDuplicateEmployeeCode)

	require.NoError(t, staff.Delete(ctx, created.ID))

	list, err := staff.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_DuplicateOnBothFieldsReportsCode(t *testing.T) {
	t.Parallel()

	staff, _ := newStaff(t, memory.New())

	original := input("EMS001")
	_, err := staff.Create(t.Context(), original)
	require.NoError(t, err)

	_, err = staff.Create(t.Context(), original)
	require.ErrorIs(t, err, employees.ErrDuplicateEmployeeCode)
	require.NotErrorIs(t, err, employees.ErrDuplicateEmail)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	t.Parallel()

	staff, _ := newStaff(t, memory.New())

	first := input("EMS001")
	_, err := staff.Create(t.Context(), first)
	require.NoError(t, err)

	second := input("EMS002")
	second.Email = first.Email

	_, err = staff.Create(t.Context(), second)
	var dupErr *employees.DuplicateError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, employees.FieldEmail, dupErr.Field)
}

func TestCreate_IDsAreUnique(t *testing.T) {
	t.Parallel()

	// the clock is frozen, so every id after the first one is bumped
	staff, _ := newStaff(t, memory.New())

	seen := make(map[int64]bool)
	for _, code := range []string{"EMS001", "EMS002", "EMS003"} {
		created, err := staff.Create(t.Context(), input(code))
		require.NoError(t, err)
		assert.False(t, seen[created.ID], "id %d reused", created.ID)
		seen[created.ID] = true
	}
}

func TestCreate_InvalidInputSkipsStore(t *testing.T) {
	t.Parallel()

	docStore := mocks.NewDocumentStore(t)
	staff, _ := newStaff(t, docStore)

	bad := input("XYZ001")

	_, err := staff.Create(t.Context(), bad)

	require.ErrorIs(t, err, employees.ErrInvalidInput)
	docStore.AssertNotCalled(t, "ReadDocument", mock.Anything)
}

func TestCreate_DuplicateIsNeverWritten(t *testing.T) {
	t.Parallel()

	docStore := mocks.NewDocumentStore(t)
	staff, _ := newStaff(t, docStore)

	existing := models.Employee{ID: 1, EmployeeID: "EMS001", Email: "taken@example.com"}
	docStore.On("ReadDocument", mock.Anything).
		Return(store.Document{Records: []models.Employee{existing}, Revision: "rev1"}, nil).Once()

	_, err := staff.Create(t.Context(), input("EMS001"))

	require.ErrorIs(t, err, employees.ErrDuplicateEmployeeCode)
	docStore.AssertNotCalled(t, "WriteDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_SelfExclusion(t *testing.T) {
	t.Parallel()

	staff, _ := newStaff(t, memory.New())

	created, err := staff.Create(t.Context(), input("EMS001"))
	require.NoError(t, err)

	updated, err := staff.Update(t.Context(), created.ID, models.EmployeePatch{
		Name:       "Renamed",
		EmployeeID: created.EmployeeID,
		Email:      created.Email,
	})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, created.Phone, updated.Phone, "empty patch fields keep stored values")
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), *updated.UpdatedAt)

	stored, err := staff.Get(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestUpdate_CollisionWithOtherRecord(t *testing.T) {
	t.Parallel()

	staff, _ := newStaff(t, memory.New())

	first, err := staff.Create(t.Context(), input("EMS001"))
	require.NoError(t, err)
	second, err := staff.Create(t.Context(), input("EMS002"))
	require.NoError(t, err)

	_, err = staff.Update(t.Context(), second.ID, models.EmployeePatch{Email: first.Email})
	require.ErrorIs(t, err, employees.ErrDuplicateEmail)

	_, err = staff.Update(t.Context(), second.ID, models.EmployeePatch{EmployeeID: first.EmployeeID})
	require.ErrorIs(t, err, employees.ErrDuplicateEmployeeCode)
}

func TestNotFound_NoWrite(t *testing.T) {
	t.Parallel()

	docStore := mocks.NewDocumentStore(t)
	staff, _ := newStaff(t, docStore)

	docStore.On("ReadDocument", mock.Anything).
		Return(store.Document{Records: []models.Employee{{ID: 1, EmployeeID: "EMS001"}}, Revision: "rev1"}, nil)

	_, err := staff.Update(t.Context(), 42, models.EmployeePatch{Name: "Ghost"})
	require.ErrorIs(t, err, employees.ErrNotFound)

	err = staff.Delete(t.Context(), 42)
	require.ErrorIs(t, err, employees.ErrNotFound)

	_, err = staff.Get(t.Context(), 42)
	require.ErrorIs(t, err, employees.ErrNotFound)

	docStore.AssertNotCalled(t, "WriteDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestList_Idempotent(t *testing.T) {
	t.Parallel()

	staff, _ := newStaff(t, memory.New())
	_, err := staff.Create(t.Context(), input("EMS001"))
	require.NoError(t, err)

	first, err := staff.List(t.Context())
	require.NoError(t, err)
	second, err := staff.List(t.Context())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestList_PropagatesStoreError(t *testing.T) {
	t.Parallel()

	docStore := mocks.NewDocumentStore(t)
	staff, appMetrics := newStaff(t, docStore)

	docStore.On("ReadDocument", mock.Anything).Return(store.Document{}, store.ErrTransport).Once()

	list, err := staff.List(t.Context())

	require.ErrorIs(t, err, store.ErrTransport)
	assert.Nil(t, list)
	assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.EmployeeOperations.WithLabelValues("list", "error")), 0)
}

func TestList_ConcurrentCallersGetCopies(t *testing.T) {
	t.Parallel()

	staff, _ := newStaff(t, memory.New())
	_, err := staff.Create(t.Context(), input("EMS001"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, listErr := staff.List(t.Context())
			assert.NoError(t, listErr)
			if assert.Len(t, list, 1) {
				list[0].Name = "mutated by caller"
			}
		}()
	}
	wg.Wait()

	list, err := staff.List(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Employee EMS001", list[0].Name)
}

func TestMutate_RetriesOnRevisionConflict(t *testing.T) {
	t.Parallel()

	docStore := mocks.NewDocumentStore(t)
	staff, appMetrics := newStaff(t, docStore, employees.WithConflictRetries(1))

	conflict := &store.ProviderError{Op: "write document", Status: 409, Kind: store.ErrRevisionConflict}
	racer := models.Employee{ID: 5, EmployeeID: "EMS005", Email: "racer@example.com"}

	docStore.On("ReadDocument", mock.Anything).
		Return(store.Document{Records: []models.Employee{}, Revision: "rev1"}, nil).Once()
	docStore.On("WriteDocument", mock.Anything, mock.Anything, "rev1", store.MsgAdd).
		Return("", conflict).Once()
	docStore.On("ReadDocument", mock.Anything).
		Return(store.Document{Records: []models.Employee{racer}, Revision: "rev2"}, nil).Once()
	docStore.On("WriteDocument", mock.Anything,
		mock.MatchedBy(func(records []models.Employee) bool {
			return len(records) == 2 && records[0].ID == racer.ID && records[1].EmployeeID == "EMS006"
		}), "rev2", store.MsgAdd).
		Return("rev3", nil).Once()

	created, err := staff.Create(t.Context(), input("EMS006"))

	require.NoError(t, err)
	assert.Equal(t, "EMS006", created.EmployeeID)
	assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.RevisionConflicts), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.ConflictRetries), 0)
}

func TestMutate_RetryRevalidates(t *testing.T) {
	t.Parallel()

	docStore := mocks.NewDocumentStore(t)
	staff, _ := newStaff(t, docStore)

	conflict := &store.ProviderError{Op: "write document", Status: 409, Kind: store.ErrRevisionConflict}
	racer := models.Employee{ID: 5, EmployeeID: "EMS006", Email: "racer@example.com"}

	docStore.On("ReadDocument", mock.Anything).
		Return(store.Document{Records: []models.Employee{}, Revision: "rev1"}, nil).Once()
	docStore.On("WriteDocument", mock.Anything, mock.Anything, "rev1", store.MsgAdd).
		Return("", conflict).Once()
	// the concurrent writer took the same employee code
	docStore.On("ReadDocument", mock.Anything).
		Return(store.Document{Records: []models.Employee{racer}, Revision: "rev2"}, nil).Once()

	_, err := staff.Create(t.Context(), input("EMS006"))

	require.ErrorIs(t, err, employees.ErrDuplicateEmployeeCode)
}

func TestMutate_ConflictWithoutRetries(t *testing.T) {
	t.Parallel()

	docStore := mocks.NewDocumentStore(t)
	staff, _ := newStaff(t, docStore, employees.WithConflictRetries(0))

	conflict := &store.ProviderError{Op: "write document", Status: 409, Kind: store.ErrRevisionConflict}

	docStore.On("ReadDocument", mock.Anything).
		Return(store.Document{Records: []models.Employee{{ID: 1, EmployeeID: "EMS001"}}, Revision: "rev1"}, nil).Once()
	docStore.On("WriteDocument", mock.Anything, mock.Anything, "rev1", store.MsgDelete).
		Return("", conflict).Once()

	err := staff.Delete(t.Context(), 1)

	require.ErrorIs(t, err, store.ErrRevisionConflict)
}

func TestMutate_StoreErrorsPropagate(t *testing.T) {
	t.Parallel()

	docStore := mocks.NewDocumentStore(t)
	staff, _ := newStaff(t, docStore)

	denied := &store.ProviderError{Op: "write document", Status: 403, Kind: store.ErrPermissionDenied}

	docStore.On("ReadDocument", mock.Anything).
		Return(store.Document{Records: []models.Employee{}, Revision: "rev1"}, nil).Once()
	docStore.On("WriteDocument", mock.Anything, mock.Anything, "rev1", store.MsgAdd).
		Return("", denied).Once()

	_, err := staff.Create(t.Context(), input("EMS001"))

	require.ErrorIs(t, err, store.ErrPermissionDenied)
	var perr *store.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 403, perr.Status)
}

func TestConflictAgainstRealStore(t *testing.T) {
	t.Parallel()

	mem := memory.New()
	staff, _ := newStaff(t, mem)

	created, err := staff.Create(t.Context(), input("EMS001"))
	require.NoError(t, err)

	stale, err := mem.ReadDocument(t.Context())
	require.NoError(t, err)

	_, err = staff.Update(t.Context(), created.ID, models.EmployeePatch{Name: "Changed"})
	require.NoError(t, err)

	_, err = mem.WriteDocument(t.Context(), nil, stale.Revision, store.MsgDelete)
	require.ErrorIs(t, err, store.ErrRevisionConflict)

	list, err := staff.List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Changed", list[0].Name)
}

// gatedStore blocks every read until release is closed.
type gatedStore struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	records []models.Employee
}

func newGatedStore(records []models.Employee) *gatedStore {
	return &gatedStore{entered: make(chan struct{}), release: make(chan struct{}), records: records}
}

func (g *gatedStore) ReadDocument(ctx context.Context) (store.Document, error) {
	g.once.Do(func() { close(g.entered) })

	select {
	case <-g.release:
	case <-ctx.Done():
		return store.Document{}, fmt.Errorf("%w: %w", store.ErrTransport, ctx.Err())
	}
	if err := ctx.Err(); err != nil {
		return store.Document{}, fmt.Errorf("%w: %w", store.ErrTransport, err)
	}

	return store.Document{Records: slices.Clone(g.records), Revision: "rev1"}, nil
}

func (g *gatedStore) WriteDocument(context.Context, []models.Employee, string, string) (string, error) {
	return "", errors.New("read only")
}

func TestList_CanceledCallerDoesNotFailOthers(t *testing.T) {
	t.Parallel()

	gated := newGatedStore([]models.Employee{{ID: 1, EmployeeID: "EMS001", Email: "a@x.com"}})
	staff, _ := newStaff(t, gated)

	ctxA, cancelA := context.WithCancel(t.Context())
	errA := make(chan error, 1)
	go func() {
		_, err := staff.List(ctxA)
		errA <- err
	}()
	<-gated.entered

	type listResult struct {
		records []models.Employee
		err     error
	}
	resB := make(chan listResult, 1)
	go func() {
		records, err := staff.List(t.Context())
		resB <- listResult{records: records, err: err}
	}()
	// let the second caller join the in-flight read
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, store.ErrTransport)
	case <-time.After(5 * time.Second):
		t.Fatal("canceled caller kept waiting for the shared read")
	}

	close(gated.release)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		require.Len(t, res.records, 1)
		assert.Equal(t, "EMS001", res.records[0].EmployeeID)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never got the roster")
	}
}

func TestGet_CanceledCaller(t *testing.T) {
	t.Parallel()

	gated := newGatedStore(nil)
	staff, _ := newStaff(t, gated)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := staff.Get(ctx, 1)

	require.ErrorIs(t, err, context.Canceled)
	close(gated.release)
}
