package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/surveystats/internal/data"
	domainjob "github.com/target/surveystats/internal/domain/job"
	"github.com/target/surveystats/internal/domain/model"
	apperrors "github.com/target/surveystats/internal/errors"
	"github.com/target/surveystats/internal/mocks"
)

const testQuestion = "Percent of adults aged 18 years and older who have obesity"

type stubPool struct {
	done chan struct{}
}

func (p *stubPool) Done() <-chan struct{} { return p.done }

type serviceFixture struct {
	svc      *JobService
	queue    *domainjob.Queue
	registry *domainjob.Registry
	signal   *domainjob.Signal
	results  *data.MemoryResultStore
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		queue:    domainjob.NewQueue(),
		registry: domainjob.NewRegistry(),
		signal:   domainjob.NewSignal(),
		results:  data.NewMemoryResultStore(),
	}
	f.svc = MustNewJobService(JobServiceOptions{
		State:   JobStateDeps{Queue: f.queue, Registry: f.registry, Shutdown: f.signal},
		Results: f.results,
	})
	return f
}

func TestNewJobService_RequiresDependencies(t *testing.T) {
	_, err := NewJobService(JobServiceOptions{})
	require.Error(t, err)

	assert.Panics(t, func() {
		MustNewJobService(JobServiceOptions{})
	})
}

func TestJobService_SubmitAssignsIncreasingIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		id, err := f.svc.Submit(ctx, model.JobKindGlobalMean, model.JobParams{Question: testQuestion})
		require.NoError(t, err)
		assert.Equal(t, want, id)

		status, err := f.registry.GetStatus(id)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusRunning, status)
	}
	assert.Equal(t, 3, f.svc.PendingCount())

	j, err := f.queue.Dequeue(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), j.ID)
	assert.Equal(t, model.JobKindGlobalMean, j.Kind)
	assert.Equal(t, testQuestion, j.Params.Question)
}

func TestJobService_SubmitTrimsParams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, model.JobKindStateMean, model.JobParams{Question: " " + testQuestion + "\t", State: " Ohio "})
	require.NoError(t, err)

	j, err := f.queue.Dequeue(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, testQuestion, j.Params.Question)
	assert.Equal(t, "Ohio", j.Params.State)
}

func TestJobService_SubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		kind   model.JobKind
		params model.JobParams
		field  string
	}{
		{name: "unknown kind", kind: "median", params: model.JobParams{Question: testQuestion}},
		{name: "missing question", kind: model.JobKindBest5, params: model.JobParams{Question: "  "}, field: "question"},
		{name: "missing state", kind: model.JobKindStateMean, params: model.JobParams{Question: testQuestion}, field: "state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, tt.kind, tt.params)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
	assert.Equal(t, 0, f.svc.PendingCount())
}

func TestJobService_ConcurrentSubmitsGetDistinctIDs(t *testing.T) {
	const submitters, perSubmitter = 8, 25
	f := newFixture(t)

	var (
		mu  sync.Mutex
		ids = make(map[int64]struct{})
		wg  sync.WaitGroup
	)
	for range submitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perSubmitter {
				id, err := f.svc.Submit(context.Background(), model.JobKindStatesMean, model.JobParams{Question: testQuestion})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	total := submitters * perSubmitter
	require.Len(t, ids, total)
	for id := int64(1); id <= int64(total); id++ {
		assert.Contains(t, ids, id)
	}
	list := f.svc.ListJobs()
	require.Len(t, list, total)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, int64(total), list[total-1].ID)
}

func TestJobService_IDsContinueAfterLastJobID(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := data.NewFileResultStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, 1, []byte(`{"Texas":99}`)))

	last, err := store.LastJobID(ctx)
	require.NoError(t, err)

	registry := domainjob.NewRegistry()
	svc := MustNewJobService(JobServiceOptions{
		State:     JobStateDeps{Queue: domainjob.NewQueue(), Registry: registry, Shutdown: domainjob.NewSignal()},
		Results:   store,
		LastJobID: last,
	})

	id, err := svc.Submit(ctx, model.JobKindStateMean, model.JobParams{Question: testQuestion, State: "Nevada"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	// The job produced nothing; the earlier artifact must not surface under its id.
	registry.SetStatus(id, model.JobStatusDone)
	view, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, view.Status)
	assert.Nil(t, view.Artifact)

	_, err = svc.Get(ctx, 1)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestNewJobService_RejectsNegativeLastJobID(t *testing.T) {
	_, err := NewJobService(JobServiceOptions{
		State:     JobStateDeps{Queue: domainjob.NewQueue(), Registry: domainjob.NewRegistry(), Shutdown: domainjob.NewSignal()},
		Results:   data.NewMemoryResultStore(),
		LastJobID: -1,
	})
	require.Error(t, err)
}

type healthyStore struct {
	*data.MemoryResultStore
	err error
}

func (s healthyStore) Health(context.Context) error { return s.err }

func TestJobService_Health(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Health(context.Background()))

	down := errors.New("redis ping: connection refused")
	svc := MustNewJobService(JobServiceOptions{
		State:   JobStateDeps{Queue: f.queue, Registry: f.registry, Shutdown: f.signal},
		Results: healthyStore{MemoryResultStore: data.NewMemoryResultStore(), err: down},
	})
	require.ErrorIs(t, svc.Health(context.Background()), down)
}

func TestJobService_Get(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, 42)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	id, err := f.svc.Submit(ctx, model.JobKindStateMean, model.JobParams{Question: testQuestion, State: "Ohio"})
	require.NoError(t, err)

	view, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, view.Status)
	assert.Nil(t, view.Artifact)

	require.NoError(t, f.results.Write(ctx, id, []byte(`{"Ohio":12.5}`)))
	f.registry.SetStatus(id, model.JobStatusDone)

	view, err = f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, view.Status)
	assert.JSONEq(t, `{"Ohio":12.5}`, string(view.Artifact))
}

func TestJobService_GetDoneWithoutArtifact(t *testing.T) {
	f := newFixture(t)
	f.registry.SetStatus(5, model.JobStatusDone)

	view, err := f.svc.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, view.Status)
	assert.Nil(t, view.Artifact)
}

func TestJobService_GetStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockJobRegistry(ctrl)
	store := mocks.NewMockResultStore(ctrl)

	svc := MustNewJobService(JobServiceOptions{
		State: JobStateDeps{
			Queue:    domainjob.NewQueue(),
			Registry: registry,
			Shutdown: domainjob.NewSignal(),
		},
		Results: store,
	})

	registry.EXPECT().GetStatus(int64(9)).Return(model.JobStatusDone, nil)
	store.EXPECT().Read(gomock.Any(), int64(9)).Return(nil, errors.New("connection reset"))

	_, err := svc.Get(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
}

func TestJobService_SubmitAfterShutdownIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drained, err := f.svc.Shutdown(ctx)
	require.NoError(t, err)
	assert.True(t, drained)
	assert.True(t, f.svc.IsShuttingDown())
	assert.True(t, f.signal.Triggered())

	_, err = f.svc.Submit(ctx, model.JobKindGlobalMean, model.JobParams{Question: testQuestion})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestJobService_ShutdownWaitsForWorkers(t *testing.T) {
	f := newFixture(t)
	pool := &stubPool{done: make(chan struct{})}
	f.svc.AttachWorkers(pool)

	returned := make(chan bool, 1)
	go func() {
		drained, err := f.svc.Shutdown(context.Background())
		if err == nil {
			returned <- drained
		}
	}()

	select {
	case <-returned:
		t.Fatal("Shutdown returned before the worker pool exited")
	case <-time.After(30 * time.Millisecond):
	}

	close(pool.done)
	select {
	case drained := <-returned:
		assert.True(t, drained)
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return after workers exited")
	}
}

func TestJobService_ShutdownReportsUndrainedQueue(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), model.JobKindGlobalMean, model.JobParams{Question: testQuestion})
	require.NoError(t, err)

	pool := &stubPool{done: make(chan struct{})}
	close(pool.done)
	f.svc.AttachWorkers(pool)

	drained, err := f.svc.Shutdown(context.Background())
	require.NoError(t, err)
	assert.False(t, drained)
}

func TestJobService_ShutdownHonorsContext(t *testing.T) {
	f := newFixture(t)
	f.svc.AttachWorkers(&stubPool{done: make(chan struct{})})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.svc.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, f.svc.IsShuttingDown())
}
