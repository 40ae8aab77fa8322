package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artificien/orchestrator/internal/model"
)

type retrieveCall struct {
	owner, modelID, version, nodeURL string
}

type fakeRetriever struct {
	mu    sync.Mutex
	calls []retrieveCall
	link  string
	err   error
}

func (f *fakeRetriever) Retrieve(_ context.Context, owner, modelID, version, nodeURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, retrieveCall{owner, modelID, version, nodeURL})
	return f.link, f.err
}

func (f *fakeRetriever) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestReportProgressPersists(t *testing.T) {
	store := newFakeModelStore(&model.Model{ModelID: "mnist-v1"})
	ret := &fakeRetriever{}
	rec := NewReconciler(store, ret, nil, 0)

	require.NoError(t, rec.ReportProgress(context.Background(), "mnist-v1", 42))
	assert.Equal(t, 42, store.get("mnist-v1").PercentComplete)
	assert.Zero(t, ret.callCount(), "retrieval must wait for completion")
}

func TestReportProgressNormalizesModelID(t *testing.T) {
	store := newFakeModelStore(&model.Model{ModelID: "mnist-v1"})
	rec := NewReconciler(store, nil, nil, 0)

	require.NoError(t, rec.ReportProgress(context.Background(), " MNIST-V1 ", 10))
	assert.Equal(t, 10, store.get("mnist-v1").PercentComplete)
}

func TestReportProgressOutOfRange(t *testing.T) {
	store := newFakeModelStore(&model.Model{ModelID: "mnist-v1", PercentComplete: 5})
	rec := NewReconciler(store, nil, nil, 0)

	require.ErrorIs(t, rec.ReportProgress(context.Background(), "mnist-v1", -1), ErrInvalidProgress)
	require.ErrorIs(t, rec.ReportProgress(context.Background(), "mnist-v1", 101), ErrInvalidProgress)
	assert.Equal(t, 5, store.get("mnist-v1").PercentComplete, "invalid input must not mutate the record")
}

func TestReportProgressUnknownModel(t *testing.T) {
	rec := NewReconciler(newFakeModelStore(), nil, nil, 0)

	require.ErrorIs(t, rec.ReportProgress(context.Background(), "no-such-model", 50), ErrModelNotFound)
}

func TestReportProgressCompletionTriggersRetrieval(t *testing.T) {
	store := newFakeModelStore(&model.Model{
		ModelID: "mnist-v1",
		Owner:   "alice",
		Version: "1.0",
		HasNode: true,
		NodeURL: "lb.internal:5000",
	})
	ret := &fakeRetriever{link: "https://bucket/alice/mnist-v1/1.0"}
	events := &fakeEvents{}
	rec := NewReconciler(store, ret, events, 0)

	require.NoError(t, rec.ReportProgress(context.Background(), "mnist-v1", 100))
	assert.Equal(t, 100, store.get("mnist-v1").PercentComplete)
	require.Equal(t, 1, ret.callCount())
	assert.Equal(t, retrieveCall{"alice", "mnist-v1", "1.0", "lb.internal:5000"}, ret.calls[0])
	assert.Equal(t, []string{"completed"}, events.kinds())
}

func TestReportProgressRetrievalFailureStillSucceeds(t *testing.T) {
	store := newFakeModelStore(&model.Model{ModelID: "mnist-v1", HasNode: true, NodeURL: "lb:5000"})
	ret := &fakeRetriever{err: errors.New("node unreachable")}
	events := &fakeEvents{}
	rec := NewReconciler(store, ret, events, 0)

	require.NoError(t, rec.ReportProgress(context.Background(), "mnist-v1", 100))
	assert.Equal(t, 100, store.get("mnist-v1").PercentComplete, "progress stands even when retrieval fails")
	assert.Empty(t, events.kinds())
}

func TestReportProgressCompletionWithoutNodeURL(t *testing.T) {
	store := newFakeModelStore(&model.Model{ModelID: "mnist-v1", HasNode: true})
	ret := &fakeRetriever{}
	rec := NewReconciler(store, ret, nil, 0)

	require.NoError(t, rec.ReportProgress(context.Background(), "mnist-v1", 100))
	assert.Zero(t, ret.callCount(), "no node url means nothing to retrieve from")
}

func TestReportProgressCompletionWithoutRetriever(t *testing.T) {
	store := newFakeModelStore(&model.Model{ModelID: "mnist-v1", HasNode: true, NodeURL: "lb:5000"})
	rec := NewReconciler(store, nil, nil, 0)

	require.NoError(t, rec.ReportProgress(context.Background(), "mnist-v1", 100))
	assert.Equal(t, 100, store.get("mnist-v1").PercentComplete)
}

func TestNewReconcilerPanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() { NewReconciler(nil, nil, nil, 0) })
}
