package orchestrator

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/artificien/orchestrator/internal/repository"
)

// Retriever fetches a trained artifact from a node and persists it to
// durable storage, returning the storage location. Implementations must
// be idempotent: retrieving the same (owner, model, version) twice
// writes the same location.
type Retriever interface {
	Retrieve(ctx context.Context, owner, modelID, version, nodeURL string) (string, error)
}

// Reconciler applies training progress callbacks to model records and
// kicks off artifact retrieval when a training job reports completion.
type Reconciler struct {
	models    ModelStore
	retriever Retriever
	events    EventPublisher
	timeout   time.Duration
	syslog    *logrus.Entry
}

// NewReconciler constructs a Reconciler. retriever may be nil, in which
// case completed models are recorded but artifacts are left for an
// operator to collect. events may be nil.
func NewReconciler(models ModelStore, retriever Retriever, events EventPublisher, callTimeout time.Duration) *Reconciler {
	if models == nil {
		panic("nil model store passed to NewReconciler")
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Reconciler{
		models:    models,
		retriever: retriever,
		events:    events,
		timeout:   callTimeout,
		syslog:    logrus.WithField("component", "reconciler"),
	}
}

// ReportProgress persists a model's completion percentage and, at 100,
// triggers artifact retrieval. A retrieval failure does not roll back
// the progress update and does not fail the caller: the training system
// already finished its job, and an operator can retry retrieval.
func (r *Reconciler) ReportProgress(ctx context.Context, modelID string, percent int) error {
	modelID = NormalizeModelID(modelID)
	if percent < 0 || percent > 100 {
		return errors.Wrapf(ErrInvalidProgress, "got %d", percent)
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	m, err := r.models.GetModel(cctx, modelID)
	if err != nil {
		return mapStoreErr(err, modelID)
	}

	sctx, scancel := context.WithTimeout(ctx, r.timeout)
	defer scancel()
	if err := r.models.SetProgress(sctx, modelID, percent); err != nil {
		return mapStoreErr(err, modelID)
	}
	r.syslog.WithFields(logrus.Fields{"model_id": modelID, "percent_complete": percent}).Info("progress updated")

	if percent < 100 {
		return nil
	}

	if r.retriever == nil {
		r.syslog.WithField("model_id", modelID).Warn("model complete but no retriever configured")
		return nil
	}
	if m.NodeURL == "" {
		r.syslog.WithField("model_id", modelID).Error("model complete but record has no node url, retrieval skipped")
		return nil
	}
	link, err := r.retriever.Retrieve(ctx, m.Owner, m.ModelID, m.Version, m.NodeURL)
	if err != nil {
		// Progress stands; retrieval must be retried by an operator.
		r.syslog.WithField("model_id", modelID).WithError(err).Error("artifact retrieval failed")
		return nil
	}
	if r.events != nil {
		r.events.ModelCompleted(ctx, modelID, link)
	}
	r.syslog.WithFields(logrus.Fields{"model_id": modelID, "download_link": link}).Info("model completed")
	return nil
}

// mapStoreErr converts repository sentinels into orchestration error
// kinds. Anything that is not a recognised permanent error counts as a
// transient store failure.
func mapStoreErr(err error, modelID string) error {
	if errors.Is(err, repository.ErrModelNotFound) {
		return errors.Wrapf(ErrModelNotFound, "%q", modelID)
	}
	return errors.Wrapf(ErrStoreUnavailable, "model %q: %v", modelID, err)
}
