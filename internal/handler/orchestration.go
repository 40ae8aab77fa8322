package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/artificien/orchestrator/internal/model"
	"github.com/artificien/orchestrator/internal/orchestrator"
	"github.com/artificien/orchestrator/internal/repository"
)

// Response strings for node requests. Callers poll /create until they
// see "ready", so these values are part of the API contract.
const (
	statusReady     = "ready"
	statusDeploying = "deploying"
	statusSubmitted = "node is starting to deploy. This may take a few minutes"
)

// ModelLister is the read surface behind GET /models.
type ModelLister interface {
	ListByOwner(ctx context.Context, owner string) ([]model.Model, error)
}

// DatasetGetter is the read surface behind GET /datasets/:id.
type DatasetGetter interface {
	GetDataset(ctx context.Context, datasetID string) (*model.Dataset, error)
}

// OrchestrationHandler exposes the node lifecycle operations over HTTP.
// All decisions live in the orchestrator and reconciler; the handler
// only binds requests and translates error kinds into status codes.
type OrchestrationHandler struct {
	Orchestrator *orchestrator.Orchestrator
	Reconciler   *orchestrator.Reconciler
	Models       ModelLister
	Datasets     DatasetGetter
}

// NewOrchestrationHandler constructs an OrchestrationHandler. All
// dependencies must be non-nil.
func NewOrchestrationHandler(o *orchestrator.Orchestrator, r *orchestrator.Reconciler, models ModelLister, datasets DatasetGetter) *OrchestrationHandler {
	if o == nil || r == nil || models == nil || datasets == nil {
		panic("nil dependency passed to NewOrchestrationHandler")
	}
	return &OrchestrationHandler{Orchestrator: o, Reconciler: r, Models: models, Datasets: datasets}
}

// CreateNode handles POST /create. The body carries the model ID; the
// response tells the caller whether the model's node is ready, still
// deploying, or was just submitted. Callers are expected to re-POST
// until they see "ready"; the service runs no background polling on
// their behalf.
func (h *OrchestrationHandler) CreateNode(c echo.Context) error {
	var body struct {
		ModelID string `json:"model_id"`
	}
	if err := c.Bind(&body); err != nil || body.ModelID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "model_id is required"})
	}

	status, err := h.Orchestrator.Request(c.Request().Context(), body.ModelID)
	if err != nil {
		return orchestrationError(c, err)
	}
	switch status {
	case orchestrator.StatusReady:
		return c.JSON(http.StatusOK, echo.Map{"status": statusReady})
	case orchestrator.StatusDeploying:
		return c.JSON(http.StatusOK, echo.Map{"status": statusDeploying})
	default:
		return c.JSON(http.StatusOK, echo.Map{"status": statusSubmitted})
	}
}

// ModelProgress handles POST /model_progress, the callback the training
// system posts as cycles complete. Retrieval failures at 100 percent are
// deliberately not surfaced here: the progress update already stands.
func (h *OrchestrationHandler) ModelProgress(c echo.Context) error {
	var body struct {
		ModelID         string `json:"model_id"`
		PercentComplete *int   `json:"percent_complete"`
	}
	if err := c.Bind(&body); err != nil || body.ModelID == "" || body.PercentComplete == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "model_id and percent_complete are required"})
	}

	if err := h.Reconciler.ReportProgress(c.Request().Context(), body.ModelID, *body.PercentComplete); err != nil {
		return orchestrationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "model completion was updated successfully"})
}

// ListModels handles GET /models?owner=, returning every model the owner
// has submitted together with node and completion state.
func (h *OrchestrationHandler) ListModels(c echo.Context) error {
	owner := c.QueryParam("owner")
	if owner == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner is required"})
	}
	models, err := h.Models.ListByOwner(c.Request().Context(), owner)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to query record store"})
	}
	return c.JSON(http.StatusOK, echo.Map{"models": models})
}

// NodeStatus handles GET /nodes/:model_id, a read-only view of the
// model's node deployment. Unlike POST /create it never submits
// anything, so dashboards can poll it freely.
func (h *OrchestrationHandler) NodeStatus(c echo.Context) error {
	dep, err := h.Orchestrator.Describe(c.Request().Context(), c.Param("model_id"))
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoNode) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no node requested for model"})
		}
		return orchestrationError(c, err)
	}
	return c.JSON(http.StatusOK, dep)
}

// GetDataset handles GET /datasets/:id, returning the dataset record a
// model trains against. Buyers use it to check device counts before
// requesting a node.
func (h *OrchestrationHandler) GetDataset(c echo.Context) error {
	d, err := h.Datasets.GetDataset(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrDatasetNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "dataset not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to query record store"})
	}
	return c.JSON(http.StatusOK, d)
}

// DeleteNode handles POST /delete. Tearing a node down is an
// administrative action that has never been wired into this surface, so
// the route answers 501 rather than pretending.
func (h *OrchestrationHandler) DeleteNode(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, echo.Map{"error": "node deletion is not implemented"})
}

// orchestrationError maps orchestration error kinds onto status codes:
// caller mistakes are 4xx, entitlement failures are 403, everything
// transient or inconsistent is 5xx with a stable message.
func orchestrationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrModelNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "model id not found"})
	case errors.Is(err, orchestrator.ErrUserNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user not found"})
	case errors.Is(err, orchestrator.ErrInvalidProgress):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "percent_complete must be between 0 and 100"})
	case errors.Is(err, orchestrator.ErrNotEntitled):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "user has not purchased requested dataset"})
	case errors.Is(err, orchestrator.ErrInconsistent):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "node state inconsistent, operator attention required"})
	case errors.Is(err, orchestrator.ErrProvisioningFailed):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to deploy node"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to query record store"})
	}
}
