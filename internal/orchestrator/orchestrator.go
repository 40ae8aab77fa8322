// Package orchestrator holds the node lifecycle state machine. Given a
// model ID it reconciles the model's record against the provisioning
// system and answers ready / deploying / submitted, triggering exactly
// one provisioning submission per model. All durable state lives in the
// record store; the orchestrator itself keeps nothing between calls, so
// any number of request workers can run concurrently.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/artificien/orchestrator/internal/model"
	"github.com/artificien/orchestrator/internal/provision"
	"github.com/artificien/orchestrator/internal/repository"
)

// Status is the orchestrator's answer to a node request.
type Status int

const (
	// StatusReady means the node is reachable and its endpoint is
	// recorded on the model.
	StatusReady Status = iota
	// StatusDeploying means the node exists but is not reachable yet;
	// the caller should poll again later.
	StatusDeploying
	// StatusSubmitted means this call triggered a new provisioning
	// submission.
	StatusSubmitted
)

// ModelStore is the slice of the record store the orchestrator needs.
// Implementations must distinguish a missing record from an unreachable
// store (repository sentinel errors).
type ModelStore interface {
	GetModel(ctx context.Context, modelID string) (*model.Model, error)
	MarkNodeRequested(ctx context.Context, modelID string) error
	SetNodeURL(ctx context.Context, modelID, nodeURL string) error
	SetProgress(ctx context.Context, modelID string, percent int) error
}

// UserStore resolves model owners for entitlement validation.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// EventPublisher receives lifecycle notifications. Publishing is
// best-effort; implementations must not block the request path on broker
// failures.
type EventPublisher interface {
	NodeSubmitted(ctx context.Context, modelID string)
	NodeReady(ctx context.Context, modelID, endpoint string)
	ModelCompleted(ctx context.Context, modelID, downloadLink string)
}

// DefaultCallTimeout bounds each store and driver call when the
// configuration does not say otherwise. No operation in this package
// blocks indefinitely.
const DefaultCallTimeout = 15 * time.Second

// Config carries the orchestrator's dependencies. Models, Users and
// Driver are required; Events may be nil to disable notifications.
type Config struct {
	Models   ModelStore
	Users    UserStore
	Driver   provision.Driver
	NodeSpec provision.NodeSpec
	Events   EventPublisher

	// EntitlementCheck gates provisioning on the owner having purchased
	// the model's dataset. On unless explicitly disabled.
	EntitlementCheck bool

	// CallTimeout bounds each external call; zero means
	// DefaultCallTimeout.
	CallTimeout time.Duration
}

// Orchestrator drives the NoNode -> Requested -> Provisioning -> Ready
// state machine for model compute nodes.
type Orchestrator struct {
	models      ModelStore
	users       UserStore
	driver      provision.Driver
	spec        provision.NodeSpec
	events      EventPublisher
	entitlement bool
	timeout     time.Duration
	syslog      *logrus.Entry
}

// New constructs an Orchestrator. It panics when a required dependency
// is missing, the same way a nil repository would be a programming error
// rather than a runtime condition.
func New(cfg Config) *Orchestrator {
	if cfg.Models == nil || cfg.Driver == nil {
		panic("nil dependency passed to orchestrator.New")
	}
	if cfg.EntitlementCheck && cfg.Users == nil {
		panic("entitlement check enabled without a user store")
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Orchestrator{
		models:      cfg.Models,
		users:       cfg.Users,
		driver:      cfg.Driver,
		spec:        cfg.NodeSpec,
		events:      cfg.Events,
		entitlement: cfg.EntitlementCheck,
		timeout:     timeout,
		syslog:      logrus.WithField("component", "orchestrator"),
	}
}

// Request reconciles the node state for the given model and reports
// where it stands. Model IDs are case-insensitive and normalized to
// lowercase. Repeated calls are safe: once a node has been requested,
// Request only ever polls, it never submits again.
func (o *Orchestrator) Request(ctx context.Context, modelID string) (Status, error) {
	modelID = NormalizeModelID(modelID)
	if modelID == "" {
		return 0, errors.Wrap(ErrModelNotFound, "empty model id")
	}

	m, err := o.getModel(ctx, modelID)
	if err != nil {
		return 0, err
	}
	if m.HasNode {
		return o.poll(ctx, m)
	}
	return o.provisionNode(ctx, m)
}

// poll checks a previously requested node for readiness and mirrors the
// endpoint into the record once the deployment publishes it.
func (o *Orchestrator) poll(ctx context.Context, m *model.Model) (Status, error) {
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	outputs, err := o.driver.Outputs(cctx, m.ModelID)
	switch {
	case err == nil:
	case errors.Is(err, provision.ErrPending):
		return StatusDeploying, nil
	case errors.Is(err, provision.ErrNotFound):
		// The record claims a node was requested but the provisioning
		// system has never heard of it. Re-submitting here would
		// duplicate infrastructure cost, so surface it instead.
		o.syslog.WithField("model_id", m.ModelID).Error("record has node but deployment is missing")
		return 0, errors.Wrapf(ErrInconsistent, "model %q", m.ModelID)
	default:
		return 0, errors.Wrapf(ErrProvisioningFailed, "poll %q: %v", m.ModelID, err)
	}

	endpoint := outputs[provision.OutputNodeEndpoint]
	if endpoint == "" {
		endpoint = outputs[provision.OutputLoadBalancerDNS]
	}
	if endpoint == "" {
		o.syslog.WithField("model_id", m.ModelID).Error("deployment outputs are not properly configured")
		return 0, errors.Wrapf(ErrInconsistent, "model %q outputs missing endpoint", m.ModelID)
	}

	if err := o.setNodeURL(ctx, m.ModelID, endpoint); err != nil {
		return 0, err
	}
	if o.events != nil {
		o.events.NodeReady(ctx, m.ModelID, endpoint)
	}
	o.syslog.WithFields(logrus.Fields{"model_id": m.ModelID, "endpoint": endpoint}).Info("node ready")
	return StatusReady, nil
}

// provisionNode validates entitlement, submits the deployment and flips
// has_node. The record transition is conditional and the provisioning
// system rejects duplicate deployment names, so two racing callers
// produce exactly one deployment: the loser's submit comes back
// AlreadyExists and is treated as a no-op.
func (o *Orchestrator) provisionNode(ctx context.Context, m *model.Model) (Status, error) {
	if o.entitlement {
		if err := o.checkEntitlement(ctx, m); err != nil {
			return 0, err
		}
	}

	submitted := false
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	switch err := o.driver.Submit(cctx, m.ModelID, o.spec); {
	case err == nil:
		submitted = true
	case errors.Is(err, provision.ErrAlreadyExists):
		o.syslog.WithField("model_id", m.ModelID).Info("deployment already submitted by a concurrent request")
	default:
		return 0, errors.Wrapf(ErrProvisioningFailed, "submit %q: %v", m.ModelID, err)
	}

	marked := false
	sctx, scancel := context.WithTimeout(ctx, o.timeout)
	defer scancel()
	switch err := o.models.MarkNodeRequested(sctx, m.ModelID); {
	case err == nil:
		marked = true
	case errors.Is(err, repository.ErrConditionFailed):
		// Another request already recorded the transition.
	default:
		return 0, errors.Wrapf(ErrStoreUnavailable, "mark node requested %q: %v", m.ModelID, err)
	}

	// When both steps were no-ops this caller lost the race outright;
	// the winner already announced the submission.
	if submitted || marked {
		if o.events != nil {
			o.events.NodeSubmitted(ctx, m.ModelID)
		}
		o.syslog.WithField("model_id", m.ModelID).Info("node deployment submitted")
	}
	return StatusSubmitted, nil
}

// Describe reports the deployment state for a model's node without
// mutating anything: no submission, no record write. It is the read-only
// companion to Request for dashboards and operators.
func (o *Orchestrator) Describe(ctx context.Context, modelID string) (*model.Deployment, error) {
	modelID = NormalizeModelID(modelID)
	if modelID == "" {
		return nil, errors.Wrap(ErrModelNotFound, "empty model id")
	}
	m, err := o.getModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if !m.HasNode {
		return nil, errors.Wrapf(ErrNoNode, "model %q", modelID)
	}

	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	outputs, err := o.driver.Outputs(cctx, m.ModelID)
	switch {
	case err == nil:
	case errors.Is(err, provision.ErrPending):
		return &model.Deployment{Name: m.ModelID, Status: model.DeploymentProvisioning}, nil
	case errors.Is(err, provision.ErrNotFound):
		return nil, errors.Wrapf(ErrInconsistent, "model %q", m.ModelID)
	case errors.Is(err, provision.ErrFailed):
		return &model.Deployment{Name: m.ModelID, Status: model.DeploymentFailed}, nil
	default:
		return nil, errors.Wrapf(ErrProvisioningFailed, "describe %q: %v", m.ModelID, err)
	}

	endpoint := outputs[provision.OutputNodeEndpoint]
	if endpoint == "" {
		endpoint = outputs[provision.OutputLoadBalancerDNS]
	}
	return &model.Deployment{Name: m.ModelID, Endpoint: endpoint, Status: model.DeploymentAvailable}, nil
}

func (o *Orchestrator) checkEntitlement(ctx context.Context, m *model.Model) error {
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	u, err := o.users.GetUser(cctx, m.Owner)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUserNotFound):
		return errors.Wrapf(ErrUserNotFound, "owner %q", m.Owner)
	default:
		return errors.Wrapf(ErrStoreUnavailable, "get owner %q: %v", m.Owner, err)
	}
	if !u.Entitled(m.DatasetID()) {
		return errors.Wrapf(ErrNotEntitled, "owner %q, dataset %q", m.Owner, m.DatasetID())
	}
	return nil
}

func (o *Orchestrator) getModel(ctx context.Context, modelID string) (*model.Model, error) {
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	m, err := o.models.GetModel(cctx, modelID)
	if err != nil {
		return nil, mapStoreErr(err, modelID)
	}
	return m, nil
}

func (o *Orchestrator) setNodeURL(ctx context.Context, modelID, endpoint string) error {
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	switch err := o.models.SetNodeURL(cctx, modelID, endpoint); {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrConditionFailed):
		return errors.Wrapf(ErrInconsistent, "set node url %q", modelID)
	default:
		return errors.Wrapf(ErrStoreUnavailable, "set node url %q: %v", modelID, err)
	}
}

// NormalizeModelID lowercases and trims a caller-supplied model ID.
// Model IDs are case-insensitive everywhere in the system.
func NormalizeModelID(modelID string) string {
	return strings.ToLower(strings.TrimSpace(modelID))
}
