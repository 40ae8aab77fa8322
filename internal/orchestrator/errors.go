package orchestrator

import "errors"

// Error kinds surfaced at the orchestration boundary. Store and driver
// failures are always converted to one of these before they reach a
// handler; no raw transport error crosses the API surface.

// ErrModelNotFound means no model record exists for the requested ID.
// Permanent; the caller sent a bad model ID.
var ErrModelNotFound = errors.New("model id not found")

// ErrUserNotFound means the model's owner has no user record. Permanent.
var ErrUserNotFound = errors.New("user not found")

// ErrNotEntitled means the model's owner has not purchased the dataset
// the model trains against. Permanent; no state was mutated.
var ErrNotEntitled = errors.New("user has not purchased requested dataset")

// ErrStoreUnavailable means the record store could not be reached or
// throttled the request. Transient; safe to retry with backoff.
var ErrStoreUnavailable = errors.New("record store unavailable")

// ErrProvisioningFailed means the provisioning system rejected or failed
// a deployment request. May be transient (quota) or permanent (bad
// spec); callers learn which by polling.
var ErrProvisioningFailed = errors.New("provisioning failed")

// ErrInconsistent means the record store and the provisioning system
// disagree: the record says a node was requested but the provisioning
// system has no memory of the deployment. Re-provisioning automatically
// would duplicate billable compute, so this needs an operator.
var ErrInconsistent = errors.New("node state inconsistent, operator attention required")

// ErrNoNode means the model exists but no node has ever been requested
// for it, so there is no deployment to report on.
var ErrNoNode = errors.New("no node requested for model")

// ErrInvalidProgress means a progress report was outside [0,100].
var ErrInvalidProgress = errors.New("percent_complete must be between 0 and 100")
