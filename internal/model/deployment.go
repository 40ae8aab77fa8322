package model

// DeploymentStatus tracks where a node deployment is in its lifecycle as
// reported by the provisioning system. The record store never persists
// this value directly; it is mirrored into Model.HasNode / Model.NodeURL
// by the orchestrator.
type DeploymentStatus string

const (
	// DeploymentSubmitted means a create request was accepted but the
	// provisioning system has not started reporting on it yet.
	DeploymentSubmitted DeploymentStatus = "SUBMITTED"
	// DeploymentProvisioning means the deployment exists but has not
	// finished publishing its outputs.
	DeploymentProvisioning DeploymentStatus = "PROVISIONING"
	// DeploymentAvailable means the deployment published its outputs and
	// the node endpoint is reachable.
	DeploymentAvailable DeploymentStatus = "AVAILABLE"
	// DeploymentFailed means the provisioning system reported a terminal
	// failure for the deployment.
	DeploymentFailed DeploymentStatus = "FAILED"
)

// Deployment is the ephemeral view of one provisioned compute node. The
// deployment name equals the model ID; one node serves exactly one model.
type Deployment struct {
	Name     string           `json:"name"`
	Endpoint string           `json:"endpoint,omitempty"`
	Status   DeploymentStatus `json:"status"`
}
