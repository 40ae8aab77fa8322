// Package provision wraps the infrastructure-provisioning system that
// backs compute nodes. A driver turns a node specification into a
// deployment request and answers non-blocking readiness polls. Submitting
// a deployment spins up billable compute, so callers must never submit
// speculatively; deployment names are unique and a second submit for the
// same name is rejected.
package provision

import (
	"context"
	"errors"
)

// Output keys published by a node deployment.
const (
	// OutputLoadBalancerDNS is the DNS name of the node's load balancer.
	OutputLoadBalancerDNS = "NodeLoadBalancerDNS"
	// OutputNodeEndpoint is the reachable host:port of the node service.
	OutputNodeEndpoint = "NodeEndpoint"
)

// ErrAlreadyExists is returned by Submit when a deployment with the same
// name was already created. For concurrent callers racing to provision
// the same model this is benign: somebody else's submit won.
var ErrAlreadyExists = errors.New("deployment already exists")

// ErrPending is returned by Outputs when the deployment exists but has
// not finished publishing its outputs. Callers should poll again later.
var ErrPending = errors.New("deployment pending")

// ErrNotFound is returned by Outputs when no deployment with the given
// name was ever submitted.
var ErrNotFound = errors.New("deployment not found")

// ErrFailed is returned by Outputs when the deployment reached a
// terminal failure state. Polling will not change the answer.
var ErrFailed = errors.New("deployment failed")

// NodeSpec describes the compute node to provision for one model. Zero
// values fall back to the standard node shape; the shared cluster and
// network identifiers must always be supplied.
type NodeSpec struct {
	// Cluster is the container cluster all node deployments share.
	Cluster string
	// VPCID and SubnetIDs locate the shared network the node joins.
	VPCID     string
	SubnetIDs []string
	// ExecutionRoleARN is assumed by the container agent to pull images
	// and write logs.
	ExecutionRoleARN string
	// Image is the container image to run; defaults to the standard
	// federated-learning node image.
	Image string
	// Port is the container and listener port; defaults to 5000.
	Port int
	// CPU and MemoryMiB size the task; default 4096 / 8192.
	CPU       int
	MemoryMiB int
	// Environment is passed to the node container.
	Environment map[string]string
}

// Driver submits node deployments and polls their published outputs.
//
// Submit creates a deployment under the given name. It returns
// ErrAlreadyExists when the name is taken.
//
// Outputs returns the deployment's published outputs as a flat map. It
// returns ErrPending while the deployment is still coming up, ErrFailed
// once it lands in a terminal failure state and ErrNotFound when no such
// deployment was ever submitted. It never blocks waiting for readiness.
type Driver interface {
	Submit(ctx context.Context, name string, spec NodeSpec) error
	Outputs(ctx context.Context, name string) (map[string]string, error)
}
