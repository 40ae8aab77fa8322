// Package queue defines message payloads exchanged over the message
// broker, plus the background consumer for training progress reports.
package queue

import "github.com/artificien/orchestrator/internal/model"

// Queue names. All queues are durable and use the default exchange.
const (
	// NodeLifecycleQueue carries NodeEvent messages: a deployment was
	// submitted or became ready.
	NodeLifecycleQueue = "node.lifecycle"
	// ModelCompletedQueue carries ModelCompletedEvent messages.
	ModelCompletedQueue = "model.completed"
	// ModelProgressQueue carries ModelProgressEvent messages posted by
	// training systems that report over the broker instead of HTTP.
	ModelProgressQueue = "model.progress"
)

// NodeEvent is published when a model's node deployment changes state.
// Downstream consumers (dashboards, notification senders) can react
// without polling the orchestration API.
type NodeEvent struct {
	ModelID    string                 `json:"model_id"`
	Status     model.DeploymentStatus `json:"status"`
	Endpoint   string                 `json:"endpoint,omitempty"`
	OccurredAt string                 `json:"occurred_at"`
}

// ModelCompletedEvent is published once a model reaches 100 percent and
// its artifact has been persisted to durable storage.
type ModelCompletedEvent struct {
	ModelID      string `json:"model_id"`
	DownloadLink string `json:"download_link"`
	CompletedAt  string `json:"completed_at"`
}

// ModelProgressEvent mirrors the body of POST /model_progress for
// broker-based ingestion.
type ModelProgressEvent struct {
	ModelID         string `json:"model_id"`
	PercentComplete int    `json:"percent_complete"`
}
