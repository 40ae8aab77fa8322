// Package service provides the best-effort publisher for node lifecycle
// events. Publishing failures are logged and swallowed: broker trouble
// must never fail an orchestration request.
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/artificien/orchestrator/internal/model"
	"github.com/artificien/orchestrator/internal/queue"
)

const (
	// dialTimeout bounds the TCP connect to the broker. The library
	// default is 30s, far too long to risk anywhere near a request.
	dialTimeout = 5 * time.Second
	// publishTimeout bounds one whole publish attempt, dial included.
	publishTimeout = 10 * time.Second
)

// EventPublisher publishes lifecycle events to RabbitMQ. Each event is
// sent from its own goroutine on a fresh connection, so a slow or
// unreachable broker never stalls the caller; lifecycle events are rare
// (a handful per model), so the connection churn is fine.
type EventPublisher struct {
	url    string
	wg     sync.WaitGroup
	syslog *logrus.Entry
}

// NewEventPublisher returns a publisher for the given broker URL. An
// empty URL falls back to the environment (RABBITMQ_URL / AMQP_URL).
func NewEventPublisher(url string) *EventPublisher {
	if url == "" {
		url = queue.BrokerURL()
	}
	return &EventPublisher{
		url:    url,
		syslog: logrus.WithField("component", "event-publisher"),
	}
}

// NodeSubmitted announces that a new node deployment was submitted.
func (p *EventPublisher) NodeSubmitted(_ context.Context, modelID string) {
	p.enqueue(queue.NodeLifecycleQueue, queue.NodeEvent{
		ModelID:    modelID,
		Status:     model.DeploymentSubmitted,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// NodeReady announces that a node deployment became reachable.
func (p *EventPublisher) NodeReady(_ context.Context, modelID, endpoint string) {
	p.enqueue(queue.NodeLifecycleQueue, queue.NodeEvent{
		ModelID:    modelID,
		Status:     model.DeploymentAvailable,
		Endpoint:   endpoint,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// ModelCompleted announces that a model finished training and its
// artifact is durably stored.
func (p *EventPublisher) ModelCompleted(_ context.Context, modelID, downloadLink string) {
	p.enqueue(queue.ModelCompletedQueue, queue.ModelCompletedEvent{
		ModelID:      modelID,
		DownloadLink: downloadLink,
		CompletedAt:  time.Now().UTC().Format(time.RFC3339),
	})
}

// Flush blocks until every in-flight publish has finished. Called on
// shutdown so late events get their full timeout to reach the broker.
func (p *EventPublisher) Flush() { p.wg.Wait() }

// enqueue ships the event from a background goroutine. The caller's
// context is deliberately not used: the request this event belongs to
// should complete whether or not the broker answers.
func (p *EventPublisher) enqueue(queueName string, event interface{}) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		p.publish(ctx, queueName, event)
	}()
}

// publish marshals the event and sends it to the named durable queue.
// Any failure is logged and dropped.
func (p *EventPublisher) publish(ctx context.Context, queueName string, event interface{}) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial: amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		p.syslog.WithError(err).Warn("broker dial failed, event dropped")
		return
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.syslog.WithError(err).Warn("channel open failed, event dropped")
		return
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.syslog.WithError(err).Warnf("declare %q failed, event dropped", queueName)
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.syslog.WithError(err).Warn("marshal event failed, event dropped")
		return
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.syslog.WithError(err).Warnf("publish to %q failed, event dropped", queueName)
	}
}
