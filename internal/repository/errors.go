// Package repository implements the record store client over the five
// persistent tables (enterprise, user, app, model, dataset). The primary
// backend is DynamoDB; a MySQL backend with the same surface exists for
// local development. Sentinel errors below let higher layers distinguish
// failure scenarios without inspecting backend-specific error types: a
// missing record is never reported the same way as a throttled or
// unreachable store.
package repository

import "errors"

// ErrModelNotFound is returned when no model record exists for the
// requested model ID.
var ErrModelNotFound = errors.New("model not found")

// ErrUserNotFound is returned when no user record exists for the
// requested user ID.
var ErrUserNotFound = errors.New("user not found")

// ErrDatasetNotFound is returned when no dataset record exists for the
// requested dataset ID.
var ErrDatasetNotFound = errors.New("dataset not found")

// ErrConditionFailed is returned when a conditional update did not apply
// because the record was not in the expected state, e.g. marking a node
// as requested when another caller already did. Callers decide whether
// this is benign (a lost race) or a real conflict.
var ErrConditionFailed = errors.New("conditional update failed")

// ErrUnavailable is returned for transient store failures such as
// timeouts or throttling. These are safe to retry with backoff and are
// never conflated with a missing record.
var ErrUnavailable = errors.New("record store unavailable")
