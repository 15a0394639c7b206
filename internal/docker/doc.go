// Package docker wraps the Docker Engine API for bot container management.
//
// It provides container create/start/stop/restart/remove operations with
// idempotent handling of already-stopped and already-removed containers,
// one-shot resource usage sampling, and a follow-mode log stream decoder.
// "Not found" conditions from the engine are normalized into no-ops or an
// unknown state so lifecycle logic never needs engine-specific error
// inspection.
package docker
