// Package internal contains the shared domain types for botdock.
//
// It provides the bot record and status model, container spec types,
// configuration parsing, and cleanup orchestration used across the docker,
// store, and orchestrator packages.
package internal
