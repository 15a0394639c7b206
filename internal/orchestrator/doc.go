// Package orchestrator maps bot records onto container lifecycles.
//
// The Controller owns every transition of a bot's status and container
// identity, serialized per bot. The Reconciler periodically samples
// resource usage for running bots. The Orchestrator facade combines both
// with a log subscription registry and is the surface the HTTP and
// WebSocket layers consume.
package orchestrator
