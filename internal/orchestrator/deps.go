package orchestrator

import (
	"context"
	"time"

	"github.com/botdock/botdock/internal"
)

// Runtime is the container engine contract the orchestrator depends on.
// docker.Client implements it; tests substitute a fake.
type Runtime interface {
	CreateContainer(ctx context.Context, spec internal.ContainerSpec) (string, error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, graceSeconds int) error
	RestartContainer(ctx context.Context, containerID string, graceSeconds int) error
	RemoveContainer(ctx context.Context, containerID string) error
	ContainerStatus(ctx context.Context, containerID string) (internal.ContainerState, error)
	ContainerStats(ctx context.Context, containerID string) (internal.ContainerStats, bool)
	StreamLogs(ctx context.Context, containerID string, onLine func(string), onError func(error)) func()
}

// Store is the persistence contract the orchestrator depends on.
// store.Store implements it.
type Store interface {
	CreateBot(ctx context.Context, b internal.Bot) error
	GetBot(ctx context.Context, id string) (internal.Bot, error)
	ListBots(ctx context.Context) ([]internal.Bot, error)
	UpdateBot(ctx context.Context, b internal.Bot) error
	SetBotStatus(ctx context.Context, id string, status internal.BotStatus) error
	DeleteBot(ctx context.Context, id string) error
	AppendStatusHistory(ctx context.Context, botID string, status internal.BotStatus, cpu, mem *float64) error
	ListStatusHistory(ctx context.Context, botID string, since time.Time) ([]internal.StatusSample, error)
	GetEnvVars(ctx context.Context, botID string) ([]internal.EnvVar, error)
	UpsertEnvVar(ctx context.Context, v internal.EnvVar) error
	DeleteEnvVar(ctx context.Context, botID, key string) error
}

// Cipher encrypts env var values at rest. secrets.Box implements it.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Notifier dispatches lifecycle events on a best-effort, fire-and-forget
// basis. notify.Webhook implements it.
type Notifier interface {
	Notify(kind internal.EventKind, bot internal.BotSummary, message string, details map[string]string)
}
