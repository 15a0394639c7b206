package internal

import "time"

// BotStatus is the lifecycle state of a bot as recorded in the store.
//
// STOPPED is the initial and terminal rest state. STARTING, STOPPING, and
// RESTARTING are transitional states that are always resolved to a stable
// state (or ERROR) before a lifecycle operation returns. ERROR is not
// terminal: a subsequent start attempt may transition out of it.
type BotStatus string

const (
	StatusStopped    BotStatus = "STOPPED"
	StatusStarting   BotStatus = "STARTING"
	StatusRunning    BotStatus = "RUNNING"
	StatusStopping   BotStatus = "STOPPING"
	StatusRestarting BotStatus = "RESTARTING"
	StatusError      BotStatus = "ERROR"
)

// RuntimeKind selects the container image and default command for a bot.
type RuntimeKind string

const (
	RuntimePython RuntimeKind = "python"
	RuntimeNode   RuntimeKind = "node"
)

// ContainerState is the engine-observed state of a container. StateUnknown
// is returned when the container no longer exists; it is not an error.
type ContainerState string

const (
	StateRunning ContainerState = "running"
	StateExited  ContainerState = "exited"
	StateCreated ContainerState = "created"
	StateUnknown ContainerState = "unknown"
)

// EventKind identifies a lifecycle notification event.
type EventKind string

const (
	EventBotCreated   EventKind = "BOT_CREATED"
	EventBotStarted   EventKind = "BOT_STARTED"
	EventBotStopped   EventKind = "BOT_STOPPED"
	EventBotRestarted EventKind = "BOT_RESTARTED"
	EventBotDeleted   EventKind = "BOT_DELETED"
	EventBotError     EventKind = "BOT_ERROR"
)

// Bot is the persistent record of a managed bot process.
//
// ContainerID is empty unless a container exists for the bot; it is set when
// a container is created and cleared on successful removal. ContainerName is
// generated once at creation time and never regenerated.
type Bot struct {
	ID            string
	Name          string
	Description   string
	Runtime       RuntimeKind
	EntryPoint    string
	StartCommand  string
	AutoRestart   bool
	MemoryMB      int64
	CPUCores      float64
	CodeDir       string
	ContainerName string
	ContainerID   string
	Status        BotStatus
	LastStartedAt *time.Time
	LastStoppedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Summary returns the identifying fields of the bot for notification payloads.
func (b Bot) Summary() BotSummary {
	return BotSummary{ID: b.ID, Name: b.Name}
}

// BotSummary identifies a bot in outbound notifications.
type BotSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnvVar is a per-bot environment variable. Value is ciphertext at rest and
// is only decrypted immediately before container creation.
type EnvVar struct {
	BotID string
	Key   string
	Value string
}

// StatusSample is one append-only row of the status history time series.
// CPUPercent and MemoryMB are nil when no stats were available for the
// sample.
type StatusSample struct {
	ID         int64
	BotID      string
	Status     BotStatus
	CPUPercent *float64
	MemoryMB   *float64
	RecordedAt time.Time
}

// ContainerSpec describes the container to create for a bot.
type ContainerSpec struct {
	Name        string
	Image       string
	Command     []string
	Env         []string
	CodeDir     string
	MemoryMB    int64
	CPUCores    float64
	AutoRestart bool
	Labels      map[string]string
}

// ContainerStats is a single resource usage sample for a running container.
type ContainerStats struct {
	CPUPercent    float64
	MemoryUsageMB float64
	MemoryLimitMB float64
}
