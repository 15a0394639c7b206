package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/botdock/botdock/internal"
	"github.com/botdock/botdock/internal/docker"
)

var log = logrus.WithField("component", "orchestrator")

// Controller is the state machine owning create/start/stop/restart/delete
// for bot entities. It is the sole writer of a bot's status and container
// identity. At most one lifecycle operation is in flight per bot at a
// time; operations on different bots proceed in parallel.
type Controller struct {
	store   Store
	runtime Runtime
	secrets Cipher
	notify  Notifier

	dataDir     string
	stopTimeout int
	pythonImage string
	nodeImage   string

	locks *keyedMutex
}

// CreateBotParams are the operator-supplied fields for a new bot.
type CreateBotParams struct {
	Name         string
	Description  string
	Runtime      internal.RuntimeKind
	EntryPoint   string
	StartCommand string
	AutoRestart  bool
	MemoryMB     int64
	CPUCores     float64
	CodeDir      string
}

// Create registers a new bot in STOPPED state. The container name is
// generated here, exactly once; it is never regenerated afterwards. When
// no code directory is given, one is created under the data directory.
func (c *Controller) Create(ctx context.Context, params CreateBotParams) (internal.Bot, error) {
	switch params.Runtime {
	case internal.RuntimePython, internal.RuntimeNode:
	default:
		return internal.Bot{}, fmt.Errorf("unsupported runtime %q: expected %q or %q", params.Runtime, internal.RuntimePython, internal.RuntimeNode)
	}

	id := uuid.NewString()
	codeDir := params.CodeDir
	if codeDir == "" {
		codeDir = filepath.Join(c.dataDir, id)
	}
	if err := os.MkdirAll(codeDir, 0o755); err != nil {
		return internal.Bot{}, fmt.Errorf("failed to create code directory %q: %w", codeDir, err)
	}

	now := time.Now().UTC()
	bot := internal.Bot{
		ID:            id,
		Name:          params.Name,
		Description:   params.Description,
		Runtime:       params.Runtime,
		EntryPoint:    params.EntryPoint,
		StartCommand:  params.StartCommand,
		AutoRestart:   params.AutoRestart,
		MemoryMB:      params.MemoryMB,
		CPUCores:      params.CPUCores,
		CodeDir:       codeDir,
		ContainerName: internal.ContainerName(params.Name),
		Status:        internal.StatusStopped,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := c.store.CreateBot(ctx, bot); err != nil {
		return internal.Bot{}, err
	}

	log.WithFields(logrus.Fields{"bot": bot.ID, "name": bot.Name}).Info("bot created")
	c.notify.Notify(internal.EventBotCreated, bot.Summary(), fmt.Sprintf("Bot %q created", bot.Name), nil)
	return bot, nil
}

// Start launches the bot's container. A bot already RUNNING is rejected
// with internal.ErrAlreadyRunning and its state is unchanged. On failure
// the bot is left in ERROR and the error is returned; a container created
// but not started is deliberately left behind for the next start attempt's
// stale-container cleanup.
func (c *Controller) Start(ctx context.Context, botID string) error {
	unlock := c.locks.lock(botID)
	defer unlock()

	bot, err := c.store.GetBot(ctx, botID)
	if err != nil {
		return err
	}
	if bot.Status == internal.StatusRunning {
		return internal.ErrAlreadyRunning
	}

	if err := c.store.SetBotStatus(ctx, bot.ID, internal.StatusStarting); err != nil {
		return err
	}

	if err := c.launch(ctx, &bot); err != nil {
		c.markError(ctx, bot, "start failed", err)
		return err
	}

	log.WithFields(logrus.Fields{"bot": bot.ID, "container": bot.ContainerID}).Info("bot started")
	c.notify.Notify(internal.EventBotStarted, bot.Summary(), fmt.Sprintf("Bot %q started", bot.Name), nil)
	return nil
}

func (c *Controller) launch(ctx context.Context, bot *internal.Bot) error {
	env, err := c.decryptEnv(ctx, *bot)
	if err != nil {
		return err
	}

	// A stale container from a previous run (crashed start, ERROR state)
	// still owns the bot's container name; remove it before recreating.
	if bot.ContainerID != "" {
		if err := c.runtime.RemoveContainer(ctx, bot.ContainerID); err != nil {
			return err
		}
		bot.ContainerID = ""
	}

	containerID, err := c.runtime.CreateContainer(ctx, c.containerSpec(*bot, env))
	if err != nil {
		return err
	}

	// Persist the id before starting so a failed start leaves a record of
	// the orphan for the next attempt to clean up.
	bot.ContainerID = containerID
	bot.Status = internal.StatusStarting
	if err := c.store.UpdateBot(ctx, *bot); err != nil {
		return err
	}

	if err := c.runtime.StartContainer(ctx, containerID); err != nil {
		return err
	}

	now := time.Now().UTC()
	bot.Status = internal.StatusRunning
	bot.LastStartedAt = &now
	if err := c.store.UpdateBot(ctx, *bot); err != nil {
		return err
	}
	return c.store.AppendStatusHistory(ctx, bot.ID, internal.StatusRunning, nil, nil)
}

// Stop gracefully stops the bot's container. The container and its id are
// kept so the bot can be started again or inspected; only removal clears
// the id.
func (c *Controller) Stop(ctx context.Context, botID string) error {
	unlock := c.locks.lock(botID)
	defer unlock()

	bot, err := c.store.GetBot(ctx, botID)
	if err != nil {
		return err
	}
	if bot.ContainerID == "" {
		return internal.ErrNoContainer
	}

	if err := c.store.SetBotStatus(ctx, bot.ID, internal.StatusStopping); err != nil {
		return err
	}

	if err := c.halt(ctx, &bot); err != nil {
		c.markError(ctx, bot, "stop failed", err)
		return err
	}

	log.WithFields(logrus.Fields{"bot": bot.ID, "container": bot.ContainerID}).Info("bot stopped")
	c.notify.Notify(internal.EventBotStopped, bot.Summary(), fmt.Sprintf("Bot %q stopped", bot.Name), nil)
	return nil
}

func (c *Controller) halt(ctx context.Context, bot *internal.Bot) error {
	if err := c.runtime.StopContainer(ctx, bot.ContainerID, c.stopTimeout); err != nil {
		return err
	}

	now := time.Now().UTC()
	bot.Status = internal.StatusStopped
	bot.LastStoppedAt = &now
	if err := c.store.UpdateBot(ctx, *bot); err != nil {
		return err
	}
	return c.store.AppendStatusHistory(ctx, bot.ID, internal.StatusStopped, nil, nil)
}

// Restart restarts the bot's container in place: same container, same bind
// mounts, no recreation.
func (c *Controller) Restart(ctx context.Context, botID string) error {
	unlock := c.locks.lock(botID)
	defer unlock()

	bot, err := c.store.GetBot(ctx, botID)
	if err != nil {
		return err
	}
	if bot.ContainerID == "" {
		return internal.ErrNoContainer
	}

	if err := c.store.SetBotStatus(ctx, bot.ID, internal.StatusRestarting); err != nil {
		return err
	}

	if err := c.bounce(ctx, &bot); err != nil {
		c.markError(ctx, bot, "restart failed", err)
		return err
	}

	log.WithFields(logrus.Fields{"bot": bot.ID, "container": bot.ContainerID}).Info("bot restarted")
	c.notify.Notify(internal.EventBotRestarted, bot.Summary(), fmt.Sprintf("Bot %q restarted", bot.Name), nil)
	return nil
}

func (c *Controller) bounce(ctx context.Context, bot *internal.Bot) error {
	if err := c.runtime.RestartContainer(ctx, bot.ContainerID, c.stopTimeout); err != nil {
		return err
	}

	now := time.Now().UTC()
	bot.Status = internal.StatusRunning
	bot.LastStartedAt = &now
	if err := c.store.UpdateBot(ctx, *bot); err != nil {
		return err
	}
	return c.store.AppendStatusHistory(ctx, bot.ID, internal.StatusRunning, nil, nil)
}

// Delete removes the bot entirely. Container removal and code directory
// removal are best-effort: failures are logged and deletion of the record
// proceeds regardless, so a wedged engine can never strand a bot entry.
func (c *Controller) Delete(ctx context.Context, botID string) error {
	unlock := c.locks.lock(botID)
	defer unlock()

	bot, err := c.store.GetBot(ctx, botID)
	if err != nil {
		return err
	}

	if bot.ContainerID != "" {
		if err := c.runtime.RemoveContainer(ctx, bot.ContainerID); err != nil {
			log.WithField("bot", bot.ID).Warnf("failed to remove container during delete: %v", err)
		}
	}
	if bot.CodeDir != "" {
		if err := os.RemoveAll(bot.CodeDir); err != nil {
			log.WithField("bot", bot.ID).Warnf("failed to remove code directory during delete: %v", err)
		}
	}

	if err := c.store.DeleteBot(ctx, bot.ID); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"bot": bot.ID, "name": bot.Name}).Info("bot deleted")
	c.notify.Notify(internal.EventBotDeleted, bot.Summary(), fmt.Sprintf("Bot %q deleted", bot.Name), nil)
	return nil
}

// SetEnvVar encrypts and stores one environment variable for the bot. The
// new value takes effect on the next start.
func (c *Controller) SetEnvVar(ctx context.Context, botID, key, value string) error {
	if _, err := c.store.GetBot(ctx, botID); err != nil {
		return err
	}
	ciphertext, err := c.secrets.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt env var %q: %w", key, err)
	}
	return c.store.UpsertEnvVar(ctx, internal.EnvVar{BotID: botID, Key: key, Value: ciphertext})
}

// DeleteEnvVar removes one environment variable from the bot.
func (c *Controller) DeleteEnvVar(ctx context.Context, botID, key string) error {
	return c.store.DeleteEnvVar(ctx, botID, key)
}

func (c *Controller) decryptEnv(ctx context.Context, bot internal.Bot) ([]string, error) {
	vars, err := c.store.GetEnvVars(ctx, bot.ID)
	if err != nil {
		return nil, err
	}

	env := runtimeEnv(bot.Runtime)
	for _, v := range vars {
		plaintext, err := c.secrets.Decrypt(v.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt env var %q: %w", v.Key, err)
		}
		env = append(env, fmt.Sprintf("%s=%s", v.Key, plaintext))
	}
	return env, nil
}

func (c *Controller) containerSpec(bot internal.Bot, env []string) internal.ContainerSpec {
	return internal.ContainerSpec{
		Name:        bot.ContainerName,
		Image:       c.image(bot.Runtime),
		Command:     botCommand(bot),
		Env:         env,
		CodeDir:     bot.CodeDir,
		MemoryMB:    bot.MemoryMB,
		CPUCores:    bot.CPUCores,
		AutoRestart: bot.AutoRestart,
		Labels: map[string]string{
			docker.BotIDLabel: bot.ID,
		},
	}
}

func (c *Controller) image(kind internal.RuntimeKind) string {
	if kind == internal.RuntimeNode {
		return c.nodeImage
	}
	return c.pythonImage
}

// markError persists ERROR before the failure propagates, so the bot is
// never observed stuck in a transitional status.
func (c *Controller) markError(ctx context.Context, bot internal.Bot, message string, cause error) {
	if err := c.store.SetBotStatus(ctx, bot.ID, internal.StatusError); err != nil {
		log.WithField("bot", bot.ID).Warnf("failed to persist ERROR status: %v", err)
	}
	if err := c.store.AppendStatusHistory(ctx, bot.ID, internal.StatusError, nil, nil); err != nil {
		log.WithField("bot", bot.ID).Warnf("failed to append ERROR history: %v", err)
	}
	c.notify.Notify(internal.EventBotError, bot.Summary(), fmt.Sprintf("%s: %v", message, cause), nil)
}

func botCommand(bot internal.Bot) []string {
	if bot.StartCommand != "" {
		return strings.Fields(bot.StartCommand)
	}
	switch bot.Runtime {
	case internal.RuntimeNode:
		return []string{"node", bot.EntryPoint}
	default:
		return []string{"python", bot.EntryPoint}
	}
}

func runtimeEnv(kind internal.RuntimeKind) []string {
	switch kind {
	case internal.RuntimeNode:
		return []string{"NODE_ENV=production"}
	default:
		// Unbuffered output so log streaming sees lines as they happen.
		return []string{"PYTHONUNBUFFERED=1"}
	}
}
