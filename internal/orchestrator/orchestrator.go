package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/botdock/botdock/internal"
)

// Options configure the orchestrator. Zero values fall back to the
// defaults in the internal package.
type Options struct {
	DataDir           string
	StopTimeout       int
	ReconcileInterval time.Duration
	PythonImage       string
	NodeImage         string
}

// Orchestrator is the public surface of the bot container subsystem. It
// combines the lifecycle controller, the status reconciler, and the log
// subscription registry; the HTTP and WebSocket layers consume it and
// nothing below it.
type Orchestrator struct {
	controller *Controller
	reconciler *Reconciler
	subs       *subscriptionRegistry
	store      Store
	runtime    Runtime

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires an orchestrator from its collaborators.
func New(store Store, runtime Runtime, secrets Cipher, notifier Notifier, opts Options) *Orchestrator {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = internal.DefaultStopTimeout
	}
	if opts.PythonImage == "" {
		opts.PythonImage = "python:3.12-slim"
	}
	if opts.NodeImage == "" {
		opts.NodeImage = "node:22-alpine"
	}

	return &Orchestrator{
		controller: &Controller{
			store:       store,
			runtime:     runtime,
			secrets:     secrets,
			notify:      notifier,
			dataDir:     opts.DataDir,
			stopTimeout: opts.StopTimeout,
			pythonImage: opts.PythonImage,
			nodeImage:   opts.NodeImage,
			locks:       newKeyedMutex(),
		},
		reconciler: NewReconciler(store, runtime, opts.ReconcileInterval),
		subs:       newSubscriptionRegistry(),
		store:      store,
		runtime:    runtime,
	}
}

// Start launches the background reconciliation loop.
func (o *Orchestrator) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.reconciler.Run(ctx)
	}()
}

// Close stops the reconciler and cancels every live log subscription.
func (o *Orchestrator) Close() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.subs.closeAll()
}

// CreateBot registers a new bot in STOPPED state.
func (o *Orchestrator) CreateBot(ctx context.Context, params CreateBotParams) (internal.Bot, error) {
	return o.controller.Create(ctx, params)
}

// StartBot launches the bot's container.
func (o *Orchestrator) StartBot(ctx context.Context, botID string) error {
	return o.controller.Start(ctx, botID)
}

// StopBot gracefully stops the bot's container.
func (o *Orchestrator) StopBot(ctx context.Context, botID string) error {
	return o.controller.Stop(ctx, botID)
}

// RestartBot restarts the bot's container in place.
func (o *Orchestrator) RestartBot(ctx context.Context, botID string) error {
	return o.controller.Restart(ctx, botID)
}

// DeleteBot removes the bot, its container, and its code directory.
func (o *Orchestrator) DeleteBot(ctx context.Context, botID string) error {
	return o.controller.Delete(ctx, botID)
}

// SetEnvVar encrypts and stores one environment variable for the bot.
func (o *Orchestrator) SetEnvVar(ctx context.Context, botID, key, value string) error {
	return o.controller.SetEnvVar(ctx, botID, key, value)
}

// DeleteEnvVar removes one environment variable from the bot.
func (o *Orchestrator) DeleteEnvVar(ctx context.Context, botID, key string) error {
	return o.controller.DeleteEnvVar(ctx, botID, key)
}

// Bot returns one bot record.
func (o *Orchestrator) Bot(ctx context.Context, botID string) (internal.Bot, error) {
	return o.store.GetBot(ctx, botID)
}

// Bots returns all bot records.
func (o *Orchestrator) Bots(ctx context.Context) ([]internal.Bot, error) {
	return o.store.ListBots(ctx)
}

// ContainerState reports the engine-observed state of the bot's container,
// internal.StateUnknown if the bot has none or it no longer exists.
func (o *Orchestrator) ContainerState(ctx context.Context, botID string) (internal.ContainerState, error) {
	bot, err := o.store.GetBot(ctx, botID)
	if err != nil {
		return internal.StateUnknown, err
	}
	if bot.ContainerID == "" {
		return internal.StateUnknown, nil
	}
	return o.runtime.ContainerStatus(ctx, bot.ContainerID)
}

// Usage aggregates the bot's status history over the trailing window.
func (o *Orchestrator) Usage(ctx context.Context, botID string, window time.Duration) (Usage, error) {
	to := time.Now().UTC()
	from := to.Add(-window)
	samples, err := o.store.ListStatusHistory(ctx, botID, from)
	if err != nil {
		return Usage{}, err
	}
	return ComputeUsage(samples, from, to), nil
}

// SubscribeLogs attaches the subscriber to the bot's live log stream and
// returns a cancel function tied to the subscriber's connection teardown.
// A second subscription under the same (subscriber, bot) pair replaces the
// first: its stream is canceled before the new one is recorded.
func (o *Orchestrator) SubscribeLogs(ctx context.Context, subscriberID, botID string, onLine func(string), onError func(error)) (func(), error) {
	bot, err := o.store.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	if bot.ContainerID == "" {
		return nil, internal.ErrNoContainer
	}

	streamCancel := o.runtime.StreamLogs(ctx, bot.ContainerID, onLine, onError)
	release := o.subs.replace(subscriptionKey{Subscriber: subscriberID, BotID: botID}, streamCancel)
	return release, nil
}
