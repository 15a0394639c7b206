package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/botdock/botdock/internal"
)

// fakeStore is an in-memory Store for orchestrator tests.
type fakeStore struct {
	mu      sync.Mutex
	bots    map[string]internal.Bot
	envVars map[string]map[string]string
	history []internal.StatusSample
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bots:    make(map[string]internal.Bot),
		envVars: make(map[string]map[string]string),
	}
}

func (s *fakeStore) CreateBot(ctx context.Context, b internal.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bots[b.ID]; ok {
		return errors.New("bot already exists")
	}
	s.bots[b.ID] = b
	return nil
}

func (s *fakeStore) GetBot(ctx context.Context, id string) (internal.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return internal.Bot{}, internal.NotFoundError{ID: id}
	}
	return b, nil
}

func (s *fakeStore) ListBots(ctx context.Context) ([]internal.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]internal.Bot, 0, len(s.bots))
	for _, b := range s.bots {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpdateBot(ctx context.Context, b internal.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bots[b.ID]; !ok {
		return internal.NotFoundError{ID: b.ID}
	}
	s.bots[b.ID] = b
	return nil
}

func (s *fakeStore) SetBotStatus(ctx context.Context, id string, status internal.BotStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return internal.NotFoundError{ID: id}
	}
	b.Status = status
	s.bots[id] = b
	return nil
}

func (s *fakeStore) DeleteBot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bots, id)
	delete(s.envVars, id)
	return nil
}

func (s *fakeStore) AppendStatusHistory(ctx context.Context, botID string, status internal.BotStatus, cpu, mem *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.history = append(s.history, internal.StatusSample{
		ID:         s.nextID,
		BotID:      botID,
		Status:     status,
		CPUPercent: cpu,
		MemoryMB:   mem,
		RecordedAt: time.Now().UTC(),
	})
	return nil
}

func (s *fakeStore) ListStatusHistory(ctx context.Context, botID string, since time.Time) ([]internal.StatusSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []internal.StatusSample
	for _, sample := range s.history {
		if sample.BotID == botID && !sample.RecordedAt.Before(since) {
			out = append(out, sample)
		}
	}
	return out, nil
}

func (s *fakeStore) GetEnvVars(ctx context.Context, botID string) ([]internal.EnvVar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []internal.EnvVar
	for key, value := range s.envVars[botID] {
		out = append(out, internal.EnvVar{BotID: botID, Key: key, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *fakeStore) UpsertEnvVar(ctx context.Context, v internal.EnvVar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.envVars[v.BotID] == nil {
		s.envVars[v.BotID] = make(map[string]string)
	}
	s.envVars[v.BotID][v.Key] = v.Value
	return nil
}

func (s *fakeStore) DeleteEnvVar(ctx context.Context, botID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.envVars[botID], key)
	return nil
}

// appendSample records a history row with an explicit timestamp, for tests
// exercising windowed aggregation.
func (s *fakeStore) appendSample(sample internal.StatusSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sample.ID = s.nextID
	s.history = append(s.history, sample)
}

// bot returns the current record, panicking if absent; for assertions only.
func (s *fakeStore) bot(id string) internal.Bot {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		panic(fmt.Sprintf("bot %q not in fake store", id))
	}
	return b
}

func (s *fakeStore) historyFor(botID string) []internal.StatusSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []internal.StatusSample
	for _, sample := range s.history {
		if sample.BotID == botID {
			out = append(out, sample)
		}
	}
	return out
}

// fakeRuntime is a func-field Runtime fake. Unset funcs succeed with zero
// values; counters track how often each operation ran.
type fakeRuntime struct {
	mu sync.Mutex

	createFunc  func(ctx context.Context, spec internal.ContainerSpec) (string, error)
	startFunc   func(ctx context.Context, containerID string) error
	stopFunc    func(ctx context.Context, containerID string, graceSeconds int) error
	restartFunc func(ctx context.Context, containerID string, graceSeconds int) error
	removeFunc  func(ctx context.Context, containerID string) error
	statusFunc  func(ctx context.Context, containerID string) (internal.ContainerState, error)
	statsFunc   func(ctx context.Context, containerID string) (internal.ContainerStats, bool)
	streamFunc  func(ctx context.Context, containerID string, onLine func(string), onError func(error)) func()

	creates  int
	starts   int
	stops    int
	restarts int
	removes  int

	createdSpecs []internal.ContainerSpec
	removedIDs   []string
}

func (r *fakeRuntime) CreateContainer(ctx context.Context, spec internal.ContainerSpec) (string, error) {
	r.mu.Lock()
	r.creates++
	n := r.creates
	r.createdSpecs = append(r.createdSpecs, spec)
	fn := r.createFunc
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, spec)
	}
	return fmt.Sprintf("container-%d", n), nil
}

func (r *fakeRuntime) StartContainer(ctx context.Context, containerID string) error {
	r.mu.Lock()
	r.starts++
	fn := r.startFunc
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, containerID)
	}
	return nil
}

func (r *fakeRuntime) StopContainer(ctx context.Context, containerID string, graceSeconds int) error {
	r.mu.Lock()
	r.stops++
	fn := r.stopFunc
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, containerID, graceSeconds)
	}
	return nil
}

func (r *fakeRuntime) RestartContainer(ctx context.Context, containerID string, graceSeconds int) error {
	r.mu.Lock()
	r.restarts++
	fn := r.restartFunc
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, containerID, graceSeconds)
	}
	return nil
}

func (r *fakeRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	r.mu.Lock()
	r.removes++
	r.removedIDs = append(r.removedIDs, containerID)
	fn := r.removeFunc
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, containerID)
	}
	return nil
}

func (r *fakeRuntime) ContainerStatus(ctx context.Context, containerID string) (internal.ContainerState, error) {
	if r.statusFunc != nil {
		return r.statusFunc(ctx, containerID)
	}
	return internal.StateUnknown, nil
}

func (r *fakeRuntime) ContainerStats(ctx context.Context, containerID string) (internal.ContainerStats, bool) {
	if r.statsFunc != nil {
		return r.statsFunc(ctx, containerID)
	}
	return internal.ContainerStats{}, false
}

func (r *fakeRuntime) StreamLogs(ctx context.Context, containerID string, onLine func(string), onError func(error)) func() {
	if r.streamFunc != nil {
		return r.streamFunc(ctx, containerID, onLine, onError)
	}
	return func() {}
}

func (r *fakeRuntime) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

func (r *fakeRuntime) lastSpec() internal.ContainerSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.createdSpecs) == 0 {
		panic("no container was created")
	}
	return r.createdSpecs[len(r.createdSpecs)-1]
}

// fakeCipher is a reversible stand-in for AEAD encryption.
type fakeCipher struct{}

func (fakeCipher) Encrypt(plaintext string) (string, error) {
	return "enc(" + plaintext + ")", nil
}

func (fakeCipher) Decrypt(ciphertext string) (string, error) {
	inner, ok := strings.CutPrefix(ciphertext, "enc(")
	if !ok || !strings.HasSuffix(inner, ")") {
		return "", errors.New("not a fake ciphertext")
	}
	return strings.TrimSuffix(inner, ")"), nil
}

// fakeNotifier records every dispatched event kind.
type fakeNotifier struct {
	mu     sync.Mutex
	events []internal.EventKind
}

func (n *fakeNotifier) Notify(kind internal.EventKind, bot internal.BotSummary, message string, details map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind)
}

func (n *fakeNotifier) kinds() []internal.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]internal.EventKind(nil), n.events...)
}
