package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"

	"github.com/botdock/botdock/internal"
)

// CodeMountPath is the fixed path inside every bot container where the
// bot's code directory is bind mounted.
const CodeMountPath = "/bot"

// ManagedLabel marks containers created by this control plane so that
// foreign containers are never touched.
const ManagedLabel = "botdock.managed"

// BotIDLabel records the owning bot's identifier on its container.
const BotIDLabel = "botdock.bot.id"

type Client struct {
	client      DockerClient
	callTimeout time.Duration
}

// NewClient creates a Client that wraps the provided Docker client
// interface. Engine calls are bounded by internal.DefaultCallTimeout; stop
// and restart extend the bound by their grace period.
func NewClient(dockerClient DockerClient) Client {
	return Client{
		client:      dockerClient,
		callTimeout: internal.DefaultCallTimeout,
	}
}

// NewDefaultClient creates a Client with a real Docker client from the environment.
func NewDefaultClient() (Client, error) {
	cli, err := client.New(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return Client{}, fmt.Errorf("failed to create docker client: %w\nEnsure Docker is running and DOCKER_HOST is set correctly", err)
	}

	return NewClient(cli), nil
}

// Close closes the underlying Docker client connection.
func (c Client) Close() {
	c.client.Close()
}

// Ping pings the Docker daemon and returns the API version if successful.
func (c Client) Ping(ctx context.Context) (string, error) {
	ctx, cancel := c.bound(ctx, 0)
	defer cancel()

	ping, err := c.client.Ping(ctx, client.PingOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to ping docker daemon: %w", err)
	}
	return ping.APIVersion, nil
}

// CreateContainer creates a container for the given spec and returns its
// engine identifier. The bot's code directory is bind mounted read-write at
// CodeMountPath, memory and CPU limits are applied from the spec, and the
// restart policy follows the spec's auto-restart flag. If the image is
// absent it is pulled first; pull failure is returned as
// internal.ImagePullError.
func (c Client) CreateContainer(ctx context.Context, spec internal.ContainerSpec) (string, error) {
	id, err := c.createContainer(ctx, spec)
	if err == nil {
		return id, nil
	}
	if !cerrdefs.IsNotFound(err) {
		return "", internal.RuntimeError{Op: "create", Err: err}
	}

	// Image not present locally.
	if err := c.pullImage(ctx, spec.Image); err != nil {
		return "", err
	}

	id, err = c.createContainer(ctx, spec)
	if err != nil {
		return "", internal.RuntimeError{Op: "create", Err: err}
	}
	return id, nil
}

func (c Client) createContainer(ctx context.Context, spec internal.ContainerSpec) (string, error) {
	ctx, cancel := c.bound(ctx, 0)
	defer cancel()

	labels := map[string]string{ManagedLabel: "true"}
	for key, value := range spec.Labels {
		labels[key] = value
	}

	memoryBytes := spec.MemoryMB * 1024 * 1024
	restartPolicy := container.RestartPolicy{Name: container.RestartPolicyDisabled}
	if spec.AutoRestart {
		restartPolicy = container.RestartPolicy{Name: container.RestartPolicyUnlessStopped}
	}

	response, err := c.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config: &container.Config{
			Image:      spec.Image,
			Cmd:        spec.Command,
			Env:        spec.Env,
			WorkingDir: CodeMountPath,
			Labels:     labels,
		},
		HostConfig: &container.HostConfig{
			Binds: []string{
				fmt.Sprintf("%s:%s", ToEnginePath(spec.CodeDir), CodeMountPath),
			},
			RestartPolicy: restartPolicy,
			Resources: container.Resources{
				Memory:     memoryBytes,
				MemorySwap: memoryBytes * 2,
				NanoCPUs:   int64(spec.CPUCores * 1e9),
			},
		},
		Name: spec.Name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create container %q from image %q: %w\nEnsure the container name is free and the config is valid", spec.Name, spec.Image, err)
	}

	return response.ID, nil
}

// pullImage pulls the image and drains the progress stream, surfacing any
// error the registry reports mid-stream.
func (c Client) pullImage(ctx context.Context, image string) error {
	response, err := c.client.ImagePull(ctx, image, client.ImagePullOptions{})
	if err != nil {
		return internal.ImagePullError{Image: image, Err: err}
	}

	// JSONMessages closes the stream when the iteration ends.
	for message, err := range response.JSONMessages(ctx) {
		if err != nil {
			return internal.ImagePullError{Image: image, Err: fmt.Errorf("failed to decode pull output: %w", err)}
		}
		if message.Error != nil {
			return internal.ImagePullError{Image: image, Err: message.Error}
		}
	}

	return nil
}

// StartContainer starts the container.
func (c Client) StartContainer(ctx context.Context, containerID string) error {
	ctx, cancel := c.bound(ctx, 0)
	defer cancel()

	_, err := c.client.ContainerStart(ctx, containerID, client.ContainerStartOptions{})
	if err != nil {
		return internal.RuntimeError{Op: "start", Err: fmt.Errorf("failed to start container %q: %w\nContainer may be misconfigured or Docker daemon may be unhealthy", containerID, err)}
	}

	return nil
}

// StopContainer stops the container, giving the process graceSeconds to
// exit before the engine kills it. Stopping an already-stopped or absent
// container is a no-op, not an error.
func (c Client) StopContainer(ctx context.Context, containerID string, graceSeconds int) error {
	ctx, cancel := c.bound(ctx, time.Duration(graceSeconds)*time.Second)
	defer cancel()

	_, err := c.client.ContainerStop(ctx, containerID, client.ContainerStopOptions{Timeout: &graceSeconds})
	if err != nil {
		if cerrdefs.IsNotFound(err) || cerrdefs.IsConflict(err) {
			return nil
		}
		return internal.RuntimeError{Op: "stop", Err: fmt.Errorf("failed to stop container %q: %w", containerID, err)}
	}

	return nil
}

// RestartContainer restarts the container in place, preserving its identity
// and bind mounts.
func (c Client) RestartContainer(ctx context.Context, containerID string, graceSeconds int) error {
	ctx, cancel := c.bound(ctx, time.Duration(graceSeconds)*time.Second)
	defer cancel()

	_, err := c.client.ContainerRestart(ctx, containerID, client.ContainerRestartOptions{Timeout: &graceSeconds})
	if err != nil {
		return internal.RuntimeError{Op: "restart", Err: fmt.Errorf("failed to restart container %q: %w", containerID, err)}
	}

	return nil
}

// RemoveContainer forcibly removes the container. Removing an absent
// container is a no-op, not an error.
func (c Client) RemoveContainer(ctx context.Context, containerID string) error {
	ctx, cancel := c.bound(ctx, 0)
	defer cancel()

	_, err := c.client.ContainerRemove(ctx, containerID, client.ContainerRemoveOptions{
		Force: true,
	})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil
		}
		return internal.RuntimeError{Op: "remove", Err: fmt.Errorf("failed to remove container %q: %w", containerID, err)}
	}

	return nil
}

// ContainerStatus returns the engine-observed state of the container.
// A container that no longer exists reports internal.StateUnknown with a
// nil error.
func (c Client) ContainerStatus(ctx context.Context, containerID string) (internal.ContainerState, error) {
	ctx, cancel := c.bound(ctx, 0)
	defer cancel()

	response, err := c.client.ContainerInspect(ctx, containerID, client.ContainerInspectOptions{})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return internal.StateUnknown, nil
		}
		return internal.StateUnknown, internal.RuntimeError{Op: "inspect", Err: fmt.Errorf("failed to inspect container %q: %w", containerID, err)}
	}

	state := response.Container.State
	if state == nil {
		return internal.StateUnknown, nil
	}
	if state.Running {
		return internal.StateRunning, nil
	}
	switch string(state.Status) {
	case "created":
		return internal.StateCreated, nil
	case "exited", "dead":
		return internal.StateExited, nil
	default:
		return internal.StateUnknown, nil
	}
}

// ContainerStats samples the container's resource usage once. It reports
// ok=false on any retrieval or decode failure rather than propagating an
// error; a stats call racing a container teardown is expected to fail soft.
func (c Client) ContainerStats(ctx context.Context, containerID string) (internal.ContainerStats, bool) {
	ctx, cancel := c.bound(ctx, 0)
	defer cancel()

	response, err := c.client.ContainerStats(ctx, containerID, client.ContainerStatsOptions{})
	if err != nil {
		return internal.ContainerStats{}, false
	}
	defer response.Body.Close()

	var stats container.StatsResponse
	if err := json.NewDecoder(response.Body).Decode(&stats); err != nil {
		return internal.ContainerStats{}, false
	}

	return internal.ContainerStats{
		CPUPercent:    CPUPercent(stats),
		MemoryUsageMB: float64(stats.MemoryStats.Usage) / (1024 * 1024),
		MemoryLimitMB: float64(stats.MemoryStats.Limit) / (1024 * 1024),
	}, true
}

// bound derives a context bounded by the client's call timeout plus any
// engine-side grace period, so a hung daemon connection cannot wedge a
// lifecycle operation.
func (c Client) bound(ctx context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout+grace)
}

// CPUPercent computes CPU usage from two consecutive usage samples and the
// system-wide CPU delta carried in a stats response:
//
//	(cpuDelta / systemDelta) * onlineCPUs * 100
//
// The result is clamped to zero when the system delta is not positive.
func CPUPercent(stats container.StatsResponse) float64 {
	cpuDelta := float64(stats.CPUStats.CPUUsage.TotalUsage) - float64(stats.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(stats.CPUStats.SystemUsage) - float64(stats.PreCPUStats.SystemUsage)

	online := float64(stats.CPUStats.OnlineCPUs)
	if online == 0 {
		online = float64(len(stats.CPUStats.CPUUsage.PercpuUsage))
	}

	if systemDelta <= 0 || cpuDelta < 0 {
		return 0
	}
	return (cpuDelta / systemDelta) * online * 100
}
