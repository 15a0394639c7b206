package docker

import (
	"context"

	"github.com/moby/moby/client"
)

// DockerClient is an interface that wraps the Docker API methods we use.
// This allows for dependency injection and testing with mocks.
//
// The real Docker client (*client.Client from moby/moby/client) implements
// this interface.
//
// Usage:
//
//	// Production code: use real Docker client
//	dockerClient, err := client.New(client.FromEnv, client.WithAPIVersionNegotiation())
//	if err != nil {
//	    return err
//	}
//	c := docker.NewClient(dockerClient)
//
//	// Or use the convenience function:
//	c, err := docker.NewDefaultClient()
//
//	// Test code: inject a mock
//	type mockDockerClient struct{}
//	func (m *mockDockerClient) ContainerCreate(...) { /* mock implementation */ }
//	// ... implement other methods ...
//	c := docker.NewClient(&mockDockerClient{})
type DockerClient interface {
	ImagePull(ctx context.Context, refStr string, options client.ImagePullOptions) (client.ImagePullResponse, error)
	ContainerCreate(ctx context.Context, options client.ContainerCreateOptions) (client.ContainerCreateResult, error)
	ContainerStart(ctx context.Context, containerID string, options client.ContainerStartOptions) (client.ContainerStartResult, error)
	ContainerStop(ctx context.Context, containerID string, options client.ContainerStopOptions) (client.ContainerStopResult, error)
	ContainerRestart(ctx context.Context, containerID string, options client.ContainerRestartOptions) (client.ContainerRestartResult, error)
	ContainerRemove(ctx context.Context, containerID string, options client.ContainerRemoveOptions) (client.ContainerRemoveResult, error)
	ContainerInspect(ctx context.Context, containerID string, options client.ContainerInspectOptions) (client.ContainerInspectResult, error)
	ContainerStats(ctx context.Context, containerID string, options client.ContainerStatsOptions) (client.ContainerStatsResult, error)
	ContainerLogs(ctx context.Context, containerID string, options client.ContainerLogsOptions) (client.ContainerLogsResult, error)
	Ping(ctx context.Context, options client.PingOptions) (client.PingResult, error)
	Close() error
}
