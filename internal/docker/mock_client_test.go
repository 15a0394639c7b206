package docker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/moby/moby/api/types/jsonstream"
	"github.com/moby/moby/client"
)

// mockDockerClient is a mock implementation of docker.DockerClient for testing
type mockDockerClient struct {
	imagePullFunc        func(ctx context.Context, refStr string, options client.ImagePullOptions) (client.ImagePullResponse, error)
	containerCreateFunc  func(ctx context.Context, options client.ContainerCreateOptions) (client.ContainerCreateResult, error)
	containerStartFunc   func(ctx context.Context, containerID string, options client.ContainerStartOptions) (client.ContainerStartResult, error)
	containerStopFunc    func(ctx context.Context, containerID string, options client.ContainerStopOptions) (client.ContainerStopResult, error)
	containerRestartFunc func(ctx context.Context, containerID string, options client.ContainerRestartOptions) (client.ContainerRestartResult, error)
	containerRemoveFunc  func(ctx context.Context, containerID string, options client.ContainerRemoveOptions) (client.ContainerRemoveResult, error)
	containerInspectFunc func(ctx context.Context, containerID string, options client.ContainerInspectOptions) (client.ContainerInspectResult, error)
	containerStatsFunc   func(ctx context.Context, containerID string, options client.ContainerStatsOptions) (client.ContainerStatsResult, error)
	containerLogsFunc    func(ctx context.Context, containerID string, options client.ContainerLogsOptions) (client.ContainerLogsResult, error)
	pingFunc             func(ctx context.Context, options client.PingOptions) (client.PingResult, error)
	closeFunc            func() error
}

func (m *mockDockerClient) ImagePull(ctx context.Context, refStr string, options client.ImagePullOptions) (client.ImagePullResponse, error) {
	if m.imagePullFunc != nil {
		return m.imagePullFunc(ctx, refStr, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDockerClient) ContainerCreate(ctx context.Context, options client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
	if m.containerCreateFunc != nil {
		return m.containerCreateFunc(ctx, options)
	}
	return client.ContainerCreateResult{}, errors.New("not implemented")
}

func (m *mockDockerClient) ContainerStart(ctx context.Context, containerID string, options client.ContainerStartOptions) (client.ContainerStartResult, error) {
	if m.containerStartFunc != nil {
		return m.containerStartFunc(ctx, containerID, options)
	}
	return client.ContainerStartResult{}, errors.New("not implemented")
}

func (m *mockDockerClient) ContainerStop(ctx context.Context, containerID string, options client.ContainerStopOptions) (client.ContainerStopResult, error) {
	if m.containerStopFunc != nil {
		return m.containerStopFunc(ctx, containerID, options)
	}
	return client.ContainerStopResult{}, errors.New("not implemented")
}

func (m *mockDockerClient) ContainerRestart(ctx context.Context, containerID string, options client.ContainerRestartOptions) (client.ContainerRestartResult, error) {
	if m.containerRestartFunc != nil {
		return m.containerRestartFunc(ctx, containerID, options)
	}
	return client.ContainerRestartResult{}, errors.New("not implemented")
}

func (m *mockDockerClient) ContainerRemove(ctx context.Context, containerID string, options client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
	if m.containerRemoveFunc != nil {
		return m.containerRemoveFunc(ctx, containerID, options)
	}
	return client.ContainerRemoveResult{}, errors.New("not implemented")
}

func (m *mockDockerClient) ContainerInspect(ctx context.Context, containerID string, options client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
	if m.containerInspectFunc != nil {
		return m.containerInspectFunc(ctx, containerID, options)
	}
	return client.ContainerInspectResult{}, errors.New("not implemented")
}

func (m *mockDockerClient) ContainerStats(ctx context.Context, containerID string, options client.ContainerStatsOptions) (client.ContainerStatsResult, error) {
	if m.containerStatsFunc != nil {
		return m.containerStatsFunc(ctx, containerID, options)
	}
	return client.ContainerStatsResult{}, errors.New("not implemented")
}

func (m *mockDockerClient) ContainerLogs(ctx context.Context, containerID string, options client.ContainerLogsOptions) (client.ContainerLogsResult, error) {
	if m.containerLogsFunc != nil {
		return m.containerLogsFunc(ctx, containerID, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDockerClient) Ping(ctx context.Context, options client.PingOptions) (client.PingResult, error) {
	if m.pingFunc != nil {
		return m.pingFunc(ctx, options)
	}
	return client.PingResult{}, errors.New("not implemented")
}

func (m *mockDockerClient) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

// body wraps a string in the io.ReadCloser shape streaming results carry.
func body(content string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(content))
}

// pullStream is a test implementation of client.ImagePullResponse backed by
// a fixed progress stream.
type pullStream struct {
	io.ReadCloser
}

func pullBody(content string) client.ImagePullResponse {
	return pullStream{ReadCloser: body(content)}
}

func (s pullStream) JSONMessages(ctx context.Context) iter.Seq2[jsonstream.Message, error] {
	decoder := json.NewDecoder(s)
	return func(yield func(jsonstream.Message, error) bool) {
		defer s.Close()
		for {
			var message jsonstream.Message
			err := decoder.Decode(&message)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(message, err) {
				return
			}
		}
	}
}

func (s pullStream) Wait(ctx context.Context) error {
	for _, err := range s.JSONMessages(ctx) {
		if err != nil {
			return err
		}
	}
	return nil
}
