package internal

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by start when the bot is already RUNNING.
// The bot's state is unchanged.
var ErrAlreadyRunning = errors.New("bot is already running")

// ErrNoContainer is returned by operations that require a live container
// when the bot record has none.
var ErrNoContainer = errors.New("bot has no container")

// NotFoundError indicates that a bot record does not exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("bot %q not found", e.ID)
}

// ImagePullError indicates that the image required by a bot's runtime could
// not be pulled from the registry.
type ImagePullError struct {
	Image string
	Err   error
}

func (e ImagePullError) Error() string {
	return fmt.Sprintf("failed to pull image %q: %v\nCheck registry connectivity and that the image name is valid", e.Image, e.Err)
}

func (e ImagePullError) Unwrap() error {
	return e.Err
}

// RuntimeError indicates a container engine communication failure. "Not
// found" conditions are never wrapped in a RuntimeError; they are normalized
// to idempotent no-ops or an unknown state by the docker package.
type RuntimeError struct {
	Op  string
	Err error
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("container engine error during %s: %v", e.Op, e.Err)
}

func (e RuntimeError) Unwrap() error {
	return e.Err
}
