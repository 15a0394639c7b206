package orchestrator_test

import (
	"github.com/botdock/botdock/internal/docker"
	"github.com/botdock/botdock/internal/notify"
	"github.com/botdock/botdock/internal/orchestrator"
	"github.com/botdock/botdock/internal/secrets"
	"github.com/botdock/botdock/internal/store"
)

// Compile-time checks that the production collaborators satisfy the
// orchestrator's contracts.
var (
	_ orchestrator.Runtime  = docker.Client{}
	_ orchestrator.Store    = (*store.Store)(nil)
	_ orchestrator.Cipher   = (*secrets.Box)(nil)
	_ orchestrator.Notifier = (*notify.Webhook)(nil)
)
