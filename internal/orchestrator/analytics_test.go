package orchestrator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/botdock/botdock/internal"
	"github.com/botdock/botdock/internal/orchestrator"
)

func TestComputeUsage(t *testing.T) {
	to := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	from := to.Add(-time.Hour)
	at := func(ago time.Duration, status internal.BotStatus, cpu, mem *float64) internal.StatusSample {
		return internal.StatusSample{Status: status, CPUPercent: cpu, MemoryMB: mem, RecordedAt: to.Add(-ago)}
	}
	f := func(v float64) *float64 { return &v }

	t.Run("empty history yields zeroes", func(t *testing.T) {
		usage := orchestrator.ComputeUsage(nil, from, to)
		assert.Equal(t, orchestrator.Usage{}, usage)
	})

	t.Run("uptime is running time over the window length", func(t *testing.T) {
		usage := orchestrator.ComputeUsage([]internal.StatusSample{
			at(45*time.Minute, internal.StatusRunning, nil, nil),
			at(15*time.Minute, internal.StatusStopped, nil, nil),
		}, from, to)

		// Running from -45m to -15m: 30 of 60 minutes.
		assert.Equal(t, 2, usage.Samples)
		assert.InDelta(t, 50.0, usage.UptimePercent, 0.001)
	})

	t.Run("a single recent sample counts only its own interval", func(t *testing.T) {
		usage := orchestrator.ComputeUsage([]internal.StatusSample{
			at(5*time.Minute, internal.StatusRunning, nil, nil),
		}, from, to)

		// Running for the trailing 5 of 60 minutes, not 100%.
		assert.InDelta(t, 100.0/12, usage.UptimePercent, 0.001)
	})

	t.Run("a still-running bot counts up to the window end", func(t *testing.T) {
		usage := orchestrator.ComputeUsage([]internal.StatusSample{
			at(70*time.Minute, internal.StatusRunning, nil, nil),
		}, from, to)

		// The interval started before the window; it is clipped to it.
		assert.InDelta(t, 100.0, usage.UptimePercent, 0.001)
	})

	t.Run("non-running intervals contribute nothing", func(t *testing.T) {
		usage := orchestrator.ComputeUsage([]internal.StatusSample{
			at(50*time.Minute, internal.StatusError, nil, nil),
			at(40*time.Minute, internal.StatusRunning, nil, nil),
			at(10*time.Minute, internal.StatusStopped, nil, nil),
		}, from, to)

		// Running from -40m to -10m only.
		assert.InDelta(t, 50.0, usage.UptimePercent, 0.001)
	})

	t.Run("averages cover only samples with values", func(t *testing.T) {
		usage := orchestrator.ComputeUsage([]internal.StatusSample{
			at(30*time.Minute, internal.StatusRunning, f(10), f(100)),
			at(20*time.Minute, internal.StatusRunning, f(30), nil),
			at(10*time.Minute, internal.StatusStopped, nil, nil),
		}, from, to)
		assert.InDelta(t, 20.0, usage.AvgCPUPercent, 0.001)
		assert.InDelta(t, 100.0, usage.AvgMemoryMB, 0.001)
	})

	t.Run("all samples without values average to zero", func(t *testing.T) {
		usage := orchestrator.ComputeUsage([]internal.StatusSample{
			at(30*time.Minute, internal.StatusRunning, nil, nil),
		}, from, to)
		assert.Zero(t, usage.AvgCPUPercent)
		assert.Zero(t, usage.AvgMemoryMB)
	})

	t.Run("an empty window yields zeroes", func(t *testing.T) {
		usage := orchestrator.ComputeUsage([]internal.StatusSample{
			at(30*time.Minute, internal.StatusRunning, nil, nil),
		}, to, to)
		assert.Zero(t, usage.UptimePercent)
	})
}
