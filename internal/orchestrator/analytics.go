package orchestrator

import (
	"time"

	"github.com/botdock/botdock/internal"
)

// Usage summarizes a bot's status history over a window.
type Usage struct {
	UptimePercent float64
	AvgCPUPercent float64
	AvgMemoryMB   float64
	Samples       int
}

// ComputeUsage aggregates status samples recorded between from and to.
// Samples must be ordered oldest first, as the store returns them.
//
// Uptime is the summed duration of RUNNING intervals divided by the window
// length: each sample's status holds from its timestamp until the next
// sample (or the end of the window), clipped to [from, to]. Time before the
// first sample counts as not running. Resource averages cover only samples
// that carried a value. The history is read-only input; nothing here writes
// back.
func ComputeUsage(samples []internal.StatusSample, from, to time.Time) Usage {
	usage := Usage{Samples: len(samples)}
	window := to.Sub(from)
	if len(samples) == 0 || window <= 0 {
		return usage
	}

	var running time.Duration
	var cpuCount, memCount int
	var cpuSum, memSum float64
	for i, sample := range samples {
		if sample.CPUPercent != nil {
			cpuSum += *sample.CPUPercent
			cpuCount++
		}
		if sample.MemoryMB != nil {
			memSum += *sample.MemoryMB
			memCount++
		}

		if sample.Status != internal.StatusRunning {
			continue
		}

		start := sample.RecordedAt
		if start.Before(from) {
			start = from
		}
		end := to
		if i+1 < len(samples) && samples[i+1].RecordedAt.Before(to) {
			end = samples[i+1].RecordedAt
		}
		if end.After(start) {
			running += end.Sub(start)
		}
	}

	usage.UptimePercent = float64(running) / float64(window) * 100
	if cpuCount > 0 {
		usage.AvgCPUPercent = cpuSum / float64(cpuCount)
	}
	if memCount > 0 {
		usage.AvgMemoryMB = memSum / float64(memCount)
	}
	return usage
}
