package internal

import (
	"flag"
	"fmt"
	"time"
)

const (
	// DefaultStopTimeout is the grace period in seconds for stopping a
	// container before the engine kills it. 10 seconds is enough for most
	// bot processes to handle SIGTERM and flush state.
	DefaultStopTimeout = 10

	// DefaultReconcileInterval is how often the status reconciler samples
	// resource usage for running bots.
	DefaultReconcileInterval = 5 * time.Minute

	// DefaultCallTimeout bounds individual container engine calls. The
	// engine enforces its own grace periods for stop and restart; this
	// guard exists so a hung daemon connection surfaces as an error
	// instead of wedging a lifecycle operation forever.
	DefaultCallTimeout = 60 * time.Second

	// DefaultLogTail is how many buffered lines a new log subscription
	// replays before following live output.
	DefaultLogTail = 50
)

type Config struct {
	DatabasePath      string
	DataDir           string
	LogFile           string
	WebhookURL        string
	MasterKey         string
	ReconcileInterval time.Duration
	StopTimeout       int
	CallTimeout       time.Duration

	PythonImage string
	NodeImage   string
}

// ParseConfig parses command-line arguments and environment variables into
// the daemon configuration. Flags take precedence over environment
// variables. The master key and webhook URL are environment-only since they
// carry secrets. A malformed or unknown flag is an error; a daemon must not
// come up on silently-applied defaults.
func ParseConfig(args []string, environment []string) (Config, error) {
	lookup := make(map[string]string)
	for _, variable := range environment {
		for i := 0; i < len(variable); i++ {
			if variable[i] == '=' {
				lookup[variable[:i]] = variable[i+1:]
				break
			}
		}
	}

	envOr := func(key, fallback string) string {
		if value, ok := lookup[key]; ok && value != "" {
			return value
		}
		return fallback
	}

	var (
		databasePath      string
		dataDir           string
		logFile           string
		reconcileInterval time.Duration
		stopTimeout       int
	)

	fs := flag.NewFlagSet("botdockd", flag.ContinueOnError)
	fs.StringVar(&databasePath, "db", envOr("BOTDOCK_DB", "data/botdock.db"), "path to the sqlite database")
	fs.StringVar(&dataDir, "data-dir", envOr("BOTDOCK_DATA_DIR", "data/bots"), "directory holding per-bot code directories")
	fs.StringVar(&logFile, "log-file", envOr("BOTDOCK_LOG_FILE", ""), "daemon log file (empty for stdout only)")
	fs.DurationVar(&reconcileInterval, "reconcile-interval", DefaultReconcileInterval, "interval between resource usage sweeps")
	fs.IntVar(&stopTimeout, "stop-timeout", DefaultStopTimeout, "container stop grace period in seconds")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("failed to parse arguments: %w", err)
	}

	return Config{
		DatabasePath:      databasePath,
		DataDir:           dataDir,
		LogFile:           logFile,
		WebhookURL:        lookup["BOTDOCK_WEBHOOK_URL"],
		MasterKey:         lookup["BOTDOCK_MASTER_KEY"],
		ReconcileInterval: reconcileInterval,
		StopTimeout:       stopTimeout,
		CallTimeout:       DefaultCallTimeout,
		PythonImage:       envOr("BOTDOCK_PYTHON_IMAGE", "python:3.12-slim"),
		NodeImage:         envOr("BOTDOCK_NODE_IMAGE", "node:22-alpine"),
	}, nil
}
