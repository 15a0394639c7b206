package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/botdock/botdock/internal"
	"github.com/botdock/botdock/internal/docker"
	"github.com/botdock/botdock/internal/notify"
	"github.com/botdock/botdock/internal/orchestrator"
	"github.com/botdock/botdock/internal/secrets"
	"github.com/botdock/botdock/internal/store"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("panic occurred: %v", r)
			os.Exit(1)
		}
	}()

	// Missing .env is fine; the environment may carry everything already.
	_ = godotenv.Load()

	if err := run(os.Args, os.Environ()); err != nil {
		logrus.Fatal(err)
	}
}

func run(args, env []string) error {
	cleanupMgr := internal.NewCleanupManager()
	defer cleanupMgr.Execute()

	config, err := internal.ParseConfig(args[1:], env)
	if err != nil {
		return err
	}
	configureLogging(config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	box, err := secrets.NewBoxFromString(config.MasterKey)
	if err != nil {
		return fmt.Errorf("failed to load master key: %w\nSet BOTDOCK_MASTER_KEY to a base64- or hex-encoded 32-byte key", err)
	}

	if err := os.MkdirAll(filepath.Dir(config.DatabasePath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := store.Open(config.DatabasePath)
	if err != nil {
		return err
	}
	cleanupMgr.Add("store", db.Close)

	client, err := docker.NewDefaultClient()
	if err != nil {
		return fmt.Errorf("failed to create docker client: %w\nMake sure Docker is installed and running (try 'docker ps')", err)
	}
	cleanupMgr.Add("docker-client", func() error {
		client.Close()
		return nil
	})

	apiVersion, err := client.Ping(ctx)
	if err != nil {
		return err
	}
	logrus.WithField("api_version", apiVersion).Info("connected to docker daemon")

	notifier := notify.NewWebhook(config.WebhookURL)
	cleanupMgr.Add("notifier", func() error {
		notifier.Close()
		return nil
	})

	orch := orchestrator.New(db, client, box, notifier, orchestrator.Options{
		DataDir:           config.DataDir,
		StopTimeout:       config.StopTimeout,
		ReconcileInterval: config.ReconcileInterval,
		PythonImage:       config.PythonImage,
		NodeImage:         config.NodeImage,
	})
	orch.Start()
	cleanupMgr.Add("orchestrator", func() error {
		orch.Close()
		return nil
	})

	logrus.WithFields(logrus.Fields{
		"db":        config.DatabasePath,
		"data_dir":  config.DataDir,
		"reconcile": config.ReconcileInterval.String(),
	}).Info("botdockd running")

	// The HTTP and WebSocket layers mount on the orchestrator here; the
	// daemon itself just holds the subsystem up until a signal arrives.
	<-ctx.Done()
	logrus.Info("shutting down")
	return nil
}

func configureLogging(config internal.Config) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if config.LogFile == "" {
		return
	}
	fileWriter := &lumberjack.Logger{
		Filename:   config.LogFile,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
}
