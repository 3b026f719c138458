// Package main runs the bridge webhook server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nucleus/bridge-core/internal/audit"
	"github.com/nucleus/bridge-core/internal/bridge"
	"github.com/nucleus/bridge-core/internal/config"
	"github.com/nucleus/bridge-core/internal/connector/jira"
	"github.com/nucleus/bridge-core/internal/connector/shotgun"
	"github.com/nucleus/bridge-core/internal/gateway"
)

func main() {
	settingsPath := flag.String("settings", "", "path to the YAML settings file")
	flag.Parse()

	if err := run(*settingsPath); err != nil {
		fmt.Fprintln(os.Stderr, "bridge-server:", err)
		os.Exit(1)
	}
}

func run(settingsPath string) error {
	settings, err := config.Load(settingsPath)
	if err != nil {
		return err
	}
	logger := newLogger(settings.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sg, err := shotgun.New(&shotgun.Config{
		BaseURL:    settings.Shotgun.BaseURL,
		ScriptName: settings.Shotgun.ScriptName,
		ScriptKey:  settings.Shotgun.ScriptKey,
		RateLimit:  settings.Shotgun.RateLimit,
	}, logger)
	if err != nil {
		return err
	}

	j, err := jira.New(&jira.Config{
		BaseURL:          settings.Jira.BaseURL,
		Email:            settings.Jira.Email,
		APIToken:         settings.Jira.APIToken,
		RateLimit:        settings.Jira.RateLimit,
		ShotgunIDField:   settings.Jira.ShotgunIDField,
		ShotgunTypeField: settings.Jira.ShotgunTypeField,
		ShotgunURLField:  settings.Jira.ShotgunURLField,
	}, logger)
	if err != nil {
		return err
	}

	opts := []bridge.Option{bridge.WithLogger(logger)}
	if settings.Jira.ProjectID != "" || settings.Jira.ProjectKey != "" {
		opts = append(opts, bridge.WithJiraProject(&jira.Project{
			ID:  settings.Jira.ProjectID,
			Key: settings.Jira.ProjectKey,
		}))
	}
	if settings.Audit.DatabaseURL != "" {
		store, err := audit.Open(ctx, settings.Audit.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, bridge.WithAudit(store))
	}

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	server := gateway.NewServer(addr, logger)
	if err := server.Register("task", bridge.NewTaskIssueHandler(sg, j, opts...)); err != nil {
		return err
	}
	return server.Run(ctx)
}

func newLogger(settings config.LoggingSettings) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(settings.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(settings.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, options))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, options))
}
