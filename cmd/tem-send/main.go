// Package main is the entry point for the tem-send command.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shineum/scaleway-tem/internal/config"
	"github.com/shineum/scaleway-tem/internal/provider"
	"github.com/shineum/scaleway-tem/internal/provider/graph"
	"github.com/shineum/scaleway-tem/internal/provider/ses"
	"github.com/shineum/scaleway-tem/internal/provider/stdout"
	"github.com/shineum/scaleway-tem/tem"
)

func main() {
	var opts messageOptions

	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.StringVar(&opts.emlPath, "eml", "", "send a raw RFC 5322 message file instead of building one from flags")
	flag.StringVar(&opts.from, "from", "", "sender address (defaults to sender.email from configuration)")
	flag.StringVar(&opts.fromName, "from-name", "", "sender display name")
	flag.Var(&opts.to, "to", "recipient, \"addr\" or \"Name <addr>\" (repeatable)")
	flag.StringVar(&opts.subject, "subject", "", "message subject")
	flag.StringVar(&opts.text, "text", "", "plain text body")
	flag.StringVar(&opts.html, "html", "", "HTML body")
	flag.Var(&opts.attachments, "attach", "path of a file to attach (repeatable)")
	flag.Var(&opts.headers, "header", "additional header, \"Key: Value\" (repeatable)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging; stdout carries the result
	setupLogger(os.Stderr, cfg.Logging.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	prov, err := selectProvider(ctx, cfg)
	if err != nil {
		slog.Error("failed to select provider", "error", err)
		os.Exit(1)
	}

	msg, err := buildMessage(cfg, opts)
	if err != nil {
		slog.Error("failed to build message", "error", err)
		os.Exit(1)
	}

	slog.Info("sending message",
		"provider", prov.Name(),
		"recipients", len(msg.To()),
		"attachments", len(msg.Attachments()),
	)

	res, err := prov.Send(ctx, msg)
	if err != nil {
		var remoteErr *tem.RemoteError
		if errors.As(err, &remoteErr) {
			_ = printJSON(os.Stdout, remoteErr)
		}
		slog.Error("send failed", "provider", prov.Name(), "error", err)
		os.Exit(1)
	}

	if err := printJSON(os.Stdout, res); err != nil {
		slog.Error("failed to print result", "error", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(w io.Writer, level string) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// selectProvider chooses the delivery backend based on configuration.
// An explicit provider name takes precedence; otherwise the first configured
// of Scaleway, Graph and SES is used, falling back to stdout.
func selectProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider {
	case "scaleway":
		if !cfg.ScalewayConfigured() {
			return nil, errors.New("scaleway provider selected but TEM_PROJECT_ID and TEM_SECRET_KEY are required")
		}
		return newScaleway(cfg)

	case "graph", "msgraph":
		if !cfg.GraphConfigured() {
			return nil, errors.New("graph provider selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID and GRAPH_CLIENT_SECRET are required")
		}
		return newGraph(ctx, cfg), nil

	case "ses":
		if !cfg.SESConfigured() {
			return nil, errors.New("ses provider selected but SES_REGION is required")
		}
		return newSES(ctx, cfg)

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.New(), nil

	case "":
		if cfg.ScalewayConfigured() {
			slog.Info("using Scaleway provider (auto-detected)")
			return newScaleway(cfg)
		}
		if cfg.GraphConfigured() {
			slog.Info("using Microsoft Graph provider (auto-detected)")
			return newGraph(ctx, cfg), nil
		}
		if cfg.SESConfigured() {
			slog.Info("using AWS SES provider (auto-detected)")
			return newSES(ctx, cfg)
		}
		slog.Info("no provider configured, using stdout provider")
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newScaleway(cfg *config.Config) (provider.Provider, error) {
	client, err := tem.New(cfg.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Scaleway client: %w", err)
	}
	slog.Info("using Scaleway provider",
		"region", client.Region(),
		"endpoint", client.Endpoint(),
	)
	return client, nil
}

func newGraph(ctx context.Context, cfg *config.Config) provider.Provider {
	slog.Info("using Microsoft Graph provider", "tenant_id", cfg.Graph.TenantID)
	return graph.New(ctx, graph.GraphProviderConfig{
		TenantID:     cfg.Graph.TenantID,
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
	})
}

func newSES(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	p, err := ses.New(ctx, ses.SESProviderConfig{
		Region:          cfg.SES.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SES provider: %w", err)
	}
	slog.Info("using AWS SES provider", "region", cfg.SES.Region)
	return p, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
