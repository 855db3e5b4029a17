// Command youtube-tools is an MCP server that downloads, caches, and
// transcribes YouTube media. It speaks MCP over stdio by default and can
// serve the same catalog over HTTP with a token-gated file gateway.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/amotivv/youtube-tools-llm-context/cache"
	"github.com/amotivv/youtube-tools-llm-context/download"
	"github.com/amotivv/youtube-tools-llm-context/media"
	"github.com/amotivv/youtube-tools-llm-context/router"
	"github.com/amotivv/youtube-tools-llm-context/server"
	"github.com/amotivv/youtube-tools-llm-context/telemetry"
	"github.com/amotivv/youtube-tools-llm-context/token"
	"github.com/amotivv/youtube-tools-llm-context/transcribe"
)

type cli struct {
	HTTP    bool   `help:"Serve the HTTP transport instead of stdio." env:"HTTP_MODE"`
	Address string `help:"Address to listen on in HTTP mode." default:":9000" env:"ADDRESS"`
	BaseURL string `help:"Externally reachable URL for file links (default: http://localhost<address>)." env:"BASE_URL"`

	CacheDir      string        `help:"Cache directory." default:"./cache" env:"CACHE_DIR"`
	TempDir       string        `help:"Working directory for in-flight downloads (default: system temp)." env:"TEMP_DIR"`
	Retention     time.Duration `help:"How long cached files are retained." default:"168h" env:"CACHE_RETENTION"`
	SweepInterval time.Duration `help:"How often expired files are swept." default:"1h" env:"SWEEP_INTERVAL"`

	TokenSecret string        `help:"Secret for signing file access tokens (random per process when empty)." env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `help:"Validity window for file access tokens." default:"15m" env:"TOKEN_TTL"`
	APIKey      string        `help:"Bearer key required on HTTP MCP endpoints (open when empty)." env:"MCP_API_KEY"`

	AssemblyAIKey string `help:"AssemblyAI API key; transcription is disabled when empty." env:"ASSEMBLYAI_API_KEY"`
	YtDlp         string `help:"Path to the yt-dlp binary." default:"yt-dlp" env:"YTDLP_PATH"`

	OTLPEndpoint     string `help:"OTLP gRPC endpoint for metrics export." env:"OTLP_ENDPOINT"`
	EnablePrometheus bool   `help:"Expose Prometheus metrics on /metrics in HTTP mode." env:"ENABLE_PROMETHEUS"`

	LogLevel  string `help:"Log level." default:"info" enum:"debug,info,warn,error" env:"LOG_LEVEL"`
	LogFormat string `help:"Log format." default:"text" enum:"text,json" env:"LOG_FORMAT"`
}

func main() {
	// Load .env before kong resolves env-tagged flags.
	_ = godotenv.Load()

	var flags cli
	kctx := kong.Parse(&flags,
		kong.Name("youtube-tools"),
		kong.Description("MCP server for downloading, caching, and transcribing YouTube media."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(run(flags))
}

func run(flags cli) error {
	logger, err := buildLogger(flags)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := telemetry.InitMetrics(ctx, telemetry.MetricsConfig{
		ServiceName:      server.ServerName,
		ServiceVersion:   server.ServerVersion,
		OTLPEndpoint:     flags.OTLPEndpoint,
		EnablePrometheus: flags.EnablePrometheus && flags.HTTP,
	})
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(flushCtx); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}()

	secret := []byte(flags.TokenSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generating token secret: %w", err)
		}
		logger.Warn("no token secret configured, using a random per-process secret",
			"hint", "file links will not survive a restart",
			"secret_b64", base64.StdEncoding.EncodeToString(secret)[:8]+"...")
	}

	tokens, err := token.New(secret, token.WithTTL(flags.TokenTTL))
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	store, err := cache.New(flags.CacheDir,
		cache.WithRetention(flags.Retention),
		cache.WithLogger(logger.With("component", "cache")),
	)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer store.Close()

	sweeper := cache.NewSweeper(store, cache.SweeperConfig{
		Interval: flags.SweepInterval,
		Logger:   logger.With("component", "sweeper"),
	})
	sweeper.Start(ctx)
	defer sweeper.Stop()

	extractor := media.NewYtDlp(
		media.WithBinary(flags.YtDlp),
		media.WithLogger(logger.With("component", "extractor")),
	)

	downloadOpts := []download.Option{
		download.WithLogger(logger.With("component", "download")),
	}
	if flags.TempDir != "" {
		downloadOpts = append(downloadOpts, download.WithTempDir(flags.TempDir))
	}
	downloads := download.New(store, extractor, downloadOpts...)

	var transcriber *transcribe.Coordinator
	if flags.AssemblyAIKey != "" {
		client, err := transcribe.NewClient(flags.AssemblyAIKey)
		if err != nil {
			return fmt.Errorf("creating transcription client: %w", err)
		}
		transcriber = transcribe.NewCoordinator(store, client,
			transcribe.WithLogger(logger.With("component", "transcribe")),
		)
	} else {
		logger.Info("transcription disabled, no provider key configured")
	}

	baseURL := flags.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost" + flags.Address
	}

	rt := router.New(router.Config{
		Cache:       store,
		Downloads:   downloads,
		Transcriber: transcriber,
		Tokens:      tokens,
		Extractor:   extractor,
		BaseURL:     baseURL,
		Logger:      logger.With("component", "router"),
	})

	if flags.HTTP {
		return runHTTP(ctx, flags, rt, store, tokens, logger)
	}
	return runStdio(ctx, rt, logger)
}

// runHTTP serves the MCP endpoints and file gateway until the context is
// cancelled.
func runHTTP(ctx context.Context, flags cli, rt *router.Router, store *cache.Store, tokens *token.Service, logger *slog.Logger) error {
	srv, err := server.New(server.Config{
		Address: flags.Address,
		APIKey:  flags.APIKey,
		Router:  rt,
		Cache:   store,
		Tokens:  tokens,
		Logger:  logger.With("component", "server"),
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// runStdio serves MCP over stdin/stdout. Logs go to stderr so they never
// corrupt the protocol stream.
func runStdio(ctx context.Context, rt *router.Router, logger *slog.Logger) error {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    server.ServerName,
		Version: server.ServerVersion,
	}, nil)
	rt.Register(mcpServer)

	logger.Info("serving MCP over stdio")
	return mcpServer.Run(ctx, &mcp.StdioTransport{})
}

func buildLogger(flags cli) (*slog.Logger, error) {
	var level slog.Level
	switch flags.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", flags.LogLevel)
	}

	// stdout belongs to the stdio transport; logs always go to stderr.
	var handler slog.Handler
	switch flags.LogFormat {
	case "text":
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	default:
		return nil, fmt.Errorf("invalid log format: %s", flags.LogFormat)
	}
	return slog.New(handler), nil
}
