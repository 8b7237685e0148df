package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retailbot/internal/analytics"
	"retailbot/internal/bus"
	"retailbot/internal/cases"
	"retailbot/internal/channel"
	"retailbot/internal/config"
	"retailbot/internal/knowledge"
	"retailbot/internal/provider"
	"retailbot/internal/responder"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "retailbot",
		Short: "RetailBot: retail support chatbot gateway",
		Long:  "RetailBot answers customer queries from per-store knowledge bases, opens support cases, and aggregates query analytics. Serves Web, Telegram, and CLI channels.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.retailbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfigOrDefaults loads the config, falling back to defaults with a
// warning when no file exists yet.
func loadConfigOrDefaults() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		return config.Defaults()
	}
	return cfg
}

// setupLogger rebuilds the process logger from config (level and optional
// log file).
func setupLogger(cfg *config.Config) error {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var w io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}

	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and seed the default store's knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Knowledge.Dir, 0o755); err != nil {
				return err
			}
			if err := knowledge.SaveTree(cfg.Knowledge.Dir, cfg.General.DefaultStore, knowledge.DefaultTree()); err != nil {
				return err
			}
			logger.Info("initialized",
				"config", cfgPath,
				"knowledge", cfg.Knowledge.Dir,
				"store", cfg.General.DefaultStore,
			)
			return nil
		},
	}
}

// engine bundles the in-process stack shared by serve and chat.
type engine struct {
	bus       *bus.InMemoryBus
	store     *analytics.SQLiteStore
	recorder  *analytics.Recorder
	cases     *cases.Manager
	knowledge *knowledge.Registry
	responder *responder.Responder
}

// buildEngine wires the analytics store, knowledge registry, case manager,
// provider chain, and responder onto a fresh message bus.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	messageBus := bus.New(100, logger)

	store, err := analytics.NewSQLiteStore(cfg.Analytics.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("analytics store: %w", err)
	}
	fallback := analytics.NewFallbackCacheWithBounds(cfg.Analytics.MaxStores, cfg.Analytics.MaxFAQKeys, logger)
	recorder := analytics.NewRecorder(store, fallback, logger)

	registry := knowledge.NewRegistry(knowledge.DefaultTree(), logger)
	if trees, err := knowledge.LoadDirectory(cfg.Knowledge.Dir, logger); err != nil {
		logger.Warn("knowledge directory not loaded, using defaults", "dir", cfg.Knowledge.Dir, "err", err)
	} else {
		for storeID, tree := range trees {
			registry.Register(storeID, tree)
		}
	}

	caseMgr := cases.NewManager(logger)

	// No reachable provider is not fatal: the responder falls back to
	// knowledge-base replies.
	provFactory := provider.NewFactory(cfg, logger)
	prov, err := provFactory.Chain()
	if err != nil {
		logger.Warn("no LLM provider available, replies come from the knowledge base", "err", err)
		prov = nil
	} else if err := prov.Healthy(ctx); err != nil {
		logger.Warn("provider unhealthy at startup", "provider", prov.Name(), "err", err)
	} else {
		logger.Info("provider healthy", "provider", prov.Name())
	}

	resp := responder.New(responder.Config{
		Provider:    prov,
		Registry:    registry,
		Cases:       caseMgr,
		Recorder:    recorder,
		Bus:         messageBus,
		Logger:      logger,
		Concurrency: cfg.General.MaxConcurrentMessages,
	})

	return &engine{
		bus:       messageBus,
		store:     store,
		recorder:  recorder,
		cases:     caseMgr,
		knowledge: registry,
		responder: resp,
	}, nil
}

func (e *engine) close() {
	e.bus.Close()
	if err := e.store.Close(); err != nil {
		logger.Warn("closing analytics store", "err", err)
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat (CLI)",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrDefaults()
	if err := setupLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	go eng.responder.Run(ctx)

	cliCh := channel.NewCLI(channel.CLIConfig{
		Logger:       logger,
		DefaultStore: cfg.General.DefaultStore,
	})
	return cliCh.Start(ctx, eng.bus)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway (Web + Telegram + responder)",
		Long:  "Starts the HTTP gateway and all enabled channels. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := setupLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}

	go eng.responder.Run(ctx)

	var telegramCh *channel.Telegram
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		telegramCh = channel.NewTelegram(channel.TelegramConfig{
			Token:        cfg.Channels.Telegram.Token,
			AllowFrom:    cfg.Channels.Telegram.AllowFrom,
			ParseMode:    cfg.Channels.Telegram.ParseMode,
			DefaultStore: cfg.General.DefaultStore,
			Logger:       logger,
		})
		go func() {
			if err := telegramCh.Start(ctx, eng.bus); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		logger.Info("telegram channel enabled")
	} else {
		logger.Info("telegram channel disabled")
	}

	webCh := channel.NewWeb(channel.WebConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Recorder:        eng.recorder,
		Cases:           eng.cases,
		Knowledge:       eng.knowledge,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		Logger:          logger,
	})
	go func() {
		if err := webCh.Start(ctx, eng.bus); err != nil {
			logger.Error("web channel error", "err", err)
		}
	}()

	logger.Info("gateway started. Press Ctrl+C to stop.", "version", version)

	<-ctx.Done()
	logger.Info("shutting down gateway...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		if telegramCh != nil {
			telegramCh.Stop()
		}
		webCh.Stop()
		eng.close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		shutdownErr = fmt.Errorf("shutdown timed out")
	}

	return shutdownErr
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			ctx := context.Background()
			factory := provider.NewFactory(cfg, logger)
			if prov := factory.HealthyProvider(ctx); prov != nil {
				logger.Info("provider", "name", prov.Name(), "healthy", true)
			} else {
				logger.Info("provider", "healthy", false)
			}

			trees, err := knowledge.LoadDirectory(cfg.Knowledge.Dir, logger)
			if err != nil {
				logger.Info("knowledge", "dir", cfg.Knowledge.Dir, "loaded", false)
			} else {
				logger.Info("knowledge", "dir", cfg.Knowledge.Dir, "stores", len(trees))
			}

			if store, err := analytics.NewSQLiteStore(cfg.Analytics.DBPath, logger); err != nil {
				logger.Info("analytics", "path", cfg.Analytics.DBPath, "available", false)
			} else {
				agg, err := store.ReadAggregate(ctx, cfg.General.DefaultStore)
				if err == nil && agg != nil {
					logger.Info("analytics",
						"path", cfg.Analytics.DBPath,
						"store", cfg.General.DefaultStore,
						"totalQueries", agg.TotalQueries,
					)
				} else {
					logger.Info("analytics", "path", cfg.Analytics.DBPath, "available", true)
				}
				store.Close()
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. general.defaultStore)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. general.defaultProvider ollama)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
