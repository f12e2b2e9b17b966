package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/api/handlers"
	"github.com/BaSui01/plugstore/config"
	"github.com/BaSui01/plugstore/internal/metrics"
	"github.com/BaSui01/plugstore/internal/server"
	"github.com/BaSui01/plugstore/internal/telemetry"
)

// NewRootCommand builds the plugstore command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "plugstore",
		Short: "plugstore - OpenAPI plugin registry and tool dispatcher",
		Long: `plugstore keeps a registry of plugins described by OpenAPI documents,
translates every operation into a function descriptor for a chat model and
dispatches calls to the described HTTP APIs, directly or through the local
forwarding proxy.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")

	rootCmd.AddCommand(
		newServeCommand(&configPath),
		newSeedCommand(&configPath),
		newListCommand(&configPath),
		newToolsCommand(&configPath),
		newHealthCommand(),
		newVersionCommand(version, commit, date),
	)

	return rootCmd
}

// loadConfig 加载并验证配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// cliLogger 一次性命令的日志写到 stderr，避免混入命令输出
func cliLogger(cfg *config.Config) *zap.Logger {
	logCfg := cfg.Log
	logCfg.OutputPaths = []string{"stderr"}
	logger, _ := initLogger(logCfg)
	return logger
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the plugin API, local proxy and metrics servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, level := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting plugstore",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("store", cfg.Store.Type),
	)

	providers, err := telemetry.Init(ctx, cfg.Telemetry, telemetry.Options{
		Version:      Version,
		StoreBackend: cfg.Store.Type,
	}, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if providers == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown error", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector("plugstore", prometheus.DefaultRegisterer, logger)

	app, err := NewApp(ctx, cfg, collector, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("store close error", zap.Error(err))
		}
	}()

	if cfg.Plugins.SeedURL != "" {
		go func() {
			seedCtx := ctx
			if cfg.Plugins.SeedTimeout > 0 {
				var cancel context.CancelFunc
				seedCtx, cancel = context.WithTimeout(ctx, cfg.Plugins.SeedTimeout)
				defer cancel()
			}
			if _, err := app.Seed(seedCtx, ""); err != nil {
				logger.Warn("plugin seeding failed", zap.Error(err))
			}
		}()
	}

	apiManager, metricsManager := newServerManagers(cfg,
		NewAPIHandler(ctx, cfg, app, collector, logger), NewMetricsHandler(level), logger)
	if err := server.RunAll(ctx, apiManager, metricsManager); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("plugstore stopped")
	return nil
}

// =============================================================================
// 🌱 seed 命令
// =============================================================================

func newSeedCommand(configPath *string) *cobra.Command {
	var manifestURL string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import builtin plugins from a seeding manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)
			defer func() { _ = logger.Sync() }()

			app, err := NewApp(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			if cfg.Plugins.SeedTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Plugins.SeedTimeout)
				defer cancel()
			}
			result, err := app.Seed(ctx, manifestURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d, skipped %d, failed %d\n", result.Added, result.Skipped, result.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestURL, "url", "", "Manifest URL (defaults to plugins.seed_url)")
	return cmd
}

// =============================================================================
// 📋 list 命令
// =============================================================================

func newListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered plugins, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)
			defer func() { _ = logger.Sync() }()

			app, err := NewApp(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			return printPlugins(cmd.OutOrStdout(), app)
		},
	}
}

func printPlugins(out io.Writer, app *App) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tVERSION\tBUILTIN\tAUTH\tPROXY\tOPERATIONS")
	for _, p := range app.Registry().GetAll() {
		ops := "-"
		if entry, err := app.Registry().Entry(p.ID); err == nil && entry.Err == nil {
			ops = fmt.Sprint(entry.Length)
		}
		authType := string(p.AuthType)
		if authType == "" {
			authType = "none"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%t\t%s\n",
			p.ID, p.Title, p.Version, p.Builtin, authType, p.UsingProxy, ops)
	}
	return tw.Flush()
}

// =============================================================================
// 🛠️ tools 命令
// =============================================================================

func newToolsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tools <plugin-id>...",
		Short: "Print the function descriptors of the given plugins",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)
			defer func() { _ = logger.Sync() }()

			app, err := NewApp(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			for _, id := range args {
				if _, ok := app.Registry().Get(id); !ok {
					return fmt.Errorf("plugin %q not found", id)
				}
			}

			set := app.Registry().GetAsTools(args)
			out := handlers.ToolsResponse{Tools: set.Tools, Functions: make([]string, 0, len(set.Funcs))}
			for name := range set.Funcs {
				out.Functions = append(out.Functions, name)
			}
			sort.Strings(out.Functions)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

// =============================================================================
// 🏥 health 命令
// =============================================================================

func newHealthCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(addr, "/")+"/health", nil)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return errors.New("health check failed: status " + resp.Status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "Server address")
	return cmd
}

// =============================================================================
// 📋 version 命令
// =============================================================================

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "plugstore %s\n", version)
			fmt.Fprintf(out, "  Build Time: %s\n", date)
			fmt.Fprintf(out, "  Git Commit: %s\n", commit)
		},
	}
}
