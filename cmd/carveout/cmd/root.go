package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"carveout/internal/core"
	"carveout/internal/infra/metrics/prom"
	"carveout/pkg/domain"
)

var (
	storageDriver string
	sqlitePath    string
	postgresDSN   string
	logLevel      string
	showMetrics   bool

	store    domain.DocumentStore
	logger   *slog.Logger
	registry *prometheus.Registry
	recorder *prom.Recorder
)

// openDocumentStore is replaced in tests to share one in-memory store
// between invocations.
var openDocumentStore = core.OpenDocumentStoreWith

var rootCmd = &cobra.Command{
	Use:   "carveout",
	Short: "Edit carveout drawings from the command line",
	Long: `carveout stores vector drawings together with their full branching
undo history.

Every editing command loads a document, applies one change through the
content manager and saves the document back, so undo and redo work across
invocations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		registry = prometheus.NewRegistry()
		recorder = prom.NewRecorder(registry)

		s, err := openDocumentStore(core.StorageDriver(storageDriver), sqlitePath, postgresDSN)
		if err != nil {
			return fmt.Errorf("open %s store: %w", storageDriver, err)
		}
		store = s
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store == nil {
			return nil
		}
		if showMetrics {
			if err := writeMetrics(cmd.ErrOrStderr(), registry); err != nil {
				return err
			}
		}
		err := store.Close()
		store = nil
		return err
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	driver := os.Getenv("CARVEOUT_STORAGE_DRIVER")
	if driver == "" {
		driver = string(core.StorageSQLite)
	}
	rootCmd.PersistentFlags().StringVar(&storageDriver, "storage", driver, "document storage driver: memory|sqlite|postgres")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", os.Getenv("CARVEOUT_SQLITE_PATH"), "sqlite database file")
	rootCmd.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", os.Getenv("CARVEOUT_POSTGRES_DSN"), "postgres connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print operation metrics to stderr on exit")
}

func newManager() *core.ContentManager {
	return core.NewContentManager(
		core.WithLogger(core.NewSlogLogger(logger)),
		core.WithMetricsRecorder(recorder),
	)
}

// openDocument loads name into a fresh manager.
func openDocument(ctx context.Context, name string) (*core.ContentManager, error) {
	m := newManager()
	if err := m.LoadFrom(ctx, store, name); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, fmt.Errorf("document %q does not exist", name)
		}
		return nil, err
	}
	return m, nil
}

// editDocument loads name, applies fn and saves the result. Nothing is saved
// when fn fails.
func editDocument(ctx context.Context, name string, fn func(m *core.ContentManager) error) (*core.ContentManager, error) {
	m, err := openDocument(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	if err := m.SaveTo(ctx, store, name); err != nil {
		return nil, err
	}
	return m, nil
}
