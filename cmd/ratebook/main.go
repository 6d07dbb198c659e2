package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	_ "github.com/lib/pq"
	"github.com/railzwaylabs/ratebook/internal/bootstrap"
	"github.com/railzwaylabs/ratebook/internal/clock"
	"github.com/railzwaylabs/ratebook/internal/config"
	"github.com/railzwaylabs/ratebook/internal/migration"
	"github.com/railzwaylabs/ratebook/internal/observability"
	"github.com/railzwaylabs/ratebook/internal/rating"
	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
	"github.com/railzwaylabs/ratebook/internal/ratetable"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/railzwaylabs/ratebook/internal/ratetable/importer"
	"github.com/railzwaylabs/ratebook/internal/ratingrun"
	"github.com/railzwaylabs/ratebook/internal/redis"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	"github.com/railzwaylabs/ratebook/internal/scenario"
	"github.com/railzwaylabs/ratebook/internal/scheduler"
	"github.com/railzwaylabs/ratebook/internal/seed"
	"github.com/railzwaylabs/ratebook/internal/server"
	"github.com/railzwaylabs/ratebook/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ratebook",
		Short:         "Ratebook insurance rating engine",
		Version:       readVersionFromEnv(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newServeCmd(),
		newSchedulerCmd(),
		newAllCmd(),
		newImportCmd(),
		newRateCmd(),
		newSeedCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and activate schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the rating API with the cache scheduler and import watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the rate table scheduler without the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API, scheduler and import watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runServe()
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var (
		activate  bool
		supersede bool
		watchDir  string
	)
	cmd := &cobra.Command{
		Use:   "import [FILE...]",
		Short: "Publish rate table documents (YAML, JSON or XLSX)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ratetabledomain.PublishOptions{Activate: activate, Supersede: supersede}
			if watchDir != "" {
				return runWatch(cmd.Context(), watchDir, opts)
			}
			if len(args) == 0 {
				return errors.New("import requires at least one FILE or --watch DIR")
			}
			return runImport(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().BoolVar(&activate, "activate", false, "activate the published version")
	cmd.Flags().BoolVar(&supersede, "supersede", false, "deactivate other live versions of the product type")
	cmd.Flags().StringVar(&watchDir, "watch", "", "watch DIR and publish documents written into it")
	return cmd
}

func newRateCmd() *cobra.Command {
	var (
		scenarioID  string
		payloadPath string
		userID      string
	)
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Rate a stored scenario and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRateRequest(payloadPath)
			if err != nil {
				return err
			}
			req.UserID = userID
			return runRate(cmd.Context(), scenarioID, req)
		},
	}
	cmd.Flags().StringVar(&scenarioID, "scenario", "", "scenario ID")
	cmd.Flags().StringVar(&payloadPath, "payload", "", "JSON file with payment mode, factor and rider selections")
	cmd.Flags().StringVar(&userID, "user", "cli", "user recorded on the rating run")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Publish the bundled sample rate tables and scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
}

// runMigrate applies SQL migrations through lib/pq on postgres, and
// auto-migrates the models on the other drivers.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == config.DriverPostgres {
		sqlDB, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer sqlDB.Close()
		if err := migration.RunMigrations(sqlDB, resolver.NewRegistry().List()); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
		return nil
	}

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		observability.Module,
		db.Module,
		resolver.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func engineModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		resolver.Module,
		scenario.Module,
		ratetable.Module,
		ratingrun.Module,
		rating.Module,
	)
}

func runServe() {
	app := fx.New(
		engineModules(),
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),
		seed.Module,
		fx.Invoke(bootstrap.EnsureSampleData),
		scheduler.Module,
		fx.Invoke(importer.StartWatcher),
		server.Module,
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		engineModules(),
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),
		scheduler.Module,
	)
	app.Run()
}

// runOnce starts a short-lived app, hands the populated targets to fn and
// stops the app afterwards.
func runOnce(ctx context.Context, fn func(context.Context) error, targets ...any) error {
	app := fx.New(
		fx.NopLogger,
		engineModules(),
		seed.Module,
		fx.Populate(targets...),
	)

	startCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	return fn(ctx)
}

func runImport(ctx context.Context, paths []string, opts ratetabledomain.PublishOptions) error {
	var imp *importer.Importer
	return runOnce(ctx, func(ctx context.Context) error {
		opts.Source = "cli"
		var failed int
		for _, path := range paths {
			table, err := imp.ImportFile(ctx, path, opts)
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				continue
			}
			fmt.Printf("%s: %s v%d published (id=%s active=%t)\n", path, table.ProductType, table.Version, table.ID, table.IsActive)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed to import", failed, len(paths))
		}
		return nil
	}, &imp)
}

func runWatch(ctx context.Context, dir string, opts ratetabledomain.PublishOptions) error {
	var (
		imp *importer.Importer
		log *zap.Logger
		cfg config.Config
	)
	return runOnce(ctx, func(ctx context.Context) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return importer.NewWatcher(imp, log, dir, cfg.Import.Debounce, opts).Run(ctx)
	}, &imp, &log, &cfg)
}

func runRate(ctx context.Context, scenarioID string, req ratingdomain.RateRequest) error {
	var svc ratingdomain.Service
	return runOnce(ctx, func(ctx context.Context) error {
		outcome, err := svc.RateScenario(ctx, strings.TrimSpace(scenarioID), req)
		if err != nil {
			var ratingErr *ratingdomain.RatingError
			if errors.As(err, &ratingErr) && ratingErr.RunID != "" {
				fmt.Fprintf(os.Stderr, "rating run %s recorded with status=error\n", ratingErr.RunID)
			}
			return err
		}
		return printJSON(outcome)
	}, &svc)
}

func runSeed(ctx context.Context) error {
	var seeder *seed.Seeder
	return runOnce(ctx, func(ctx context.Context) error {
		summary, err := seeder.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("tables published=%d skipped=%d, scenarios=%d\n",
			summary.TablesPublished, summary.TablesSkipped, summary.Scenarios)
		return nil
	}, &seeder)
}

func readRateRequest(path string) (ratingdomain.RateRequest, error) {
	var req ratingdomain.RateRequest
	if strings.TrimSpace(path) == "" {
		return req, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode payload %s: %w", path, err)
	}
	return req, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
