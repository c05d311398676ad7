package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dentix/dentix/internal/config"
	"github.com/dentix/dentix/internal/domain/dentalchart"
	"github.com/dentix/dentix/internal/platform/auth"
	"github.com/dentix/dentix/internal/platform/cache"
	"github.com/dentix/dentix/internal/platform/db"
	"github.com/dentix/dentix/internal/platform/docstore"
	"github.com/dentix/dentix/internal/platform/metrics"
	"github.com/dentix/dentix/internal/platform/middleware"
	"github.com/dentix/dentix/migrations"
	"github.com/dentix/dentix/pkg/chartclient"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dentix-server",
		Short: "Dental chart API server",
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(tenantCmd())
	root.AddCommand(chartCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dental chart API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			ctx := cmd.Context()
			migrator, closeFn, err := newMigrator(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", db.SchemaName("default"), "Target schema for migrations")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			ctx := cmd.Context()
			migrator, closeFn, err := newMigrator(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd.OutOrStdout(), schema, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("schema", db.SchemaName("default"), "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func newMigrator(ctx context.Context) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for migrations")
	}
	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, migrations.FS), pool.Close, nil
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "dentix-server",
	}
}

func printMigrationStatus(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.Modified {
				status = "modified"
			}
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage clinic tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a clinic schema and apply chart migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to create a tenant")
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, poolConfig(cfg))
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Creating tenant schema: %s\n", db.SchemaName(name))
			if err := db.CreateTenantSchema(ctx, pool, name, migrations.FS); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Tenant created successfully.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func chartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Inspect dental charts",
	}

	explainCmd := &cobra.Command{
		Use:   "explain",
		Short: "Describe one tooth of a patient's chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			token, _ := cmd.Flags().GetString("token")
			tenant, _ := cmd.Flags().GetString("tenant")
			patient, _ := cmd.Flags().GetString("patient")
			tooth, _ := cmd.Flags().GetInt("tooth")
			dentition, _ := cmd.Flags().GetString("dentition")

			pid, err := uuid.Parse(patient)
			if err != nil {
				return fmt.Errorf("--patient must be a UUID: %w", err)
			}
			client := chartclient.New(server, token, tenant)
			text, err := explainTooth(cmd.Context(), client, pid, tooth, dentition)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	explainCmd.Flags().String("server", "http://localhost:8000", "Chart API base URL")
	explainCmd.Flags().String("token", os.Getenv("DENTIX_TOKEN"), "Bearer token")
	explainCmd.Flags().String("tenant", "", "Clinic tenant id")
	explainCmd.Flags().String("patient", "", "Patient id")
	explainCmd.Flags().Int("tooth", 0, "Tooth number")
	explainCmd.Flags().String("dentition", "", "adult or child (defaults to the patient's adult chart)")
	cmd.AddCommand(explainCmd)

	geometryCmd := &cobra.Command{
		Use:   "geometry",
		Short: "Print surfaces and root positions of a tooth",
		RunE: func(cmd *cobra.Command, args []string) error {
			tooth, _ := cmd.Flags().GetInt("tooth")
			child, _ := cmd.Flags().GetBool("child")
			g, err := dentalchart.ResolveGeometry(tooth, child)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), g)
		},
	}
	geometryCmd.Flags().Int("tooth", 0, "Tooth number")
	geometryCmd.Flags().Bool("child", false, "Use the primary dentition")
	cmd.AddCommand(geometryCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "catalogs",
		Short: "Print the condition catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), map[string][]dentalchart.ConditionInfo{
				"surfaceConditions":   dentalchart.SurfaceConditions(),
				"overallStatuses":     dentalchart.OverallStatuses(),
				"rootCanalConditions": dentalchart.RootConditions(),
			})
		},
	})

	return cmd
}

func explainTooth(ctx context.Context, src dentalchart.ChartSource, patientID uuid.UUID, tooth int, dentition string) (string, error) {
	charts, err := dentalchart.NewViewer(src).LoadPatientCharts(ctx, patientID)
	if err != nil {
		return "", err
	}
	sel := charts.DefaultSelection()
	if dentition != "" {
		if sel, err = dentalchart.ParseDentition(dentition); err != nil {
			return "", err
		}
	}
	return dentalchart.Explain(charts.Active(sel), tooth)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// chartStore is the storage selected by CHART_STORE plus what the HTTP
// layer needs from it.
type chartStore struct {
	repo   dentalchart.ChartRepository
	tenant echo.MiddlewareFunc
	health echo.HandlerFunc
	close  func()
}

func openChartStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*chartStore, error) {
	if cfg.UsesPostgres() {
		pool, err := db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info().Msg("connected to database")
		return &chartStore{
			repo:   dentalchart.NewChartRepoPG(pool),
			tenant: db.TenantMiddleware(pool, cfg.DefaultTenant),
			health: db.HealthHandler(pool),
			close:  pool.Close,
		}, nil
	}

	store, err := docstore.Connect(docstore.Config{
		URL:        cfg.CouchbaseURL,
		Username:   cfg.CouchbaseUsername,
		Password:   cfg.CouchbasePassword,
		Bucket:     cfg.CouchbaseBucket,
		Scope:      cfg.CouchbaseScope,
		Collection: cfg.CouchbaseCollection,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("keyspace", store.Keyspace()).Msg("connected to couchbase")
	return &chartStore{
		repo:   dentalchart.NewChartRepoCouchbase(store),
		tenant: db.TenantContext(cfg.DefaultTenant),
		health: db.StoreHealthHandler(db.HealthCheck{
			Store: config.StoreCouchbase,
			Ping:  func(context.Context) error { return store.Ping() },
		}),
		close: func() { _ = store.Close() },
	}, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// newEcho assembles the HTTP server around a chart service.
func newEcho(cfg *config.Config, logger zerolog.Logger, svc *dentalchart.Service, store *chartStore, collector *metrics.Collector) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, "X-Tenant-ID"},
	}))
	if cfg.MetricsEnabled {
		e.Use(collector.Middleware())
	}
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.ChartBodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	if cfg.ResolvedAuthMode() == "development" {
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.AuthSkipper,
		}))
	}
	e.Use(store.tenant)
	e.Use(middleware.Audit(logger, collector))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"store":   cfg.ChartStore,
		})
	})
	e.GET("/health/db", store.health)
	if cfg.MetricsEnabled {
		e.GET("/metrics", collector.Handler())
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	dentalchart.NewHandler(svc).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := newLogger(nil)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	store, err := openChartStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.ChartStore).Msg("failed to open chart store")
	}
	defer store.close()

	repo := store.repo
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, "dentix:")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rc.Close()
		repo = dentalchart.NewCachedChartRepo(repo, rc, cfg.ChartCacheTTL, logger)
		logger.Info().Dur("ttl", cfg.ChartCacheTTL).Msg("chart cache enabled")
	}

	collector := metrics.New()
	svc := dentalchart.NewService(repo, logger)
	svc.SetMetrics(collector)

	e := newEcho(cfg, logger, svc, store, collector)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.ChartStore).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
