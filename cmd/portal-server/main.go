package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/fhirportal/internal/config"
	"github.com/ehr/fhirportal/internal/domain/access"
	"github.com/ehr/fhirportal/internal/domain/account"
	"github.com/ehr/fhirportal/internal/domain/analytics"
	"github.com/ehr/fhirportal/internal/domain/appointment"
	"github.com/ehr/fhirportal/internal/domain/audit"
	"github.com/ehr/fhirportal/internal/domain/gateway"
	"github.com/ehr/fhirportal/internal/domain/hl7"
	"github.com/ehr/fhirportal/internal/domain/kafka"
	"github.com/ehr/fhirportal/internal/domain/notification"
	"github.com/ehr/fhirportal/internal/domain/observation"
	"github.com/ehr/fhirportal/internal/domain/patient"
	"github.com/ehr/fhirportal/internal/domain/telemedicine"
	"github.com/ehr/fhirportal/internal/platform/auth"
	"github.com/ehr/fhirportal/internal/platform/blobstore"
	"github.com/ehr/fhirportal/internal/platform/db"
	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/fhir"
	"github.com/ehr/fhirportal/internal/platform/middleware"
	"github.com/ehr/fhirportal/internal/platform/session"
	"github.com/ehr/fhirportal/migrations"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-server",
		Short: "FHIR patient portal API gateway",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(routesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
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

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closePool, err := openMigrator(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closePool, err := openMigrator(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func openMigrator(ctx context.Context) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, db.PoolOptions{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, migrationFS(cfg.MigrationsDir)), pool.Close, nil
}

// migrationFS prefers an on-disk directory and falls back to the SQL
// embedded in the binary.
func migrationFS(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the registered route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newServer(&config.Config{}, zerolog.Nop(), backends{})
			for _, line := range routeTable(e) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func routeTable(e *echo.Echo) []string {
	var lines []string
	for _, r := range e.Routes() {
		lines = append(lines, fmt.Sprintf("%-7s %s", r.Method, r.Path))
	}
	sort.Strings(lines)
	return lines
}

// backends are the shared handles every domain is built from. Nil fields
// fall back to in-memory or no-op implementations.
type backends struct {
	pool      *pgxpool.Pool
	sessions  session.Store
	blobs     blobstore.Store
	publisher events.Publisher
}

func (b backends) withDefaults() backends {
	if b.sessions == nil {
		b.sessions = session.NewMemoryStore()
	}
	if b.blobs == nil {
		b.blobs = blobstore.NewMemoryStore()
	}
	if b.publisher == nil {
		b.publisher = events.NopPublisher{}
	}
	return b
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logger = logger.Level(level)
	}
	return logger
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolOptions{
		URL:               cfg.DatabaseURL,
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		HealthCheckPeriod: 30 * time.Second,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	b := backends{pool: pool}

	if cfg.RedisAddr != "" {
		client, err := session.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using in-memory sessions")
		} else {
			defer client.Close()
			b.sessions = session.NewRedisStore(client)
			logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
		}
	}

	if cfg.AMQPURL != "" {
		pub, err := events.NewRabbitPublisher(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			logger.Warn().Err(err).Msg("rabbitmq unavailable, events will not be published")
		} else {
			defer pub.Close()
			b.publisher = pub
			logger.Info().Str("exchange", cfg.EventsExchange).Msg("connected to rabbitmq")
		}
	}

	if cfg.MinioEndpoint != "" {
		store, err := blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("minio unavailable, exports kept in memory")
		} else {
			b.blobs = store
			logger.Info().Str("bucket", cfg.MinioBucket).Msg("connected to minio")
		}
	}

	e := newServer(cfg, logger, b)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
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

func newServer(cfg *config.Config, logger zerolog.Logger, b backends) *echo.Echo {
	b = b.withDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = document.Serializer{}
	e.HTTPErrorHandler = fhir.ErrorHandler("/fhir", e.DefaultHTTPErrorHandler)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	tokens := auth.NewTokenIssuer(cfg.AuthSigningKey, cfg.AuthIssuer, cfg.AccessTokenTTL)
	e.Use(auth.IdentifyBearer(tokens))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if b.pool != nil {
		e.GET("/health/db", db.HealthHandler(b.pool))
	}

	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir/R4")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	for _, g := range []*echo.Group{apiV1, fhirGroup} {
		g.Use(middleware.RateLimit(rateLimitCfg))
		g.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	em := events.NewEmitter(b.publisher, logger)

	hl7.NewHandler(hl7.NewService(hl7.NewHL7RepoPG(b.pool), em, logger)).RegisterRoutes(apiV1)

	patientSvc := patient.NewService(patient.NewPatientRepoPG(b.pool), b.blobs, em, logger)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	observation.NewHandler(observation.NewService(observation.NewObservationRepoPG(b.pool), em, logger)).RegisterRoutes(apiV1)
	appointment.NewHandler(appointment.NewService(appointment.NewAppointmentRepoPG(b.pool), em, logger)).RegisterRoutes(apiV1)

	accountSvc := account.NewService(account.NewAccountRepoPG(b.pool), tokens, b.sessions, em, logger)
	account.NewHandler(accountSvc).RegisterRoutes(apiV1)

	access.NewHandler(access.NewService(access.NewAccessRepoPG(b.pool), em, logger)).RegisterRoutes(apiV1)
	telemedicine.NewHandler(telemedicine.NewService(telemedicine.NewTelemedicineRepoPG(b.pool), em, logger)).RegisterRoutes(apiV1)
	notification.NewHandler(notification.NewService(notification.NewNotificationRepoPG(b.pool), em, logger)).RegisterRoutes(apiV1)
	analytics.NewHandler(analytics.NewService(analytics.NewAnalyticsRepoPG(b.pool), em, logger)).RegisterRoutes(apiV1)

	auditSvc := audit.NewService(audit.NewAuditRepoPG(b.pool), b.blobs, tokens, em, logger)
	audit.NewHandler(auditSvc).RegisterRoutes(apiV1)

	kafka.NewHandler(kafka.NewService(kafka.NewKafkaRepoPG(b.pool), em, logger)).RegisterRoutes(apiV1)

	caps := fhir.NewCapabilityBuilder(fhir.CapabilityConfig{SoftwareVersion: version})
	caps.AddResource("Patient", "read", "search-type")
	gatewaySvc := gateway.NewService(gateway.NewGatewayRepoPG(b.pool), patientSvc, caps, logger)
	gateway.NewHandler(gatewaySvc).RegisterRoutes(fhirGroup)

	return e
}
