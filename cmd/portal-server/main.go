package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/domain/audit"
	"github.com/carelink/carelink/internal/domain/clinic"
	"github.com/carelink/carelink/internal/domain/consent"
	"github.com/carelink/carelink/internal/domain/history"
	"github.com/carelink/carelink/internal/domain/identity"
	"github.com/carelink/carelink/internal/domain/passcode"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/blobstore"
	"github.com/carelink/carelink/internal/platform/db"
	"github.com/carelink/carelink/internal/platform/middleware"
)

func main() {
	root := &cobra.Command{
		Use:   "portal-server",
		Short: "Patient portal API server",
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the portal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			pool, err := db.NewPool(ctx, db.PoolConfig{
				URL:      cfg.DatabaseURL,
				MaxConns: cfg.DBMaxConns,
				MinConns: cfg.DBMinConns,
			})
			cancel()
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()
			logger.Info().Msg("database pool established")

			// Repositories
			clinicDir := clinic.NewPgDirectoryRepository(pool)
			clinicPatients := clinic.NewPgPatientRepository(pool)
			identities := identity.NewPgIdentityRepository(pool)
			users := identity.NewPgUserRepository(pool)
			links := identity.NewPgLinkRepository(pool)
			consents := consent.NewPgRepository(pool)
			passcodes := passcode.NewPgRepository(pool)
			visits := history.NewPgVisitRepository(pool)
			documents := history.NewPgDocumentRepository(pool)
			auditLog := audit.NewPgRepository(pool)

			// Services
			issuer := auth.NewIssuer([]byte(cfg.TokenSigningKey))
			cookies := auth.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.IsProduction()}
			resolver := identity.NewResolver(identities, users, links, clinicPatients)
			consentSvc := consent.NewService(consents, links, clinicDir)
			recorder := audit.NewRecorder(auditLog, logger, audit.DefaultQueueSize)
			recorder.Start(context.Background())
			defer recorder.Close()

			deliverer := passcode.NewLogDeliverer(logger)
			passcodeSvc := passcode.NewService(passcodes, users, resolver, deliverer,
				db.NewPoolRunner(pool), cfg.PasscodeBypass, logger)
			blobs := blobstore.NewInMemoryBlobStore()
			historySvc := history.NewService(visits, documents, consentSvc, blobs, recorder, logger)

			// HTTP server
			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.Use(middleware.RequestID())
			e.Use(middleware.Recovery(logger))
			e.Use(middleware.Logger(logger))
			e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
				AllowOrigins:     cfg.CORSOrigins,
				AllowCredentials: true,
			}))
			e.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimitRPS,
				BurstSize:         cfg.RateLimitBurst,
			}))

			e.GET("/health", func(c echo.Context) error {
				if err := pool.Ping(c.Request().Context()); err != nil {
					return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				}
				return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
			})

			portal := e.Group("/api/v1/portal")
			passcode.NewHandler(passcodeSvc, issuer, cookies).RegisterRoutes(portal)

			authed := portal.Group("", auth.Middleware(issuer))
			history.NewHandler(historySvc).RegisterRoutes(authed)
			consent.NewHandler(consentSvc).RegisterRoutes(authed)
			audit.NewHandler(auditLog).RegisterRoutes(authed)

			// Serve with graceful shutdown
			errCh := make(chan error, 1)
			go func() {
				errCh <- e.Start(":" + cfg.Port)
			}()
			logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("portal server started")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				logger.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "migrations", "migrations directory")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, cleanup, err := newMigrator(dir)
			if err != nil {
				return err
			}
			defer cleanup()

			count, err := migrator.Up(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migration(s)\n", count)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, cleanup, err := newMigrator(dir)
			if err != nil {
				return err
			}
			defer cleanup()

			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}

	cmd.AddCommand(up, status)
	return cmd
}

func newMigrator(dir string) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db.NewMigrator(pool, dir), pool.Close, nil
}
