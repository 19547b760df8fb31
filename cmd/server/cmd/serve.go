package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campus-life-events/server/internal/api"
	"github.com/campus-life-events/server/internal/audit"
	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/config"
	"github.com/campus-life-events/server/internal/domain/accounts"
	"github.com/campus-life-events/server/internal/domain/events"
	"github.com/campus-life-events/server/internal/domain/organizers"
	"github.com/campus-life-events/server/internal/domain/sessions"
	"github.com/campus-life-events/server/internal/email"
	"github.com/campus-life-events/server/internal/metrics"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/campus-life-events/server/internal/storage/postgres"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables
- Bootstrap the first admin account if ADMIN_* env vars are set
- Serve the JSON API with cookie-based session authentication
- Handle graceful shutdown on SIGINT/SIGTERM`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logger := config.NewLogger(cfg)
	logger.Info().Msg("starting campus life events server")

	metrics.Init(Version, GitCommit, BuildDate)

	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.NewPool(poolCtx, cfg.Database)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	emailSvc, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email service init failed: %w", err)
	}

	policy := auth.Policy{
		MinLength:  cfg.PasswordPolicy.MinLength,
		MinEntropy: cfg.PasswordPolicy.MinEntropy,
	}
	sessionMgr := sessions.NewManager(repo, cfg.Session.TTL, logger)
	accountsSvc := accounts.NewService(repo, sessionMgr, emailSvc, policy, logger)
	organizersSvc := organizers.NewService(repo, emailSvc, logger)
	eventsSvc := events.NewService(repo, audit.NewRecorder(), logger)

	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := bootstrapAdminAccount(bootstrapCtx, repo, cfg.AdminBootstrap, policy, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	bootstrapCancel()

	router := api.NewRouter(api.Deps{
		Config:     cfg,
		Logger:     logger,
		Accounts:   accountsSvc,
		Organizers: organizersSvc,
		Events:     eventsSvc,
		Sessions:   sessionMgr,
		DB:         pool,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	waitForShutdown(server, logger)
	return nil
}

// bootstrapAdminAccount creates the first administrator from environment
// configuration. A no-op when the variables are unset or the account already
// exists, so restarts are safe.
func bootstrapAdminAccount(ctx context.Context, repo storage.Repository, bootstrap config.AdminBootstrapConfig, policy auth.Policy, logger zerolog.Logger) error {
	if bootstrap.Email == "" || bootstrap.Password == "" || bootstrap.DisplayName == "" {
		logger.Warn().Msg("admin bootstrap env vars not fully set; skipping")
		return nil
	}

	if _, err := repo.Accounts().GetByEmail(ctx, bootstrap.Email); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check admin account: %w", err)
	}

	if err := auth.ValidatePassword(bootstrap.Password, policy); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected by password policy: %w", err)
	}

	token, err := auth.NewToken()
	if err != nil {
		return fmt.Errorf("generate bootstrap token: %w", err)
	}

	return repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		_, err := tx.Accounts().CreatePending(ctx, storage.CreatePendingAccountParams{
			Type:                auth.AccountTypeAdmin,
			DisplayName:         bootstrap.DisplayName,
			SetupToken:          token,
			SetupTokenExpiresAt: time.Now().Add(time.Minute),
		})
		if err != nil {
			return fmt.Errorf("create bootstrap account: %w", err)
		}

		hash, err := auth.HashPassword(bootstrap.Password)
		if err != nil {
			return fmt.Errorf("hash bootstrap password: %w", err)
		}

		if _, err := tx.Accounts().CompleteSetup(ctx, storage.CompleteSetupParams{
			SetupToken:   token,
			Email:        bootstrap.Email,
			PasswordHash: hash,
		}); err != nil {
			return fmt.Errorf("initialize bootstrap account: %w", err)
		}

		logger.Info().Str("email", bootstrap.Email).Msg("bootstrapped admin account")
		return nil
	})
}

func waitForShutdown(server *http.Server, logger zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
