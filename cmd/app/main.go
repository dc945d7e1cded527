package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "fitnexo/docs"
	"fitnexo/internal/access"
	"fitnexo/internal/clock"
	"fitnexo/internal/config"
	"fitnexo/internal/db"
	"fitnexo/internal/email"
	"fitnexo/internal/gateway"
	"fitnexo/internal/gym"
	"fitnexo/internal/inbox"
	"fitnexo/internal/logger"
	"fitnexo/internal/membership"
	"fitnexo/internal/payment"
	"fitnexo/internal/reminder"
	"fitnexo/internal/server"

	"github.com/redis/go-redis/v9"
)

// @title FitNexo API
// @version 1.0
// @description Membership lifecycle, payment reconciliation and access control for gyms.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting FitNexo application")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 15*time.Second)
	database, err := db.Connect(connectCtx, cfg.DatabaseURL, db.Pool{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	connectCancel()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emailService := email.New(email.Config{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		SMTPUser: cfg.SMTPUser,
		SMTPPass: cfg.SMTPPass,
	}, rdb)
	go emailService.Start(ctx)
	logger.Info("Email service initialized")

	clk := clock.System{Location: cfg.Location}
	tx := db.NewRunner(database, cfg.TxMaxAttempts)

	gymRepo := gym.NewRepository(database)
	membershipRepo := membership.NewRepository(database)
	paymentRepo := payment.NewRepository(database)
	accessRepo := access.NewRepository(database)

	ledger := membership.NewLedger(membershipRepo, gymRepo, tx, clk)
	reconciler := payment.NewReconciler(paymentRepo, gymRepo, ledger, tx, clk, emailService)

	qr, err := access.NewQRIssuer(cfg.QRSecret, clk)
	if err != nil {
		logger.Fatalf("Failed to create QR issuer: %v", err)
	}
	gate := access.NewGate(accessRepo, gymRepo, ledger, qr, tx, clk)

	mp := gateway.NewMercadoPago(gateway.MercadoPagoConfig{
		AccessToken:     cfg.MPAccessToken,
		BaseURL:         cfg.MPAPIURL,
		NotificationURL: cfg.MPNotificationURL,
		SuccessURL:      cfg.MPSuccessURL,
	}, &http.Client{Timeout: 10 * time.Second})
	if !mp.Configured() {
		logger.Warn("MP_ACCESS_TOKEN not set, Mercado Pago notifications will be dead-lettered")
	}
	normalizers := gateway.Normalizers{
		gateway.ProviderMercadoPago: mp,
		gateway.ProviderStripe:      gateway.NewStripe(cfg.StripeWebhookToken),
	}

	var (
		source inbox.Source
		sink   inbox.Sink
	)
	switch cfg.InboxDriver {
	case "amqp":
		broker, err := inbox.DialAMQP(cfg.AMQPURL)
		if err != nil {
			logger.Fatalf("Failed to connect to AMQP broker: %v", err)
		}
		defer broker.Close()
		source, sink = broker, broker
	default:
		queue := inbox.NewRedis(rdb)
		if n, err := queue.Recover(ctx); err != nil {
			logger.Error("Failed to recover in-flight notifications", "error", err)
		} else if n > 0 {
			logger.Info("Recovered in-flight notifications", "count", n)
		}
		source, sink = queue, queue
	}
	logger.Info("Payment inbox initialized", "driver", cfg.InboxDriver)

	worker := inbox.NewWorker(source, normalizers, reconciler)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	srv := server.New(cfg, server.Handlers{
		Gyms:         gym.NewHandler(gym.NewService(gymRepo)),
		Memberships:  membership.NewHandler(ledger),
		Payments:     payment.NewHandler(reconciler),
		PaymentLinks: gateway.NewLinkHandler(mp, gymRepo),
		Webhooks:     gateway.NewWebhookHandler(sink),
		Access:       access.NewHandler(gate),
		Reminders:    reminder.NewHandler(reminder.NewService(ledger, gymRepo, emailService)),
		Emails:       emailService,
		Checks: map[string]server.Check{
			"postgres": database.PingContext,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	cancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Inbox worker did not stop before the shutdown deadline")
	}

	logger.Info("Server stopped")
}
