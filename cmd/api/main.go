package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/finveo/invoiceflow-api/internal/application/service"
	"github.com/finveo/invoiceflow-api/internal/config"
	"github.com/finveo/invoiceflow-api/internal/infrastructure/database"
	"github.com/finveo/invoiceflow-api/internal/infrastructure/repository"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/handler"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/routes"
	"github.com/finveo/invoiceflow-api/pkg/email"
	"github.com/finveo/invoiceflow-api/pkg/pdfgen"
	"github.com/finveo/invoiceflow-api/pkg/utils"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed default data
	if err := database.SeedDefaultData(db); err != nil {
		log.Printf("Warning: Failed to seed default data: %v", err)
	}

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Initialize SMTP mailer
	mailer := email.NewSMTPMailer(email.Config{
		SMTPHost:    cfg.Email.SMTPHost,
		SMTPPort:    cfg.Email.SMTPPort,
		Username:    cfg.Email.Username,
		Password:    cfg.Email.Password,
		FromName:    cfg.Email.FromName,
		FromEmail:   cfg.Email.FromEmail,
		SendTimeout: 15 * time.Second,
	})

	// Initialize services. The audit and notification workers run for the
	// lifetime of the process and drain their queues on shutdown.
	auditService := service.NewAuditService(auditRepo, cfg.Audit.RetentionDays, cfg.Audit.QueueSize)
	auditService.Start()

	notificationService := service.NewNotificationService(
		notificationRepo,
		emailLogRepo,
		mailer,
		auditService,
		cfg.Email.MaxAttempts,
		cfg.Email.QueueSize,
	)
	notificationService.Start()

	allocator := service.NewNumberAllocator(sequenceRepo, cfg.Receipt.NumberWidth)
	taxCalculator := service.NewTaxCalculator()
	renderer := pdfgen.NewFPDFRenderer()

	receiptService := service.NewReceiptService(
		receiptRepo,
		paymentRepo,
		invoiceRepo,
		userRepo,
		allocator,
		taxCalculator,
		renderer,
		notificationService,
		auditService,
		cfg.Company,
		cfg.Storage.Path,
		cfg.PDF.RenderTimeout,
		cfg.Receipt.DefaultTaxRate,
	)

	tokenService := service.NewTokenService(
		tokenRepo,
		receiptRepo,
		receiptService,
		auditService,
		cfg.Token.TTL,
		cfg.Token.MaxDownloads,
	)

	paymentService := service.NewPaymentService(paymentRepo, receiptService, auditService)
	authService := service.NewAuthService(userRepo, jwtManager)

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Receipt:      handler.NewReceiptHandler(receiptService, tokenService),
		Download:     handler.NewDownloadHandler(tokenService),
		Notification: handler.NewNotificationHandler(notificationService),
		Audit:        handler.NewAuditHandler(auditService),
		Webhook:      handler.NewWebhookHandler(paymentService, cfg.Webhook.SigningSecret),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		Cfg:             cfg,
		JWTManager:      jwtManager,
		IdempotencyRepo: idempotencyRepo,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic audit retention sweep
	go auditService.RunSweeper(ctx, cfg.Audit.SweepInterval)

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting %s server on port %s...", cfg.App.Name, port)
		log.Printf("Environment: %s", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Stop workers after the server so in-flight requests can still enqueue
	notificationService.Stop()
	auditService.Stop()
	log.Println("Shutdown complete")
}
