package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shopstack/ecommerce-api/internal/api"
	"github.com/shopstack/ecommerce-api/internal/auth"
	"github.com/shopstack/ecommerce-api/internal/db"
	"github.com/shopstack/ecommerce-api/internal/images"
	"github.com/shopstack/ecommerce-api/internal/mailer"
	"github.com/shopstack/ecommerce-api/internal/metrics"
	"github.com/shopstack/ecommerce-api/internal/payment"
	"github.com/shopstack/ecommerce-api/internal/services"
	"github.com/shopstack/ecommerce-api/pkg/config"
)

func main() {
	cfg := config.LoadConfig()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.OTELServiceName).Logger()

	ctx := context.Background()
	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("error shutting down meter provider")
		}
	}()

	database, err := db.NewDB(cfg.GetDSN(), cfg.OTELServiceName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if schemaSQL, err := os.ReadFile("schema.sql"); err != nil {
		logger.Warn().Err(err).Msg("could not read schema.sql, assuming schema already exists")
	} else if err := database.InitSchema(ctx, string(schemaSQL)); err != nil {
		logger.Warn().Err(err).Msg("could not initialize schema, assuming it already exists")
	}

	tokens := auth.NewMaker(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	mail := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	payments := payment.NewGateway(cfg.PaymentBaseURL, cfg.PaymentSecretKey)
	uploader := images.NewUploader(cfg.ImageUploadURL, cfg.ImageAPIKey, cfg.ImageFolder)

	userService := services.NewUserService(database, appMetrics, tokens, logger)
	productService := services.NewProductService(database, appMetrics, logger)
	categoryService := services.NewCategoryService(database, appMetrics)
	cartService := services.NewCartService(database, appMetrics, logger)
	notificationService := services.NewNotificationService(database, appMetrics, mail, cfg.AdminEmail, logger)
	// A nil payment recorder records every order as paid at creation time.
	// Swap in a gateway-backed recorder here to gate completion on the
	// processor instead.
	orderService := services.NewOrderService(database, appMetrics, productService, userService, notificationService, nil, logger)
	dashboardService := services.NewDashboardService(database, appMetrics, orderService, notificationService, userService)

	app := api.NewApp(cfg, database, appMetrics, logger, tokens, api.Services{
		Users:         userService,
		Products:      productService,
		Categories:    categoryService,
		Carts:         cartService,
		Orders:        orderService,
		Notifications: notificationService,
		Dashboards:    dashboardService,
	}, payments, uploader)

	router := mux.NewRouter()
	app.SetupRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.AppPort).Str("otlp_endpoint", cfg.OTELExporterOTLPEndpoint).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
