package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/laptopshop/order-service/internal/config"
	"github.com/laptopshop/order-service/internal/db"
	"github.com/laptopshop/order-service/internal/handler"
	"github.com/laptopshop/order-service/internal/mail"
	"github.com/laptopshop/order-service/internal/order"
	"github.com/laptopshop/order-service/internal/product"
	"github.com/laptopshop/order-service/internal/receipt"
	"github.com/laptopshop/order-service/internal/user"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "order-service").Logger()

	log.Info().Msg("Order service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(context.Background(), *cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	if err := db.ApplyMigrations(*cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	receiptStore, err := receipt.NewDirStore(cfg.Receipts.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare receipt directory")
	}

	dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)

	orderRepo := order.NewRepository(dbConn.Pool)
	userRepo := user.NewRepository(dbConn.Pool)
	productRepo := product.NewRepository(dbConn.Pool)
	receipts := receipt.NewGenerator(receiptStore)
	mailer := mail.NewMailer(dialer, cfg.SMTP.From)

	orderSvc := order.NewService(orderRepo, userRepo, productRepo, receipts, mailer)
	orderHandler := handler.NewOrderHandler(orderSvc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(handler.CallerIdentity)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	orderHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
