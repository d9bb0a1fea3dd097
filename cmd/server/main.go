package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/stitchdesk/stitchdesk/internal/config"
	"github.com/stitchdesk/stitchdesk/internal/es"
	"github.com/stitchdesk/stitchdesk/internal/events"
	"github.com/stitchdesk/stitchdesk/internal/genai"
	"github.com/stitchdesk/stitchdesk/internal/handlers"
	"github.com/stitchdesk/stitchdesk/internal/logging"
	loggingmw "github.com/stitchdesk/stitchdesk/internal/middleware/logging"
	"github.com/stitchdesk/stitchdesk/internal/tokens"
	httpserver "github.com/stitchdesk/stitchdesk/internal/transport/http"
	"github.com/stitchdesk/stitchdesk/internal/validation"
)

const employeeIndex = "employees"

func main() {
	cfg := config.Load()
	cfg.MustValidate()

	level := "debug"
	if cfg.Env == "production" {
		level = "info"
	}
	logger := logging.New(level)

	ctx := context.Background()
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	tokenSvc := &tokens.Service{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	producer := events.NewProducer(cfg.KafkaBrokers)

	var esClient *elasticsearch.Client
	if cfg.ESURL != "" {
		esClient, err = es.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("elasticsearch unavailable, employee search disabled", "error", err)
			esClient = nil
		}
	}

	provider := genai.NewClient(cfg.ProviderURL, cfg.ProviderKey, cfg.ProviderModel)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Tokens: tokenSvc,
		Auth: &handlers.AuthHandler{
			DB: db, Tokens: tokenSvc, Producer: producer, ES: esClient, ESIndex: employeeIndex,
		},
		Employees: &handlers.EmployeeHandler{
			DB: db, Producer: producer, ES: esClient, ESIndex: employeeIndex,
		},
		Todos: &handlers.TodoHandler{DB: db, Producer: producer},
		Generate: &handlers.GenerateHandler{
			DB: db, Provider: provider, Producer: producer,
			AppURL: cfg.AppURL, ContentsDir: cfg.ContentsDir,
		},
		UploadDir:   cfg.UploadDir,
		ContentsDir: cfg.ContentsDir,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
