// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	internal_call "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/call"
	crm_client "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/crm"
	internal_realtime "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/realtime"
	internal_telephony "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/telephony"
	voice_routers "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/router"
	"github.com/brysonmccleary/CoveCRM-sub002/config"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
)

const (
	canaryTimeout   = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	v, err := config.InitConfig()
	if err != nil {
		log.Fatalf("config init: %v", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	loggerOpts := []commons.LoggerOption{commons.WithLevel(cfg.LogLevel)}
	if cfg.LogFile != "" {
		loggerOpts = append(loggerOpts, commons.WithRotatingFile(cfg.LogFile))
	}
	logger, err := commons.NewApplicationLogger(loggerOpts...)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatalf("ai-voice-server exited: %s", err.Error())
	}
}

func run(cfg *config.AppConfig, logger commons.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The model link must work before we accept a single call.
	canaryCtx, cancel := context.WithTimeout(ctx, canaryTimeout)
	err := internal_realtime.Canary(canaryCtx, internal_realtime.Config{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIRealtimeModel,
	}, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("startup canary: %w", err)
	}

	crm := crm_client.NewCoveCRMClient(cfg, logger)
	callRegistry := internal_call.NewRegistry()
	sessionRegistry := voice_routers.NewSessionRegistry()
	handler := internal_telephony.NewHandler(cfg, logger, crm, callRegistry)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	health := voice_routers.NewHealthApi(callRegistry)
	voice_routers.HealthCheckRoutes(engine, logger, health)
	voice_routers.SessionRoutes(cfg, engine, logger, sessionRegistry)
	voice_routers.MediaStreamRoutes(engine, logger, handler)
	health.MarkReady()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infow("ai-voice-server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down, ending live calls")

		callRegistry.EndAll("server_shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
