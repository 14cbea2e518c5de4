package main

import (
	"fmt"
	"os"

	"github.com/kmorisaki/billing-recon/internal/auth"
	"github.com/kmorisaki/billing-recon/internal/config"
	"github.com/kmorisaki/billing-recon/internal/db"
	"github.com/kmorisaki/billing-recon/internal/excel"
	httphandler "github.com/kmorisaki/billing-recon/internal/http"
	"github.com/kmorisaki/billing-recon/internal/http/middleware"
	"github.com/kmorisaki/billing-recon/internal/logger"
	"github.com/kmorisaki/billing-recon/internal/pdf"
	"github.com/kmorisaki/billing-recon/internal/repository"
	"github.com/kmorisaki/billing-recon/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.AccessSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_ACCESS_SECRET is required")
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	reconRepo := repository.NewReconRepository(database)
	reconService := service.NewReconService(reconRepo, cfg, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(reconService, excel.NewGenerator(), pdf.NewGenerator(), log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting recon service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
