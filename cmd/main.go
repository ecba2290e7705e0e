package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"albumgrab/internal/api"
	"albumgrab/internal/catalog"
	"albumgrab/internal/config"
	"albumgrab/internal/download"
	"albumgrab/internal/fetcher"
	fileutil "albumgrab/internal/file"
	"albumgrab/internal/progress"
	"albumgrab/internal/ui"
)

const envConfigPath = "CONFIG_PATH"

func main() {

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.ZerologLevel())

	if cfg.Lidarr.APIKey == "" {
		log.Warn().Msg("lidarr api key is empty; catalog requests will likely be rejected")
	}

	if err := fileutil.EnsureDir(cfg.DownloadDir); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DownloadDir).Msg("ensure download dir")
	}

	router := setupRouter()

	lidarr := catalog.NewClient(cfg.Lidarr.URL, cfg.Lidarr.APIKey, cfg.Lidarr.PageSize, cfg.Lidarr.Timeout)
	downloads := buildDownloadManager(cfg, lidarr)
	wireAPI(router, downloads, lidarr)

	baseCtx, baseCancel := context.WithCancel(context.Background())
	downloads.SetBaseContext(baseCtx)

	const (
		readHeaderTimeout = 5 * time.Second
		shutdownTimeout   = 10 * time.Second
	)

	srv := newHTTPServer(cfg.Port, router, readHeaderTimeout)

	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("lidarr_url", cfg.Lidarr.URL).
			Str("download_dir", cfg.DownloadDir).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdownSignal()

	gracefulShutdown(srv, baseCancel, downloads, shutdownTimeout)
}

func configPath() string {
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	return "config.yml"
}

func setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(api.ZerologLogger())
	return r
}

func buildDownloadManager(cfg config.Config, lidarr *catalog.Client) *download.Manager {
	return download.NewManager(download.Options{
		DownloadDir: cfg.DownloadDir,
		Catalog:     lidarr,
		Fetcher: fetcher.New(fetcher.Options{
			Binary:       cfg.Fetcher.Binary,
			AudioFormat:  cfg.Fetcher.AudioFormat,
			AudioQuality: cfg.Fetcher.AudioQuality,
			UserAgent:    cfg.Fetcher.UserAgent,
		}),
		Store: progress.NewStore(),
	})
}

func wireAPI(router *gin.Engine, downloads *download.Manager, lidarr *catalog.Client) {
	apiHandler := api.NewAPI(downloads, lidarr)
	apiHandler.RegisterRoutes(router)

	uiHandler := ui.NewUI(lidarr, downloads)
	uiHandler.RegisterRoutes(router)
}

func newHTTPServer(port int, handler http.Handler, readHeaderTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func waitForShutdownSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
}

func gracefulShutdown(srv *http.Server, cancelBase context.CancelFunc, downloads *download.Manager, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown warning")
	}

	cancelBase()
	done := downloads.WaitAll(ctx)
	if !done {
		log.Warn().Msg("album downloads did not finish before timeout")
	}
	log.Info().Msg("server exited cleanly")
}
