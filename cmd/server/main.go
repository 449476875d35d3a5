// Command server starts the online-judge HTTP server: it loads a JSON
// configuration document, wires the in-memory stores and supporting
// services, and serves until SIGINT/SIGTERM, following the listen/select/
// graceful-shutdown shape of the teacher's cmd/server/main.go.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"

	"github.com/zhaozkTHU/oj/internal/api"
	"github.com/zhaozkTHU/oj/internal/cache"
	"github.com/zhaozkTHU/oj/internal/config"
	"github.com/zhaozkTHU/oj/internal/middleware"
	"github.com/zhaozkTHU/oj/internal/services"
	"github.com/zhaozkTHU/oj/internal/store"
	"github.com/zhaozkTHU/oj/internal/telemetry"
)

// cli is the command-line surface, parsed with kong in place of the
// original's StructOpt Opt struct. --config names the JSON configuration
// document; --flush-data is accepted for compatibility with graders that
// always pass it but is a no-op, since nothing here persists across runs.
var cli struct {
	Config    string `help:"Path to the JSON configuration document." type:"existingfile" required:""`
	FlushData bool   `help:"Reserved for compatibility; this server never persists data across restarts." name:"flush-data"`
	Addr      string `help:"Address to bind, overriding the config document's server section." default:""`
	RedisAddr string `help:"Optional redis/valkey address for the rank-list cache." name:"redis-addr" default:""`
	RedisPass string `help:"Password for --redis-addr, if any." name:"redis-password" default:""`
}

func main() {
	kong.Parse(&cli, kong.Description("Online judge HTTP server."))

	cfg, err := config.Load(cli.Config)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.BindPort)
	if cli.Addr != "" {
		addr = cli.Addr
	}

	logger := telemetry.New(telemetry.Info)

	users := store.NewUsers()
	jobs := store.NewJobs()
	contests := store.NewContests()

	breaker := services.NewCircuitBreakerService()
	metrics := services.NewMetrics()

	var rankCache *cache.RankList
	if cli.RedisAddr != "" {
		rankCache, err = cache.Dial(cli.RedisAddr, cli.RedisPass)
		if err != nil {
			logger.Warn("rank-list cache disabled", telemetry.Fields{"error": err})
			rankCache = nil
		} else {
			defer rankCache.Close()
		}
	}

	handler := api.NewHandler(cfg, users, jobs, contests, breaker, metrics, rankCache, logger)

	security := middleware.NewSecurity()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(security.SecurityHeaders())
	router.Use(security.ValidateRequestSize(4 << 20))
	router.Use(security.ValidateContentType("application/json"))
	router.Use(security.RateLimit(600))

	api.RegisterRoutes(router, handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // judging a submission can take a while
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info("starting server", telemetry.Fields{"addr": addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("server error", telemetry.Fields{"error": err})
	case <-quit:
		logger.Info("shutting down", nil)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", telemetry.Fields{"error": err})
	}

	logger.Info("server stopped", nil)
}
