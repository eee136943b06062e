package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/SymptomDesk/internal/catalog"
	"github.com/Skufu/SymptomDesk/internal/chat"
	"github.com/Skufu/SymptomDesk/internal/consultlog"
	"github.com/Skufu/SymptomDesk/internal/platform/logger"
	"github.com/Skufu/SymptomDesk/internal/recommend"
)

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := loadConfig()
	if err != nil {
		// No config yet, so log with defaults.
		boot, _ := logger.New("dev")
		boot.Fatal("config error", "error", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	rules := recommend.DefaultRules()
	if cfg.RulesPath != "" {
		rules, err = recommend.LoadRules(cfg.RulesPath)
		if err != nil {
			log.Fatal("rules load failed", "path", cfg.RulesPath, "error", err)
		}
	}
	catalogs := catalog.NewSource(cfg.CatalogPath, log)
	engine := recommend.New(catalogs, rules)

	deps := routerDeps{
		engine:      engine,
		log:         log,
		maxClusters: cfg.MaxClusters,
		corsOrigins: cfg.CORSOrigins,
		staticRoot:  detectStaticRoot(),
		checks:      map[string]HealthChecker{},
	}

	var recorder consultlog.Recorder = consultlog.Nop{}
	if cfg.EnableDB {
		pg, err := consultlog.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database connection failed", "error", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal("database schema failed", "error", err)
		}
		recorder = pg
		deps.history = pg
		deps.checks["db"] = pg
	}

	var store chat.Store = chat.NewMemoryStore(cfg.SessionTTL)
	if cfg.RedisAddr != "" {
		rs, err := chat.NewRedisStore(ctx, cfg.RedisAddr, cfg.SessionTTL)
		if err != nil {
			log.Fatal("redis connection failed", "addr", cfg.RedisAddr, "error", err)
		}
		defer rs.Close()
		store = rs
		deps.checks["redis"] = rs
	}

	deps.chat = chat.NewService(store, engine, chat.Options{
		BotName:     cfg.BotName,
		MaxClusters: cfg.MaxClusters,
		Recorder:    recorder,
		Logger:      log,
	})

	// Load the catalog eagerly.
	log.Info("catalog ready", "items", catalogs.Catalog().Len())

	router := setupRouter(deps)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", "error", err)
		}
	}()

	log.Info("server listening", "port", cfg.Port, "db", cfg.EnableDB, "redis", cfg.RedisAddr != "")
	waitForShutdown(server, log)
}

func waitForShutdown(server *http.Server, log *logger.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
