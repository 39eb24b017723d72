package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"predictionmarket/internal/access"
	"predictionmarket/internal/auth"
	"predictionmarket/internal/collateral"
	"predictionmarket/internal/config"
	cronrunner "predictionmarket/internal/cron"
	"predictionmarket/internal/db"
	"predictionmarket/internal/engine"
	"predictionmarket/internal/handler"
	"predictionmarket/internal/ledger"
	"predictionmarket/internal/logger"
	gormrepository "predictionmarket/internal/repository/gorm"
	"predictionmarket/internal/stream"

	_ "predictionmarket/docs"
)

func main() {
	cfgPath := os.Getenv("PME_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PME_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	var hub *stream.Hub
	if cfg.Stream.Enabled {
		hub = &stream.Hub{Logger: logger, BufferSize: cfg.Stream.BufferSize}
	}

	accessCtl := &access.Controller{Repo: store, Logger: logger}
	tokenLedger := &ledger.Ledger{Repo: store, Logger: logger}
	vault := &collateral.AccountVault{Repo: store, Logger: logger}
	marketEngine := &engine.Engine{
		Repo:            store,
		Access:          accessCtl,
		Ledger:          tokenLedger,
		Vault:           vault,
		Logger:          logger,
		MaxQuestionLen:  cfg.Engine.MaxQuestionLen,
		ExpirySweepSize: cfg.Engine.ExpirySweepSize,
		EventRetention:  cfg.Engine.EventRetention,
	}
	if hub != nil {
		marketEngine.Stream = hub
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(auth.PrincipalMiddleware(cfg.Auth))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	engineHandler := &handler.EngineHandler{Engine: marketEngine, Logger: logger}
	engineHandler.Register(router)
	marketHandler := &handler.MarketHandler{Engine: marketEngine, Logger: logger}
	marketHandler.Register(router)
	tokenHandler := &handler.TokenHandler{Engine: marketEngine, Ledger: tokenLedger, Logger: logger}
	tokenHandler.Register(router)
	collateralHandler := &handler.CollateralHandler{Vault: vault, Logger: logger}
	collateralHandler.Register(router)
	if hub != nil {
		hub.Register(router)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Cron.ExpirySweep, func(ctx context.Context) {
			if err := marketEngine.SweepExpired(ctx); err != nil {
				logger.Warn("expiry sweep failed", zap.Error(err))
			}
		}); err != nil {
			logger.Warn("cron register expiry sweep failed", zap.Error(err))
		}
		if _, err := cronRunner.Add(cfg.Cron.EventPrune, func(ctx context.Context) {
			if err := marketEngine.PruneEvents(ctx); err != nil {
				logger.Warn("event prune failed", zap.Error(err))
			}
		}); err != nil {
			logger.Warn("cron register event prune failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Principal")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
