// Package app boots the FuelGuard API server: configuration, database,
// background workers, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/blacklist"
	"github.com/fuelguard-dz/fuelguard/internal/config"
	"github.com/fuelguard-dz/fuelguard/internal/db"
	"github.com/fuelguard-dz/fuelguard/internal/http/api"
	"github.com/fuelguard-dz/fuelguard/internal/logging"
	"github.com/fuelguard-dz/fuelguard/internal/qrcode"
	"github.com/fuelguard-dz/fuelguard/internal/quota"
	"github.com/fuelguard-dz/fuelguard/internal/rulecache"
	"github.com/fuelguard-dz/fuelguard/internal/security"
)

// Migrate opens the database and runs migrations without starting the server.
func Migrate(ctx context.Context, configPath string) error {
	_ = godotenv.Load()
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the API server and blocks until ctx is cancelled.
func RunServer(ctx context.Context, configPath string) error {
	_ = godotenv.Load()
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSeed := db.Seed(conn); errSeed != nil {
		return errSeed
	}

	signer := security.NewSigner(cfg.QR.Secret)
	qrService := qrcode.NewService(conn, signer)
	blacklistService := blacklist.NewService(conn)
	rules := rulecache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, quota.NewDBRules(conn))
	engine := quota.NewEngine(conn, blacklistService, rules)
	recorder := quota.NewRecorder(conn)

	auditRecorder := audit.NewRecorder(conn)
	auditRecorder.Start(ctx)
	qrcode.NewSweeper(conn).Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	api.RegisterRoutes(router, api.Deps{
		DB:        conn,
		JWT:       cfg.JWT,
		QR:        qrService,
		Engine:    engine,
		Recorder:  recorder,
		Blacklist: blacklistService,
		Rules:     rules,
		Audit:     auditRecorder,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// requestLogger logs each request with method, path, status, and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}
