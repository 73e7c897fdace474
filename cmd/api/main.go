package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"product-catalog/internal/batchstore"
	"product-catalog/internal/config"
	"product-catalog/internal/db"
	"product-catalog/internal/httpserver"
	"product-catalog/internal/importer"
	"product-catalog/internal/logging"
	"product-catalog/internal/metrics"
	"product-catalog/internal/repository/importstore"
	productrepo "product-catalog/internal/repository/product"
	refrepo "product-catalog/internal/repository/reference"
	importsvc "product-catalog/internal/service/imports"
	productsvc "product-catalog/internal/service/product"
	refsvc "product-catalog/internal/service/reference"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.Must(cfg.LogLevel, cfg.LogFormat).With(zap.String("app", "api"))
	defer logger.Sync()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	var snapshots batchstore.Store = batchstore.NewMemory(cfg.BatchTTL)
	if cfg.RedisURL != "" {
		client, err := batchstore.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("connect to redis", zap.Error(err))
		}
		defer client.Close()
		snapshots = batchstore.NewRedis(client, cfg.BatchTTL)
	}

	m := metrics.New()
	imp := importer.New(importstore.NewPostgres(dbpool, logger), importer.Options{
		ChunkSize: cfg.ImportChunkSize,
		Workers:   cfg.ImportWorkers,
		Logger:    logger.Named("importer"),
		Metrics:   m,
		Snapshots: snapshots,
	})

	refRepo := refrepo.NewPostgres(dbpool, logger)
	productRepo := productrepo.NewPostgres(dbpool, logger)

	gin.SetMode(gin.ReleaseMode)
	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.HTTPAddr,
		CORSOrigins: cfg.CORSOrigins,
		ExportDir:   cfg.ExportDir,
	}, httpserver.Deps{
		References: refsvc.New(refRepo, productRepo),
		Products: productsvc.New(productRepo, refRepo, productsvc.ExportConfig{
			Dir:     cfg.ExportDir,
			URLHost: cfg.FileURLHost,
		}, logger),
		Imports:        importsvc.New(imp, snapshots, cfg.UploadDir, logger),
		DB:             dbpool,
		Metrics:        m,
		MetricsHandler: m.Handler(),
	}, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := imp.Shutdown(ctx); err != nil {
		logger.Error("imports still running at shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
