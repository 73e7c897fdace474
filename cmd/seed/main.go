package main

import (
	"context"

	"go.uber.org/zap"

	"product-catalog/internal/config"
	"product-catalog/internal/db"
	"product-catalog/internal/logging"
	"product-catalog/internal/migrate"
	"product-catalog/internal/repository/importstore"
	"product-catalog/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.Must(cfg.LogLevel, cfg.LogFormat).With(zap.String("app", "seed"))
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	snap, err := seed.Apply(ctx, importstore.NewPostgres(pool, logger), logger)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
	logger.Info("seed applied", zap.Int("records", snap.Records), zap.Int("chunks", snap.Chunks))
}
