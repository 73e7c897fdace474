package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"product-catalog/internal/config"
	"product-catalog/internal/db"
	"product-catalog/internal/export"
	"product-catalog/internal/importer"
	"product-catalog/internal/logging"
	"product-catalog/internal/repository/importstore"
	productrepo "product-catalog/internal/repository/product"
	refrepo "product-catalog/internal/repository/reference"
	productsvc "product-catalog/internal/service/product"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "importer",
		Short:         "Import product CSV files into the catalog and export categories",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newImportCmd(), newExportCmd())
	return root
}

func newImportCmd() *cobra.Command {
	var (
		file      string
		chunkSize int
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import products from a CSV file and wait for the batch to finish",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if !cmd.Flags().Changed("chunk-size") {
				chunkSize = cfg.ImportChunkSize
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.ImportWorkers
			}
			logger := logging.Must(cfg.LogLevel, cfg.LogFormat).With(zap.String("app", "importer"))
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			defer pool.Close()

			imp := importer.New(importstore.NewPostgres(pool, logger), importer.Options{
				ChunkSize: chunkSize,
				Workers:   workers,
				Logger:    logger,
			})
			b, err := imp.ImportFile(ctx, file)
			if err != nil {
				return err
			}

			snap, err := b.Wait(ctx)
			if err != nil {
				// interrupted: stop scheduling and let in-flight chunks commit
				b.Cancel()
				snap, err = b.Wait(context.Background())
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", snap.Name, snap.Status)
			fmt.Fprintf(out, "chunks: %d succeeded, %d failed, %d cancelled; records written: %d\n",
				snap.Succeeded, snap.Failed, snap.Cancelled, snap.Records)
			for _, f := range snap.Failures {
				fmt.Fprintf(out, "  chunk %d (%s..%s): %s\n", f.Index, f.FirstProduct, f.LastProduct, f.Error)
			}
			if snap.Error != "" {
				fmt.Fprintf(out, "source error: %s\n", snap.Error)
			}
			if snap.Status != importer.StatusCompleted {
				return fmt.Errorf("import finished with status %s", snap.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file path (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", importer.DefaultChunkSize, "Records per transaction")
	cmd.Flags().IntVar(&workers, "workers", 4, "Chunks processed concurrently")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		categoryID int64
		format     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the products of a category to the export directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg := config.FromEnv()
			logger := logging.Must(cfg.LogLevel, cfg.LogFormat).With(zap.String("app", "importer"))
			defer logger.Sync()

			pool, err := db.Connect(cmd.Context(), cfg.DBConnString, cfg.DBMaxConns)
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			defer pool.Close()

			refs := refrepo.NewPostgres(pool, logger)
			svc := productsvc.New(productrepo.NewPostgres(pool, logger), refs, productsvc.ExportConfig{
				Dir:     cfg.ExportDir,
				URLHost: cfg.FileURLHost,
			}, logger)
			url, err := svc.Export(cmd.Context(), categoryID, f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	cmd.Flags().Int64Var(&categoryID, "category-id", 0, "Category to export (required)")
	_ = cmd.MarkFlagRequired("category-id")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	return cmd
}
