package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goldlanka/goldmarket/internal/blob"
	"github.com/goldlanka/goldmarket/internal/database"
	"github.com/goldlanka/goldmarket/internal/server"
)

// serveCmd runs the HTTP server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server and JSON API",
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("addr", ":8080", "listen address")
	flags.String("base-url", "http://localhost:8080", "public URL used in links, sitemap and RSS")
	flags.String("blobs", "goldmarket-blobs.db", "upload store file")
	mustBind("server.addr", flags.Lookup("addr"))
	mustBind("server.base_url", flags.Lookup("base-url"))
	mustBind("blobs.path", flags.Lookup("blobs"))
	rootCmd.AddCommand(serveCmd)
}

func openStore() (*database.DB, error) {
	db, err := database.Open(cfg.Database.Driver, cfg.Database.Source())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	blobs, err := blob.Open(cfg.Blobs.Path, cfg.Blobs.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	defer blobs.Close()

	srv, err := server.New(db, blobs, server.Options{
		BaseURL:        cfg.Server.BaseURL,
		RequestTimeout: cfg.Server.RequestTimeout,
		PageSize:       cfg.Feed.PageSize,
		MaxUploadBytes: int64(cfg.Blobs.MaxUploadBytes),
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	return <-errCh
}
