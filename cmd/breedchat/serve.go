package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/breedchat/internal/auth"
	"github.com/vbonduro/breedchat/internal/db"
	"github.com/vbonduro/breedchat/internal/imagestore/local"
	"github.com/vbonduro/breedchat/internal/service"
	"github.com/vbonduro/breedchat/internal/store"
	"github.com/vbonduro/breedchat/internal/web"
)

const shutdownTimeout = 15 * time.Second

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newCore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close(logger)

	if cfg.EagerModelLoad {
		if err := c.classifier.Load(); err != nil {
			return err
		}
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	images, err := local.New(cfg.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to initialize image store: %w", err)
	}

	deps := web.Deps{
		Composer:    c.composer,
		Gate:        c.gate,
		Classifier:  c.classifier,
		Knowledge:   c.knowledge,
		History:     service.NewHistoryService(store.NewSessionStore(database), store.NewMessageStore(database), images, logger),
		Accounts:    service.NewAccountService(store.NewUserStore(database), store.NewOrderStore(database), logger),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	}
	if cfg.JWTSecret != "" {
		deps.Auth = auth.NewVerifier(cfg.JWTSecret, logger)
		logger.Info("bearer auth enabled for user routes")
	}
	srv := web.NewServer(deps).HTTPServer(cfg.ListenAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
