package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"clarity-podcast/internal/catalog"
	"clarity-podcast/internal/config"
	"clarity-podcast/internal/server"
)

const shutdownTimeout = 20 * time.Second

func newFeedCommand(ctx *commandContext) *cobra.Command {
	var listen string
	var watch bool

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Serve the RSS feed and the JSON episode API",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx.logger)
			if err != nil {
				return err
			}
			renderer, err := newFeedRenderer(ctx.logger)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = config.FeedListenAddr()
			}

			handler := server.NewFeedHandler(store, renderer, ctx.logger)
			return runServer(cmd.Context(), "feed", listen, handler, store, watch, ctx.logger)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (defaults to PODCAST_FEED_LISTEN_ADDR or 127.0.0.1:3001)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Validate the catalog whenever it changes on disk")
	return cmd
}

func newWebCommand(ctx *commandContext) *cobra.Command {
	var listen string
	var watch bool

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the episode website",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx.logger)
			if err != nil {
				return err
			}
			renderer, publicDir, err := newPageRenderer(ctx.logger)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = config.WebListenAddr()
			}

			handler := server.NewSiteHandler(store, renderer, publicDir, ctx.logger)
			return runServer(cmd.Context(), "web", listen, handler, store, watch, ctx.logger)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (defaults to PODCAST_WEB_LISTEN_ADDR or 127.0.0.1:3000)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Validate the catalog whenever it changes on disk")
	return cmd
}

func runServer(parent context.Context, name, addr string, handler http.Handler, store *catalog.Store, watch bool, logger *log.Logger) error {
	if err := config.ValidateListenAddr(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}

	if watch {
		watcher, err := catalog.NewWatcher(store, config.RefreshDebounce(), logger)
		if err != nil {
			return fmt.Errorf("watch catalog: %w", err)
		}
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Error("error closing catalog watcher", "err", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("graceful shutdown error", "err", err)
		}
	}()

	logger.Info("listening", "server", name, "addr", addr, "catalog", store.Path())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	logger.Info("shutdown complete", "server", name)
	return nil
}
