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

	"rhythm-features/internal/config"
	"rhythm-features/internal/processor"
	"rhythm-features/internal/server"
	"rhythm-features/internal/watch"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve [flags] DIR",
	Short: "Process a directory, watch it for changes, and serve the dataset over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (localhost only)")
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") && flagListen != "" {
		settings.ListenAddr = flagListen
	}
	if err := config.ValidateListenAddr(settings.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", settings.ListenAddr, err)
	}

	root := args[0]
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	proc, err := processor.New(settings, logger)
	if err != nil {
		return err
	}
	defer proc.Close()

	watcher, err := watch.New(root, proc, settings.Debounce, logger)
	if err != nil {
		return fmt.Errorf("initialise watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Error("error closing watcher", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           server.New(proc, logger),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("graceful shutdown error", "error", err)
		}
	}()

	logger.Info("listening", "addr", settings.ListenAddr, "audio_root", root)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
