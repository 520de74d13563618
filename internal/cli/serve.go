package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rcliao/postcache/internal/server"
	"github.com/rcliao/postcache/internal/view"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the post list over HTTP",
		Long:  "Run the list screen headless: sync once on start, then serve the current list and accept refresh/load-local actions.",
		Run:   runServe,
	}

	cmd.Flags().StringP("listen", "l", "", "Listen address (default: $POSTCACHE_LISTEN or 127.0.0.1:8080)")
	cmd.Flags().Bool("no-sync", false, "Skip the initial sync")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	listen, _ := cmd.Flags().GetString("listen")
	noSync, _ := cmd.Flags().GetBool("no-sync")
	if listen == "" {
		listen = cfg.Listen
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	screen := view.New(newSyncer(s), view.RendererFunc(func(f view.Frame) {
		logger.Debug("render", "title", f.Title, "source", f.List.Source().String(), "count", f.List.Count())
	}), logger)
	go screen.Run(ctx)
	if !noSync {
		screen.Start()
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           server.New(screen, s, cfg.DBPath, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("serving", "addr", listen, "endpoint", cfg.Endpoint, "db", cfg.DBPath)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			exitErr("serve", err)
		}
	}
}
