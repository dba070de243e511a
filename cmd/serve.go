package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hmkang/maieut/internal/assess"
	"github.com/hmkang/maieut/internal/config"
	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/httpapi"
	"github.com/hmkang/maieut/internal/llm"
	"github.com/hmkang/maieut/internal/metrics"
	"github.com/hmkang/maieut/internal/session"
	"github.com/hmkang/maieut/internal/store"
	"github.com/hmkang/maieut/internal/tutor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tutoring HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbPath, err := resolveDBPath(cmd, cfg.DBPath)
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Every model call lands in both the sqlite audit trail and the
	// Prometheus counters.
	provider, err := llm.NewProvider(ctx, cfg.LLM, llm.Recorders{st, m})
	if err != nil {
		return err
	}

	tut := tutor.New(provider, tutor.DefaultConfig())
	ev := assess.New(provider, assess.DefaultConfig())
	orch := conversation.New(tut, ev)
	svc := session.New(st, orch, tut, m)

	server := httpapi.NewServer(svc, orch, m)

	log.Printf("Starting maieut on port %d", cfg.Port)
	log.Printf("Database: %s", dbPath)
	log.Printf("Model: %s (%s)", provider.ModelID(), cfg.LLM.Provider)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("Received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
