package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jbweber/homelab/animes/internal/api"
	"github.com/jbweber/homelab/animes/internal/repository"
	"github.com/jbweber/homelab/animes/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the /animes HTTP API until interrupted. In-flight requests are given
http.shutdown_timeout to finish once SIGINT or SIGTERM arrives.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "interface to listen on")
	serveCmd.Flags().String("port", "8080", "port to listen on")
	bindFlags(serveCmd.Flags(), map[string]string{
		"http.host": "host",
		"http.port": "port",
	})

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ds, err := cfg.InitializeDatabase(log)
	if err != nil {
		return err
	}
	defer func() {
		if err := ds.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}()

	repo := repository.NewAnimeRepository(ds, log)
	defer repo.Close()
	svc := service.NewAnimeService(repo, ds, log)
	handler := api.NewAPI(svc, ds, api.Options{
		Paging: api.PagingOptions{
			DefaultSize: cfg.Paging.DefaultSize,
			MaxSize:     cfg.Paging.MaxSize,
		},
		RequestTimeout: cfg.HTTP.WriteTimeout,
	}, log).Routes()

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("config", viper.ConfigFileUsed()).Msg("starting animes web service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
