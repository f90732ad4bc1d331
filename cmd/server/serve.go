package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okothc/sauti/internal/dispatch"
	"github.com/okothc/sauti/internal/httpapi"
	"github.com/okothc/sauti/internal/menu"
	"github.com/okothc/sauti/internal/orchestrator"
	"github.com/okothc/sauti/internal/storage"
	"github.com/okothc/sauti/internal/ussd"
	"github.com/okothc/sauti/internal/voice"
)

func serveCmd() *cobra.Command {
	var (
		addr        string
		dbPath      string
		postgresURL string
		catalogPath string
		baseURL     string
		idleTimeout time.Duration
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway callback server",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(dbPath, postgresURL)
			if err != nil {
				return err
			}
			defer store.Close()

			catalog := menu.NewCatalog()
			if catalogPath != "" {
				if err := catalog.LoadFile(catalogPath); err != nil {
					return err
				}
			}

			dispatcher := dispatch.NewDispatcher(store, dispatch.LogEnricher{}, dispatch.LogNotifier{}, workers, 0)
			defer dispatcher.Stop()

			um := ussd.NewMachine(catalog, store, dispatch.LogDialer{})
			vm := voice.NewMachine(catalog, store, baseURL)

			orch := orchestrator.New(store, um, vm, dispatcher,
				orchestrator.WithIdleTimeout(idleTimeout))
			orch.StartSweeper()
			defer orch.Stop()

			server := &http.Server{
				Addr:    addr,
				Handler: httpapi.NewRouter(orch),
			}

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", addr)
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.Printf("received %s, shutting down", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&dbPath, "db", "sauti.db", "sqlite database path")
	cmd.Flags().StringVar(&postgresURL, "postgres", os.Getenv("DATABASE_URL"), "postgres connection string (overrides --db)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML file with menu/text overrides")
	cmd.Flags().StringVar(&baseURL, "base-url", os.Getenv("BASE_URL"), "public base URL for voice callback attributes")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 10*time.Minute, "force-finalize sessions idle longer than this")
	cmd.Flags().IntVar(&workers, "workers", 2, "dispatcher worker count")

	return cmd
}

func openStore(dbPath, postgresURL string) (storage.Store, error) {
	if postgresURL != "" {
		return storage.NewPostgresStore(postgresURL)
	}
	return storage.NewSQLiteStore(dbPath)
}
