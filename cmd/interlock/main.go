package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/interlock/internal/auth"
	"github.com/mistakeknot/interlock/internal/cli"
	httpapi "github.com/mistakeknot/interlock/internal/http"
	"github.com/mistakeknot/interlock/internal/mail"
	"github.com/mistakeknot/interlock/internal/server"
	"github.com/mistakeknot/interlock/internal/storage/sqlite"
	"github.com/mistakeknot/interlock/internal/ws"
)

func main() {
	root := &cobra.Command{
		Use:           "interlock",
		Short:         "Coordination server for concurrent agents: messaging and file reservations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), initKeysCmd())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveCmd() *cobra.Command {
	var (
		addr       string
		dbPath     string
		socketPath string
		keysFile   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordination server",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.New(dbPath)
			if err != nil {
				return fmt.Errorf("store init: %w", err)
			}
			defer store.Close()
			resilient := sqlite.NewResilient(store)

			if keysFile == "" {
				keysFile = auth.ResolveKeysPath()
			}
			keyring, err := auth.LoadKeyring(keysFile)
			if err != nil {
				return fmt.Errorf("auth init: %w", err)
			}

			hub := ws.NewHub()
			coordinator := mail.NewService(resilient, mail.WithBroadcaster(hub))
			svc := httpapi.NewService(coordinator, resilient)
			router := httpapi.NewRouter(svc, hub.Handler(), auth.Middleware(keyring))

			srv, err := server.New(server.Config{
				Addr:       addr,
				SocketPath: socketPath,
				Handler:    router,
			})
			if err != nil {
				return fmt.Errorf("server init: %w", err)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			log.Printf("listening on %s (db %s)", addr, dbPath)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.Printf("shutting down on %v", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":7438", "listen address")
	cmd.Flags().StringVar(&dbPath, "db", "interlock.db", "sqlite database path")
	cmd.Flags().StringVar(&socketPath, "socket", "", "optional unix socket path")
	cmd.Flags().StringVar(&keysFile, "keys-file", "", "api keys file (default $INTERLOCK_KEYS_FILE or ./interlock.keys.yaml)")
	return cmd
}

func initKeysCmd() *cobra.Command {
	var (
		keysFile string
		project  string
	)
	cmd := &cobra.Command{
		Use:   "init-keys",
		Short: "Generate an API key for a project and append it to the keys file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keysFile == "" {
				keysFile = auth.ResolveKeysPath()
			}
			key, err := cli.InitKeysFile(keysFile, project)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "project: %s\nkey: %s\nfile: %s\n", project, key, keysFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&keysFile, "keys-file", "", "api keys file (default $INTERLOCK_KEYS_FILE or ./interlock.keys.yaml)")
	cmd.Flags().StringVar(&project, "project", "dev", "project human key the new key is bound to")
	return cmd
}
