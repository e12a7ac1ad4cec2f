package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ginjaninja78/felica-ledger/internal/api"
	"github.com/ginjaninja78/felica-ledger/internal/archive"
	"github.com/ginjaninja78/felica-ledger/internal/scanner"
	"github.com/spf13/cobra"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scan session over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "Listen address (default: server.address from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newScanner()
	if err != nil {
		return err
	}

	var store api.Archiver
	if appConfig.Archive.Enabled() {
		client, err := archive.Connect(ctx, appConfig.Archive.MongoURI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		store = archive.New(archive.NewMongoProvider(client, appConfig.Archive.Database), appConfig.Archive.Collection)
	}

	app := api.NewApp(api.NewHandler(scanner.NewSession(s), store, Version, log))

	addr := appConfig.Server.Address
	if serveAddress != "" {
		addr = serveAddress
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Msg("listening")
		errc <- app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info().Msg("shutting down")
	return app.ShutdownWithContext(shutdownCtx)
}
