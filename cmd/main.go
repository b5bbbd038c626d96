package main

//
//  @title           k4ledger API
//  @version         1.0
//  @description     Swedish K4 capital-gains ledger: replays broker trades and serves the realized gains of each tax year.
//  @termsOfService  https://github.com/guttosm/k4ledger
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/k4ledger
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        reports
//  @tag.description K4 rows, positions and journal of a tax year
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/guttosm/k4ledger/config"
	_ "github.com/guttosm/k4ledger/docs" // swagger docs
	"github.com/guttosm/k4ledger/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// newRootCmd builds the k4ledger command tree.
//
// Commands:
//   - report:  replay one or more tax years and write the K4 files.
//   - serve:   start the REST API over the stored reports.
//   - migrate: apply the SQL migrations to the configured store.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "k4ledger",
		Short: "Swedish K4 capital-gains ledger",
		Long: `k4ledger replays broker trade exports against a weighted-average-cost
ledger and produces the K4 tax form rows (INFO.SRU and BLANKETTER.SRU),
a trading journal and the closing portfolio carried into the next year.

Configuration is read from the environment or a .env file (see config).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadConfig(); err != nil {
				return err
			}
			logger.Init()
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				logger.SetLevel("debug")
			}
			return nil
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newReportCmd(),
		newServeCmd(),
		newMigrateCmd(),
	)
	return root
}

// main is the entry point of the k4ledger application.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
