package matchengine

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openincentives/matchengine/pkg/config"
	"github.com/openincentives/matchengine/pkg/server"
	"github.com/openincentives/matchengine/pkg/types"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP server exposing the ranking pipeline over REST.

The server provides endpoints for:
- Ingesting candidate organizations
- Ranking the pool against funding programs
- Querying cost statistics
- Health checks`,
	RunE: runServer,
}

var (
	serverHost     string
	serverPort     int
	serverMode     string
	serverOrgsPath string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "release", "Server mode (debug, release, test)")
	serverCmd.Flags().StringVar(&serverOrgsPath, "organizations", "", "JSON file of organizations to index at startup")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	if serverOrgsPath != "" {
		var orgs []*types.Organization
		if err := readJSONFile(serverOrgsPath, &orgs); err != nil {
			return fmt.Errorf("reading organizations: %w", err)
		}
		if err := eng.matcher.AddCandidates(cmd.Context(), orgs); err != nil {
			return fmt.Errorf("indexing organizations: %w", err)
		}
		eng.logger.Info("candidate pool indexed", "organizations", eng.matcher.CandidateCount())
	}

	srv := server.New(cfg, eng.matcher)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		eng.logger.Info("starting server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		eng.logger.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		eng.logger.Info("server stopped gracefully")
		return nil
	}
}
