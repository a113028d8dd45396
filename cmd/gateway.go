package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platform-mesh/graphql-module-gateway/common/config"
	"github.com/platform-mesh/graphql-module-gateway/common/logger"
	gatewayhttp "github.com/platform-mesh/graphql-module-gateway/gateway/http"
	"github.com/platform-mesh/graphql-module-gateway/gateway/manager"
)

var gatewayCmd = &cobra.Command{
	Use:     "gateway",
	Short:   "Run the GraphQL gateway",
	Example: "go run main.go gateway --schemas-dir ./schemas --watch-schemas",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log.Info().Str("LogLevel", log.GetLevel().String()).Str("version", version).Msg("Starting the Gateway...")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := manager.NewService(ctx, log, appCfg, compiledIn(log, appCfg))
		if err != nil {
			return fmt.Errorf("failed to create gateway: %w", err)
		}

		return runServers(ctx, log, appCfg, svc)
	},
}

func createServers(log *logger.Logger, cfg config.Config, svc *manager.Service) ([]gatewayhttp.Server, error) {
	mainServer, err := gatewayhttp.NewServer(gatewayhttp.ServerConfig{
		Gateway: svc,
		Ready:   svc.Ready,
		Addr:    fmt.Sprintf(":%s", cfg.Gateway.Port),
		Log:     log,
	})
	if err != nil {
		return nil, err
	}

	servers := []gatewayhttp.Server{mainServer}
	for _, addr := range probeAddresses(cfg) {
		servers = append(servers, gatewayhttp.NewProbeServer(addr, svc.Ready, log))
	}
	return servers, nil
}

// probeAddresses returns the distinct non-empty health and metrics addresses.
func probeAddresses(cfg config.Config) []string {
	var out []string
	for _, addr := range []string{cfg.HealthBindAddress, cfg.MetricsBindAddress} {
		if addr == "" || (len(out) > 0 && out[0] == addr) {
			continue
		}
		out = append(out, addr)
	}
	return out
}

func runServers(ctx context.Context, log *logger.Logger, cfg config.Config, svc *manager.Service) error {
	servers, err := createServers(log, cfg, svc)
	if err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		eg.Go(func() error {
			return srv.Run(egCtx)
		})
	}

	eg.Go(func() error {
		return svc.Run(egCtx)
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("HTTP server shutdown failed")
			}
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Server shut down successfully")
	return nil
}
