package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hyperledger-labs/beefy-relayer/config"
	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/internal/telemetry"
	"github.com/hyperledger-labs/beefy-relayer/log"
	"github.com/hyperledger-labs/beefy-relayer/metrics"
	"github.com/hyperledger-labs/beefy-relayer/monitor"
)

func serviceCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Relay commitments and monitor events continuously",
		RunE:  noCommand,
	}

	cmd.AddCommand(serviceStartCmd(ctx))

	return cmd
}

func serviceStartCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [path-name]",
		Short: "Starts the relay service on the given path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dsts, err := ctx.Config.ChainsFromPath(args[0])
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTelemetry, err := telemetry.SetupOTelSDK(sigCtx)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdownTelemetry(context.Background()); err != nil {
					log.GetLogger().Error("failed to shutdown the telemetry pipeline", err)
				}
			}()
			src, dsts = traceChains(src, dsts)

			if err := connectAll(sigCtx, src, dsts); err != nil {
				return err
			}
			defer closeAll(src, dsts)
			defer func() {
				if err := metrics.ShutdownMetrics(context.Background()); err != nil {
					log.GetLogger().Error("failed to shutdown metrics", err)
				}
			}()

			bus := monitor.NewEventBus(busCapacity)
			mon := monitor.NewEventMonitor(src, bus, monitor.WithConcurrency(monitorConcurrency))

			eg, egCtx := errgroup.WithContext(sigCtx)
			eg.Go(func() error {
				return core.UpdateClientService(egCtx, src, dsts)
			})
			eg.Go(func() error {
				return mon.Run(egCtx)
			})
			eg.Go(func() error {
				return consumeEvents(egCtx, bus)
			})

			if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	return serviceFlags(cmd)
}

// consumeEvents drains the event bus and logs each batch. Downstream
// consumers would hook in here.
func consumeEvents(ctx context.Context, bus *monitor.EventBus) error {
	logger := log.GetLogger()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-bus.Subscribe():
			if !ok {
				return nil
			}
			for _, event := range batch.Events {
				logger.WithChain(batch.ChainID).InfoContext(ctx, "observed an event",
					"kind", event.Kind().String(),
					"height", batch.Height.GetRevisionHeight(),
					"tracking_id", batch.TrackingID,
				)
			}
		}
	}
}

func connectAll(ctx context.Context, src core.SourceChain, dsts []core.DestChain) error {
	if err := src.Connect(ctx); err != nil {
		return errors.Wrapf(err, "chain %s", src.ChainID())
	}
	for _, dst := range dsts {
		if err := dst.Connect(ctx); err != nil {
			return errors.Wrapf(err, "chain %s", dst.ChainID())
		}
	}
	return nil
}

func closeAll(src core.SourceChain, dsts []core.DestChain) {
	logger := log.GetLogger()
	if err := src.Close(); err != nil {
		logger.Error("failed to close the chain", err, "chain_id", src.ChainID())
	}
	for _, dst := range dsts {
		if err := dst.Close(); err != nil {
			logger.Error("failed to close the chain", err, "chain_id", dst.ChainID())
		}
	}
}
