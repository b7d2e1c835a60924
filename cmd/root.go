package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/beefy-relayer/config"
	"github.com/hyperledger-labs/beefy-relayer/log"
	"github.com/hyperledger-labs/beefy-relayer/metrics"
)

const (
	appName    = "brly"
	configPath = "config/config.yaml"
)

var homePath string

// Execute builds the command tree from the registered modules and runs it.
// This is called by main.main(). It only needs to happen once.
func Execute(modules ...config.ModuleI) error {
	ctx := &config.Context{
		Config:  &config.Config{},
		Modules: modules,
	}

	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:          appName,
		Short:        "This application relays BEEFY finality between configured substrate chains",
		SilenceUsage: true,
	}

	defaultHome, err := defaultHomePath()
	if err != nil {
		return err
	}
	rootCmd.PersistentFlags().StringVar(&homePath, "home", defaultHome, "set home directory")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// reads `homeDir/config/config.yaml` before each command
		return initRuntime(ctx)
	}

	rootCmd.AddCommand(
		configCmd(ctx),
		updateCmd(ctx),
		serviceCmd(ctx),
	)
	for _, m := range modules {
		if cmd := m.GetCmd(ctx); cmd != nil {
			rootCmd.AddCommand(cmd)
		}
	}

	return rootCmd.Execute()
}

func defaultHomePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "."+appName), nil
}

// initRuntime loads the config and initializes logging and metrics from its
// global section. A missing config file yields the defaults so that `config
// init` can run.
func initRuntime(ctx *config.Context) error {
	cfgPath := filepath.Join(homePath, configPath)
	if _, err := os.Stat(cfgPath); err == nil {
		cfg, err := config.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		*ctx.Config = *cfg
	} else {
		*ctx.Config = config.DefaultConfig(cfgPath)
	}

	lc := ctx.Config.Global.Logger
	if err := log.InitLogger(lc.Level, lc.Format, lc.Output); err != nil {
		return err
	}
	if err := initMetrics(ctx.Config.Global.Metrics); err != nil {
		return err
	}

	return ctx.Config.InitChains(ctx.Modules)
}

func initMetrics(mc config.MetricsConfig) error {
	switch mc.Exporter {
	case "", "null":
		return metrics.InitializeMetrics(metrics.ExporterNull{})
	case "prometheus":
		return metrics.InitializeMetrics(metrics.ExporterProm{Addr: mc.Addr})
	default:
		return fmt.Errorf("unknown metrics exporter: %q", mc.Exporter)
	}
}

func noCommand(cmd *cobra.Command, _ []string) error {
	return cmd.Help()
}
