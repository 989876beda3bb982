package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wfunc/royalur/client"
	"github.com/wfunc/royalur/config"
	"github.com/wfunc/royalur/logger"
	"github.com/wfunc/royalur/monitor"
	"github.com/wfunc/royalur/persistence"
	"github.com/wfunc/royalur/server"
)

func main() {
	root := &cobra.Command{
		Use:           "royalur",
		Short:         "Royal Game of Ur server and terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCommand(), client.NewCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	var configDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configDir)
		},
	}
	cmd.Flags().StringVar(&configDir, "config", ".", "directory containing config.yaml")
	return cmd
}

func serve(configDir string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Development)
	defer logger.Sync()

	// Initialize snapshot store
	store, err := persistence.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Log.Infof("Snapshot store ready (%s).", cfg.Database.Driver)

	mon := monitor.NewMonitor("royalur")
	if cfg.Server.MetricsAddress != "" {
		mon.StartServer(cfg.Server.MetricsAddress)
		defer mon.Stop()
	}

	// Initialize Game Server
	gameServer, err := server.NewGameServer(cfg, store, mon)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- gameServer.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Log.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return gameServer.Shutdown(ctx)
}
