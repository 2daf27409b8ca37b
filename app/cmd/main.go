package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"agenthub/app/logging"
	"agenthub/app/server"
	"agenthub/config"
	"agenthub/model"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	envFile string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hub",
	Short: "Front-end for the AI writing agents",
	Long: `hub talks to the agent backend on behalf of a user.

It serves the web API (hub serve) or drives an agent straight from the
terminal: PRD writing and review, support email answers and blog posts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(envFile); err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		if logger, err = logging.New(level); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "env file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, prdCmd, emailCmd, blogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	s := server.NewServer(cfg, logger)
	if err := s.Init(cmd.Context()); err != nil {
		return err
	}

	errch := make(chan error, 1)
	go func() { errch <- s.Run() }()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigch:
		logger.Info("received shutdown signal, shutting down server...")
	case err := <-errch:
		s.Stop()
		return err
	}
	s.Stop()
	return nil
}

func backend() *model.Backend {
	return model.NewBackend(cfg.BackendURL, nil)
}

// signalContext is cancelled on the first interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
