// Command geogw is the metadata service's entrypoint: a cobra root
// with serve and migrate subcommands, grounded on cuemby-warren's
// cmd/warren/main.go and the teacher's cmd/aisnodeprofile/main.go.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skystorehq/geogw/internal/config"
	"github.com/skystorehq/geogw/internal/log"
	"github.com/skystorehq/geogw/internal/server"
)

var (
	// Version is set via -ldflags at build time.
	Version   = "dev"
	cfgFile   string
	logLevel  string
	logJSON   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "geogw",
	Short:   "Geo-distributed object-store gateway metadata service",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit JSON logs")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initLogging() {
	level := log.InfoLevel
	switch logLevel {
	case "debug":
		level = log.DebugLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	}
	log.Init(log.Config{Level: level, JSONOutput: logJSON})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Request API, sweeper, and eviction controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		core, err := server.New(cfg)
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return core.Serve(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		core, err := server.New(cfg)
		if err != nil {
			return err
		}
		return core.Store.Migrate()
	},
}
