// Package cli provides the xthumbgrid command line.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alexballas/xthumbgrid/internal/config"
	"github.com/alexballas/xthumbgrid/internal/logging"
)

// Version is set by the main package at startup.
var Version = "v0.1.0-dev"

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger zerolog.Logger
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xthumbgrid",
		Short: "Browse folders as a grid of thumbnails",
		Long: `xthumbgrid ` + Version + `
Shows images, videos and folders as a justified grid of thumbnails.
Thumbnails are decoded in the background, kept in a bounded memory cache
and persisted per source root so later visits start instantly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			cfg = c
			logger = logging.New(cmd.ErrOrStderr(), cfg.Debug || verbose)
			logger.Debug().Str("store", cfg.StoreDir).Str("backend", cfg.StoreBackend).Msg("config loaded")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default $HOME/.xthumbgrid.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output (same as --verbose)")
	rootCmd.PersistentFlags().String("store-backend", "", "Thumbnail store backend: pebble or disk")
	rootCmd.PersistentFlags().String("store-dir", "", "Directory holding the thumbnail store")
	rootCmd.PersistentFlags().Int64("cache-size", 0, "Memory cache budget in bytes")

	rootCmd.Version = Version

	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newPruneCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("xthumbgrid " + Version)
		},
	})
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
