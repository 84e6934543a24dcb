// Starline decodes, resolves and re-encodes StarLine KeeLoq remote
// transmissions.
//
// It reads Flipper-style RAW captures or a serial radio front-end, decodes
// StarLine frames, recovers the manufacturer key from a keystore and
// writes key records that can be rolled forward and transmitted again.
//
// Usage:
//
//	starline [command] [flags]
//
// See 'starline --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/starline/internal/config"
	"github.com/muurk/starline/internal/logging"
	"github.com/muurk/starline/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath   string
	keystorePath string
	historyPath  string
	logLevel     string
	noHistory    bool
)

// settings is loaded before every command runs
var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "starline",
	Short: "StarLine KeeLoq rolling-code codec",
	Long: `Decode, resolve and encode StarLine KeeLoq remote transmissions.

Captures are read from Flipper SubGhz RAW files or a serial radio
front-end. Decoded frames are matched against a manufacturer keystore to
recover the serial, button and counter; resolved codes can be rolled
forward and transmitted again.

Defaults are read from the configuration file
($XDG_CONFIG_HOME/starline/config.yaml unless --config is given).`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logLevel); err != nil {
			return err
		}

		var err error
		if configPath != "" {
			settings, err = config.LoadFrom(configPath)
		} else {
			settings, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default $XDG_CONFIG_HOME/starline/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&keystorePath, "keystore", "k", "", "Manufacturer keystore (YAML or Flipper keeloq_mfcodes_user text)")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "", "History database (overrides configuration)")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record decoded codes")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default from "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "starline %s\n", version.Full())
		for _, f := range version.Formats() {
			fmt.Fprintf(out, "  %-16s v%d\n", f.Name+":", f.Version)
		}
	},
}
