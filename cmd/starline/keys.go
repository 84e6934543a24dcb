package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/starline/internal/config"
	"github.com/muurk/starline/internal/history"
	"github.com/muurk/starline/internal/keystore"
	"github.com/muurk/starline/internal/ui"
)

var (
	showKeys      bool
	historyLimit  int
	historyRemote string
)

func init() {
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(historyCmd)
	keysCmd.AddCommand(keysImportCmd)
	keysCmd.AddCommand(nameCmd)

	keysCmd.Flags().BoolVar(&showKeys, "show", false, "Print manufacturer keys instead of masking them")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of codes to show")
	historyCmd.Flags().StringVar(&historyRemote, "remote", "", "Only show codes of this serial (e.g. 0x112233)")
}

// keysCmd lists the keystore
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List manufacturer keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := loadKeystore()
		if err != nil {
			return err
		}
		if ks.Len() == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Keystore is empty. Import one with 'starline keys import'.")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.NewHeader("Keystore", keystoreLabel(ks), nil).Render())
		for i, e := range ks.Entries {
			key := "****************"
			if showKeys {
				key = fmt.Sprintf("%016X", e.Key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %3d  %s  %-8s %s\n", i+1, key, e.Learning, e.Name)
		}
		return nil
	},
}

// keysImportCmd converts a Flipper keystore into the YAML keystore
var keysImportCmd = &cobra.Command{
	Use:   "import <keeloq_mfcodes_user>",
	Short: "Import a Flipper keystore as the YAML keystore",
	Long: `Read a Flipper keeloq_mfcodes_user text file (KEY:TYPE:NAME lines)
and write it as the YAML keystore. Entries with learning types other than
simple (1) and normal (2) are skipped.

The destination is --keystore, the configured keystore or
$XDG_CONFIG_HOME/starline/keystore.yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open keystore: %w", err)
		}
		defer src.Close()

		ks, err := keystore.ReadText(src)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		dest := keystorePath
		if dest == "" {
			dest = settings.Codec.Keystore
		}
		if dest == "" {
			if dest, err = config.DefaultKeystorePath(); err != nil {
				return err
			}
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
			return fmt.Errorf("failed to create keystore directory: %w", err)
		}

		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create keystore: %w", err)
		}
		if err := ks.WriteYAML(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		settings.Codec.Keystore = dest
		if err := saveSettings(); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.NewSuccessResult("Keystore imported",
			ui.Detail{Key: "Manufacturers", Value: strconv.Itoa(ks.Len())},
			ui.Detail{Key: "Written to", Value: dest},
		).Render())
		return nil
	},
}

// nameCmd sets a remote nickname
var nameCmd = &cobra.Command{
	Use:   "name <serial> <nickname>",
	Short: "Give a remote a nickname",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		serial, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid serial %q: %w", args[0], err)
		}
		settings.SetRemoteNickname(uint32(serial), args[1])
		return saveSettings()
	},
}

// historyCmd shows recorded codes
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently decoded codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory()
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("history is disabled: set codec.history in the configuration or pass --history")
		}
		defer db.Close()

		var entries []history.Entry
		if historyRemote != "" {
			serial, err := strconv.ParseUint(historyRemote, 0, 32)
			if err != nil {
				return fmt.Errorf("invalid serial %q: %w", historyRemote, err)
			}
			entries, err = db.BySerial(uint32(serial))
			if err != nil {
				return err
			}
		} else {
			if entries, err = db.Recent(historyLimit); err != nil {
				return err
			}
		}

		table := ui.NewCodeTable(settings.Label)
		for _, e := range entries {
			table.Add(e.Code)
		}
		fmt.Fprintln(cmd.OutOrStdout(), table.Render())
		return nil
	},
}
