package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/starline/internal/capture"
	"github.com/muurk/starline/internal/config"
	"github.com/muurk/starline/internal/history"
	"github.com/muurk/starline/internal/keystore"
	"github.com/muurk/starline/internal/logging"
	"github.com/muurk/starline/internal/starline"
	"github.com/muurk/starline/internal/ui"
)

// Codec command flags
var (
	outputFormat string
	outDir       string
	writeBack    bool
	rawOut       string
	serialPort   string
	repeatFlag   uint8
	assumeYes    bool
	noSave       bool
)

func init() {
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(encodeCmd)

	decodeCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json, record)")
	decodeCmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Write one key record per decoded code into this directory")

	resolveCmd.Flags().BoolVarP(&writeBack, "write", "w", false, "Update the record files with the recovered fields")

	encodeCmd.Flags().StringVar(&rawOut, "raw", "", "Write the transmission to a RAW file")
	encodeCmd.Flags().StringVar(&serialPort, "port", "", "Transmit through a serial radio front-end")
	encodeCmd.Flags().Uint8Var(&repeatFlag, "repeat", 0, "Frames per transmission (default from record or configuration)")
	encodeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Transmit without confirmation")
	encodeCmd.Flags().BoolVar(&noSave, "no-save", false, "Do not write the rolled counter back to the record")
}

// decodeCmd decodes RAW capture files
var decodeCmd = &cobra.Command{
	Use:   "decode <capture.sub>...",
	Short: "Decode StarLine frames from RAW capture files",
	Long: `Decode StarLine frames from Flipper SubGhz RAW files.

Every file is a separate capture: the duplicate filter and the recovery
cache start fresh for each one. Decoded codes are resolved against the
keystore and recorded in the history database.`,
	Example: `  # Decode a capture and show a table
  starline decode garage.sub

  # Write a key record for every code found
  starline decode garage.sub --out-dir ./keys

  # JSON output for scripting
  starline decode garage.sub --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	ks, err := loadKeystore()
	if err != nil {
		return err
	}
	db, err := openHistory()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	table := ui.NewCodeTable(settings.Label)
	var all []starline.RollingCode

	for _, path := range args {
		codes, err := decodeFile(path, ks, db)
		if err != nil {
			return err
		}
		for _, c := range codes {
			table.Add(c)
			settings.ObserveCode(c)
		}
		all = append(all, codes...)
	}

	if outDir != "" {
		if err := writeRecords(outDir, all); err != nil {
			return err
		}
	}

	if err := saveSettings(); err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		return printJSON(cmd.OutOrStdout(), all)
	case "record":
		for _, c := range all {
			fmt.Fprintln(cmd.OutOrStdout(), starline.ToRecord(c).String())
		}
		return nil
	case "table":
		fallthrough
	default:
		fmt.Fprintln(cmd.OutOrStdout(), ui.NewHeader("Decode", "starline decode "+strings.Join(args, " "), []ui.Detail{
			{Key: "Keystore", Value: keystoreLabel(ks)},
			{Key: "Codes", Value: fmt.Sprintf("%d", len(all))},
		}).Render())
		fmt.Fprintln(cmd.OutOrStdout(), table.Render())
		return nil
	}
}

// decodeFile runs one RAW file through a fresh session
func decodeFile(path string, ks *keystore.Keystore, db *history.DB) ([]starline.RollingCode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	var captureID int64
	if db != nil {
		if captureID, err = db.StartCapture("file:" + path); err != nil {
			return nil, err
		}
	}

	session := starline.NewSession(ks.Entries)
	reader := capture.NewRawReader(f)
	var codes []starline.RollingCode
	for {
		e, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		code, ok := session.FeedEdge(e)
		if !ok {
			continue
		}
		codes = append(codes, code)
		if db != nil {
			if err := db.RecordCode(captureID, code); err != nil {
				return nil, err
			}
		}
	}

	logging.Info("Capture decoded",
		zap.String("path", path),
		zap.Int("codes", len(codes)),
	)
	return codes, nil
}

// resolveCmd resolves key records against the keystore
var resolveCmd = &cobra.Command{
	Use:   "resolve <record.sub>...",
	Short: "Recover serial, button and counter of key records",
	Long: `Resolve key records against the manufacturer keystore.

The record's Key is decrypted with every applicable manufacturer and
learning scheme until the button and serial check matches. A pinned
Manufacture field restricts the search to that manufacturer.`,
	Example: `  # Show what a record decrypts to
  starline resolve remote.sub

  # Fill in Manufacture, Serial, Btn and Cnt in place
  starline resolve remote.sub --write`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	ks, err := loadKeystore()
	if err != nil {
		return err
	}
	recoverer := starline.NewRecoverer()

	for _, path := range args {
		code, err := readRecord(path)
		if err != nil {
			return err
		}

		var cache starline.RecoveryCache
		if code.Resolved() {
			cache.Manufacturer = code.Manufacturer
		}
		code.Manufacturer = ""
		recoverer.ResolveCode(&code, ks.Entries, &cache)
		settings.ObserveCode(code)

		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderCode(filepath.Base(path), code, settings.Label))

		if writeBack {
			if err := writeRecord(path, code); err != nil {
				return err
			}
		}
	}
	return saveSettings()
}

// encodeCmd builds the next transmission of a key record
var encodeCmd = &cobra.Command{
	Use:   "encode <record.sub>",
	Short: "Build the next transmission of a key record",
	Long: `Encode a key record as a StarLine transmission.

Resolved records (with a Manufacture field) are rolled: the counter is
incremented and the hop word re-encrypted. Unresolved records are
replayed unchanged. The rolled counter is written back to the record
unless --no-save is given.

The transmission is written to a RAW file (--raw), sent through a
serial radio (--port) or both.`,
	Example: `  # Write the next code of a remote to a RAW file
  starline encode remote.sub --raw next.sub

  # Transmit it through a serial radio
  starline encode remote.sub --port /dev/ttyACM0`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

func runEncode(cmd *cobra.Command, args []string) error {
	path := args[0]
	if rawOut == "" && serialPort == "" {
		return fmt.Errorf("nothing to do: give --raw, --port or both")
	}

	rec, err := loadRecordFile(path)
	if err != nil {
		return err
	}
	code, err := starline.FromRecord(rec)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, ok := rec.Get("Repeat"); !ok {
		code.Repeat = settings.Codec.Repeat
	}
	if cmd.Flags().Changed("repeat") {
		code.Repeat = repeatFlag
	}

	ks, err := loadKeystore()
	if err != nil {
		return err
	}

	encoder := starline.NewEncoder()
	encoder.Capacity = settings.Codec.Capacity
	tx, err := encoder.Build(code, ks.Entries)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	next := tx.Code()
	edges := capture.Drain(tx)

	if rawOut != "" {
		if err := writeRawFile(rawOut, next, edges); err != nil {
			return err
		}
	}

	if serialPort != "" {
		if !assumeYes && !ui.TransmitConfirmation(cmd.InOrStdin(), cmd.OutOrStdout()) {
			return nil
		}
		port, err := capture.OpenSerial(serialPort, settings.Radio.Baud)
		if err != nil {
			return err
		}
		defer port.Close()
		if err := port.WriteEdges(edges); err != nil {
			return err
		}
	}

	if next.Resolved() && !noSave {
		if err := writeRecord(path, next); err != nil {
			return err
		}
	}
	settings.ObserveCode(next)
	if err := saveSettings(); err != nil {
		return err
	}

	title := "Transmission built"
	if !next.Resolved() {
		title = "Replay built (unresolved code)"
	}
	result := ui.NewSuccessResult(title,
		ui.Detail{Key: "Key", Value: starline.FormatKey(next.Data)},
		ui.Detail{Key: "Counter", Value: fmt.Sprintf("0x%04X", next.Counter)},
		ui.Detail{Key: "Frames", Value: fmt.Sprintf("%d", next.Repeat)},
		ui.Detail{Key: "Edges", Value: fmt.Sprintf("%d", len(edges))},
	)
	if rawOut != "" {
		result.AddDetail("RAW file", rawOut)
	}
	if serialPort != "" {
		result.AddDetail("Sent on", serialPort)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Render())
	return nil
}

// loadKeystore loads the keystore named by --keystore or the settings.
// A missing default keystore yields an empty dictionary: every code then
// stays unresolved.
func loadKeystore() (*keystore.Keystore, error) {
	path := keystorePath
	explicit := path != ""
	if path == "" {
		path = settings.Codec.Keystore
		explicit = path != ""
	}
	if path == "" {
		var err error
		if path, err = config.DefaultKeystorePath(); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit {
		logging.Warn("No keystore found, codes will not be resolved", zap.String("path", path))
		return keystore.New(), nil
	}
	return keystore.Load(path)
}

func keystoreLabel(ks *keystore.Keystore) string {
	if ks.Path == "" {
		return "none"
	}
	return fmt.Sprintf("%s (%d manufacturers)", ks.Path, ks.Len())
}

// openHistory opens the history database, or returns nil when disabled
func openHistory() (*history.DB, error) {
	if noHistory {
		return nil, nil
	}
	path := historyPath
	if path == "" {
		path = settings.Codec.HistoryPath
	}
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return history.Open(path)
}

func saveSettings() error {
	if err := settings.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

func loadRecordFile(path string) (*starline.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record: %w", err)
	}
	defer f.Close()

	rec, err := starline.ParseRecord(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

func readRecord(path string) (starline.RollingCode, error) {
	rec, err := loadRecordFile(path)
	if err != nil {
		return starline.RollingCode{}, err
	}
	code, err := starline.FromRecord(rec)
	if err != nil {
		return starline.RollingCode{}, fmt.Errorf("%s: %w", path, err)
	}
	return code, nil
}

// writeRecord replaces a record file atomically
func writeRecord(path string, code starline.RollingCode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(starline.ToRecord(code).String()), 0644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func writeRecords(dir string, codes []starline.RollingCode) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i, c := range codes {
		name := fmt.Sprintf("starline_%06X_%02d.sub", c.Serial&0xFFFFFF, i+1)
		if err := writeRecord(filepath.Join(dir, name), c); err != nil {
			return err
		}
	}
	return nil
}

func writeRawFile(path string, code starline.RollingCode, edges []starline.Edge) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create RAW file: %w", err)
	}
	header := capture.RawHeader{Frequency: code.Frequency, Preset: code.Preset}
	if err := capture.WriteRaw(f, header, edges); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// codeJSON is the JSON shape of a decoded code
type codeJSON struct {
	Key          string `json:"key"`
	BitCount     uint32 `json:"bit_count"`
	Serial       string `json:"serial"`
	Button       string `json:"button"`
	Counter      uint16 `json:"counter"`
	Manufacturer string `json:"manufacturer"`
	Scheme       string `json:"scheme,omitempty"`
}

func printJSON(w io.Writer, codes []starline.RollingCode) error {
	out := make([]codeJSON, 0, len(codes))
	for _, c := range codes {
		j := codeJSON{
			Key:          starline.FormatKey(c.Data),
			BitCount:     c.BitCount,
			Serial:       fmt.Sprintf("0x%06X", c.Serial&0xFFFFFF),
			Button:       fmt.Sprintf("0x%02X", c.Button),
			Counter:      c.Counter,
			Manufacturer: c.Manufacturer,
		}
		if c.Resolved() {
			j.Scheme = c.Scheme.String()
		}
		out = append(out, j)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
