package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/starline/internal/bridge"
	"github.com/muurk/starline/internal/capture"
	"github.com/muurk/starline/internal/logging"
	"github.com/muurk/starline/internal/starline"
	"github.com/muurk/starline/internal/ui"
)

// Radio command flags
var (
	listenPort  string
	listenBaud  int
	serveHost   string
	servePort   int
	serveNoMDNS bool
	scanTimeout int
)

func init() {
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(bridgesCmd)

	listenCmd.Flags().StringVar(&listenPort, "port", "", "Serial port of the radio front-end (default from configuration)")
	listenCmd.Flags().IntVar(&listenBaud, "baud", 0, "Baud rate (default from configuration)")

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (default from configuration, empty = all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from configuration)")
	serveCmd.Flags().BoolVar(&serveNoMDNS, "no-mdns", false, "Do not advertise the bridge over mDNS")

	bridgesCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
}

// listenCmd decodes live from a serial radio
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Decode live from a serial radio front-end",
	Long: `Read edges from a serial radio front-end and print every new
StarLine code as it is received.

The front-end sends RAW_Data lines of signed microsecond durations.
Press Ctrl+C to stop.`,
	Example: `  starline listen --port /dev/ttyACM0`,
	RunE:    runListen,
}

func runListen(cmd *cobra.Command, args []string) error {
	portName := listenPort
	if portName == "" {
		portName = settings.Radio.Port
	}
	if portName == "" {
		return fmt.Errorf("no serial port: use --port or set radio.port in the configuration (see 'starline ports')")
	}
	baud := listenBaud
	if baud == 0 {
		baud = settings.Radio.Baud
	}

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

	port, err := capture.OpenSerial(portName, baud)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Closing the port unblocks the pending read
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	var captureID int64
	if db != nil {
		if captureID, err = db.StartCapture("serial:" + portName); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.NewHeader("Listen", "starline listen", []ui.Detail{
		{Key: "Port", Value: fmt.Sprintf("%s @ %d baud", portName, baud)},
		{Key: "Keystore", Value: keystoreLabel(ks)},
	}).Render())

	session := starline.NewSession(ks.Entries)
	count := 0
	for {
		e, err := port.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		code, ok := session.FeedEdge(e)
		if !ok {
			continue
		}
		count++
		settings.ObserveCode(code)
		if db != nil {
			if err := db.RecordCode(captureID, code); err != nil {
				logging.Error("Failed to record code", zap.Error(err))
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderCode(time.Now().Format("15:04:05"), code, settings.Label))
	}

	logging.Info("Listening stopped", zap.Int("codes", count))
	return saveSettings()
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := capture.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No serial ports found.")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

// serveCmd runs the websocket bridge
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket bridge for remote radios",
	Long: `Start a websocket bridge. Remote radio front-ends connect to
ws://<host>:<port>/edges, stream the edges they receive and get every
decoded code back as JSON. Each connection is decoded independently.

The bridge advertises itself over mDNS as _starline._tcp unless
--no-mdns is given.`,
	Example: `  # Serve on the configured port and advertise over mDNS
  starline serve

  # Local only, no advertisement
  starline serve --host 127.0.0.1 --port 9000 --no-mdns`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
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

	cfg := &bridge.Config{
		Host:      settings.Bridge.Host,
		Port:      settings.Bridge.Port,
		Advertise: settings.Bridge.Advertise && !serveNoMDNS,
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = serveHost
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	return bridge.New(cfg, ks.Entries, db).Start(context.Background())
}

// bridgesCmd discovers bridges on the LAN
var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "Find StarLine bridges on the local network",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "Scanning for bridges (timeout: %ds)...\n\n", scanTimeout)

		peers, err := bridge.Discover(context.Background(), time.Duration(scanTimeout)*time.Second)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		if len(peers) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No bridges found.")
			return nil
		}
		for i, p := range peers {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, p)
		}
		return nil
	},
}
