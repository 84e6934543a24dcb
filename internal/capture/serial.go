package capture

import (
	"fmt"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/starline/internal/logging"
	"github.com/muurk/starline/internal/starline"
)

// DefaultBaudRate is the baud rate used when none is configured
const DefaultBaudRate = 115200

// SerialPort is a radio front-end attached over a serial link. It reads
// RAW lines as edges and writes transmissions as RAW lines.
type SerialPort struct {
	serial.Port
	name   string
	reader *RawReader
}

// OpenSerial opens a serial radio front-end
func OpenSerial(portName string, baudRate int) (*SerialPort, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	logging.Info("Serial radio opened",
		zap.String("port", portName),
		zap.Int("baud", baudRate),
	)
	return &SerialPort{Port: port, name: portName, reader: NewRawReader(port)}, nil
}

// Next returns the next edge received from the radio
func (p *SerialPort) Next() (starline.Edge, error) {
	e, err := p.reader.Next()
	if err == nil {
		logging.LogEdge(p.name, e.Level, e.Duration)
	}
	return e, err
}

// Transmit sends every edge of a transmission to the radio
func (p *SerialPort) Transmit(tx *starline.EncoderSession) error {
	return p.WriteEdges(Drain(tx))
}

// WriteEdges sends edges to the radio as RAW lines
func (p *SerialPort) WriteEdges(edges []starline.Edge) error {
	if err := writeLines(p.Port, edges); err != nil {
		return err
	}
	logging.Info("Transmission sent",
		zap.String("port", p.name),
		zap.Int("edges", len(edges)),
	)
	return nil
}

// Close closes the serial port
func (p *SerialPort) Close() error {
	if err := p.Port.Close(); err != nil {
		return err
	}
	return nil
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
