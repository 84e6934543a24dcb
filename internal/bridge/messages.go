package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/muurk/starline/internal/capture"
	"github.com/muurk/starline/internal/starline"
)

// Message types
const (
	TypeEdges = "edges"
	TypeReset = "reset"
	TypeCode  = "code"
	TypeError = "error"
)

// Request is a JSON message sent by a radio front-end
type Request struct {
	Type      string  `json:"type"`
	Durations []int32 `json:"durations,omitempty"`
}

// CodeMessage reports a decoded code to the front-end
type CodeMessage struct {
	Type         string `json:"type"`
	Key          string `json:"key"`
	BitCount     uint32 `json:"bit_count"`
	Serial       string `json:"serial"`
	Button       string `json:"button"`
	Counter      uint16 `json:"counter"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Scheme       string `json:"scheme,omitempty"`
}

// ErrorMessage reports a rejected request
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// command is a parsed client message
type command struct {
	reset bool
	edges []starline.Edge
}

// parseMessage turns a text frame into a command
func parseMessage(payload []byte) (command, error) {
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		var req Request
		if err := json.Unmarshal(payload, &req); err != nil {
			return command{}, fmt.Errorf("invalid JSON message: %w", err)
		}
		switch req.Type {
		case TypeEdges:
			return command{edges: capture.EdgesFromDurations(req.Durations)}, nil
		case TypeReset:
			return command{reset: true}, nil
		default:
			return command{}, fmt.Errorf("unknown message type %q", req.Type)
		}
	}

	var edges []starline.Edge
	for _, line := range strings.Split(text, "\n") {
		parsed, err := capture.ParseLine(line)
		if err != nil {
			return command{}, err
		}
		edges = append(edges, parsed...)
	}
	return command{edges: edges}, nil
}

// newCodeMessage converts a decoded code for the wire
func newCodeMessage(code starline.RollingCode) CodeMessage {
	msg := CodeMessage{
		Type:         TypeCode,
		Key:          starline.FormatKey(code.Data),
		BitCount:     code.BitCount,
		Serial:       fmt.Sprintf("0x%06X", code.Serial&0xFFFFFF),
		Button:       fmt.Sprintf("0x%02X", code.Button),
		Counter:      code.Counter,
		Manufacturer: code.Manufacturer,
	}
	if code.Scheme != starline.SchemeNone {
		msg.Scheme = code.Scheme.String()
	}
	return msg
}
