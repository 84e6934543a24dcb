package bridge

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/starline/internal/logging"
	"github.com/muurk/starline/internal/starline"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1 << 20
)

// connection is the state of one front-end
type connection struct {
	server     *Server
	conn       *websocket.Conn
	remoteAddr string
	session    *starline.Session
	captureID  int64
	codes      int
}

// handleConnection runs the receive pipeline for one websocket connection
func (s *Server) handleConnection(conn *websocket.Conn, remoteAddr string) error {
	c := &connection{
		server:     s,
		conn:       conn,
		remoteAddr: remoteAddr,
		session:    starline.NewSession(s.dict),
	}
	c.startCapture()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go c.pingLoop(done)

	messageNum := 0
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			} else {
				logging.Info("Connection closed by front-end",
					zap.String("remote_addr", remoteAddr),
					zap.Int("codes", c.codes),
				)
			}
			return nil
		}
		messageNum++

		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return err
		}

		logging.Debug("Websocket message received",
			zap.String("remote_addr", remoteAddr),
			zap.Int("message_num", messageNum),
			zap.Int("payload_length", len(payload)),
		)

		if messageType != websocket.TextMessage {
			if err := c.sendError(fmt.Errorf("unsupported message type %d", messageType)); err != nil {
				return err
			}
			continue
		}

		if err := c.handleMessage(payload); err != nil {
			return err
		}
	}
}

// handleMessage processes one text frame. Only write failures are returned;
// malformed messages are reported to the peer.
func (c *connection) handleMessage(payload []byte) error {
	cmd, err := parseMessage(payload)
	if err != nil {
		logging.Warn("Rejected message",
			zap.String("remote_addr", c.remoteAddr),
			zap.Error(err),
		)
		return c.sendError(err)
	}

	if cmd.reset {
		c.session.Reset()
		c.startCapture()
		logging.Info("Capture reset", zap.String("remote_addr", c.remoteAddr))
		return nil
	}

	for _, e := range cmd.edges {
		logging.LogEdge(c.remoteAddr, e.Level, e.Duration)
		code, ok := c.session.FeedEdge(e)
		if !ok {
			continue
		}
		c.codes++
		c.recordCode(code)
		if err := c.write(newCodeMessage(code)); err != nil {
			return err
		}
	}
	return nil
}

func (c *connection) startCapture() {
	if c.server.store == nil {
		return
	}
	id, err := c.server.store.StartCapture("bridge:" + c.remoteAddr)
	if err != nil {
		logging.Error("Failed to start history capture",
			zap.String("remote_addr", c.remoteAddr),
			zap.Error(err),
		)
		return
	}
	c.captureID = id
}

func (c *connection) recordCode(code starline.RollingCode) {
	if c.server.store == nil || c.captureID == 0 {
		return
	}
	if err := c.server.store.RecordCode(c.captureID, code); err != nil {
		logging.Error("Failed to record code",
			zap.String("remote_addr", c.remoteAddr),
			zap.Error(err),
		)
	}
}

func (c *connection) sendError(err error) error {
	return c.write(ErrorMessage{Type: TypeError, Error: err.Error()})
}

func (c *connection) write(v interface{}) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// pingLoop keeps the read deadline alive on idle connections
func (c *connection) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logging.Debug("Ping failed",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
				return
			}
		}
	}
}
