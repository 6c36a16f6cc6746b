package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/antibyte/linebasic/pkg/auth"
	"github.com/antibyte/linebasic/pkg/basic"
	"github.com/antibyte/linebasic/pkg/logger"
	"github.com/antibyte/linebasic/pkg/shared"
)

const sendBuffer = 256

var errClientGone = errors.New("client disconnected")

// Client is one run service connection.
type Client struct {
	conn      *websocket.Conn
	server    *Server
	send      chan []byte
	sessionID string
	username  string

	// ctx is cancelled when the connection closes and stops a running program.
	ctx    context.Context
	cancel context.CancelFunc

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// HandleWebSocket upgrades an authenticated request and serves run requests
// until the client goes away.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ServerError("WebSocket upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		ctx:       ctx,
		cancel:    cancel,
		conn:      conn,
		server:    s,
		send:      make(chan []byte, sendBuffer),
		sessionID: uuid.New().String(),
		shutdown:  make(chan struct{}),
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		client.username = claims.Username
		if claims.SessionID != "" {
			client.sessionID = claims.SessionID
		}
	}
	logger.ServerInfo("Client %s connected as %q (session %s)", conn.RemoteAddr(), client.username, client.sessionID)

	go client.writePump()
	client.Send(shared.Message{Type: shared.MessageTypeSession, SessionID: client.sessionID})
	client.readPump()
}

// Send queues msg for the write pump. It reports false once the client is gone.
func (c *Client) Send(msg shared.Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.ServerError("Failed to encode %s message: %v", msg.Type, err)
		return false
	}
	select {
	case c.send <- data:
		return true
	case <-c.shutdown:
		return false
	}
}

func (c *Client) close() {
	c.shutdownOnce.Do(func() {
		close(c.shutdown)
		c.cancel()
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(getMaxMessageSize())
	c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
	c.conn.SetPongHandler(func(string) error {
		logger.ServerDebug("Received pong from client %s", c.conn.RemoteAddr())
		c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.ServerWarn("Unexpected close for client %s: %v", c.conn.RemoteAddr(), err)
			} else {
				logger.ServerDebug("Client %s closed: %v", c.conn.RemoteAddr(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg shared.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Send(shared.Message{Type: shared.MessageTypeError, Content: "invalid message format"})
			continue
		}
		switch msg.Type {
		case shared.MessageTypeRun:
			c.handleRun(msg)
		default:
			c.Send(shared.Message{Type: shared.MessageTypeError, Content: "unknown message type " + string(msg.Type)})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(getPingPeriod())
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.ServerDebug("Write to client %s failed: %v", c.conn.RemoteAddr(), err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.ServerError("Failed to send ping to client %s: %v", c.conn.RemoteAddr(), err)
				return
			}
		case <-c.shutdown:
			return
		}
	}
}

// handleRun compiles or loads the requested program and streams its output.
func (c *Client) handleRun(msg shared.Message) {
	runID := uuid.New().String()

	var (
		p   *basic.Program
		err error
	)
	if msg.ProgramID != "" {
		p, err = c.server.library.LoadProgram(c.ctx, msg.ProgramID)
	} else {
		p, err = basic.Compile(msg.Lines)
	}
	if err != nil {
		c.sendError(runID, err)
		return
	}

	maxSteps := getMaxSteps()
	if msg.MaxSteps > 0 && (maxSteps <= 0 || msg.MaxSteps < maxSteps) {
		maxSteps = msg.MaxSteps
	}
	logger.ServerDebug("Run %s for session %s: %d lines, max %d steps", runID, c.sessionID, p.Len(), maxSteps)

	ctx, cancel := context.WithTimeout(c.ctx, getMaxRunTime())
	defer cancel()

	out := &lineWriter{client: c, runID: runID}
	e := basic.NewEngine(p, basic.OutputWrite, out)
	err = basic.RunContext(ctx, e, maxSteps)
	switch {
	case err == nil:
		c.Send(shared.Message{Type: shared.MessageTypeHalted, RunID: runID, Steps: e.Steps()})
	case errors.Is(err, errClientGone) || c.ctx.Err() != nil:
		logger.ServerDebug("Run %s abandoned, client gone", runID)
	case errors.Is(err, context.DeadlineExceeded):
		label, _ := e.Label()
		logger.ServerWarn("Run %s for session %s hit the time limit at line %s", runID, c.sessionID, label)
		c.Send(shared.Message{Type: shared.MessageTypeError, RunID: runID, Label: label, Content: "RUN TIME LIMIT EXCEEDED IN LINE " + label})
	default:
		c.sendError(runID, err)
	}
}

func (c *Client) sendError(runID string, err error) {
	msg := shared.Message{Type: shared.MessageTypeError, RunID: runID, Content: err.Error()}
	var be *basic.BASICError
	if errors.As(err, &be) {
		msg.Label = be.Label
	}
	c.Send(msg)
}

// lineWriter turns each printed line into an output message.
type lineWriter struct {
	client *Client
	runID  string
	buf    bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		msg := shared.Message{Type: shared.MessageTypeOutput, RunID: w.runID, Content: line[:len(line)-1]}
		if !w.client.Send(msg) {
			return 0, errClientGone
		}
	}
}
