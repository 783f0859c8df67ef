package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	apierrors "github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/infrastructure"
	mw "github.com/PauloMoekotte/Herkomst-ROC/internal/middleware"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 16 << 10

	sendBuffer = 64
)

// ClientConfig binds a client to one dataset of one dashboard
type ClientConfig struct {
	Dashboard string
	Dataset   string
	TraceID   string
	Renderer  Renderer
	// Problem converts errors for the client; nil reports every error as internal
	Problem func(error) *apierrors.ProblemDetails
	// PongWait and PingPeriod default to 60s and 54s; PingPeriod must be less than PongWait
	PongWait   time.Duration
	PingPeriod time.Duration
}

// Client is a middleman between the websocket connection and the renderer.
// It runs at most one render at a time: a new selection cancels the render
// in flight and only the newest selection's result is sent.
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	dashboard   string
	dataset     string
	connectedAt time.Time

	renderer  Renderer
	problem   func(error) *apierrors.ProblemDetails
	validator *mw.Validator

	pongWait   time.Duration
	pingPeriod time.Duration

	// ctx is cancelled on shutdown and parents every render
	ctx  context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool

	logger *slog.Logger

	messagesSent     int64
	messagesReceived int64
	bytesSent        int64
	bytesReceived    int64
}

// NewClient creates a new Client on conn
func NewClient(hub *Hub, conn Connection, cfg ClientConfig, logger *slog.Logger) *Client {
	id := uuid.New().String()
	logger = infrastructure.WithComponent(logger, "websocket.client").With(slog.String("client_id", id))
	if cfg.TraceID != "" {
		logger = logger.With(slog.String("trace_id", cfg.TraceID))
	}

	problem := cfg.Problem
	if problem == nil {
		problem = internalProblem
	}

	wait, period := cfg.PongWait, cfg.PingPeriod
	if wait <= 0 {
		wait = pongWait
	}
	if period <= 0 || period >= wait {
		period = (wait * 9) / 10
	}

	ctx, stop := context.WithCancel(context.Background())
	if cfg.TraceID != "" {
		ctx = infrastructure.WithTraceID(ctx, cfg.TraceID)
	}

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		traceID:     cfg.TraceID,
		remoteAddr:  conn.RemoteAddr(),
		dashboard:   cfg.Dashboard,
		dataset:     cfg.Dataset,
		connectedAt: time.Now(),
		renderer:    cfg.Renderer,
		problem:     problem,
		validator:   mw.NewValidator(),
		pongWait:    wait,
		pingPeriod:  period,
		ctx:         ctx,
		stop:        stop,
		logger:      logger,
	}
}

func internalProblem(err error) *apierrors.ProblemDetails {
	return apierrors.NewProblemDetails(http.StatusInternalServerError, apierrors.TypeInternal,
		"Internal Server Error", err.Error(), "")
}

// ID returns the client id
func (c *Client) ID() string { return c.id }

// context returns a context carrying the client's trace id that outlives the client
func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// Select starts a render of req, cancelling the render in flight. It returns
// the sequence number the result will carry, or 0 when the client is closed.
func (c *Client) Select(req dashboard.Request) uint64 {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.seq++
	seq := c.seq
	c.cancel = cancel
	c.mu.Unlock()

	go c.render(ctx, cancel, seq, req)
	return seq
}

func (c *Client) render(ctx context.Context, cancel context.CancelFunc, seq uint64, req dashboard.Request) {
	defer cancel()
	start := time.Now()

	view, err := c.renderer.View(ctx, c.dashboard, c.dataset, req)
	msg := Message{Type: TypeView, Seq: seq, View: view, TraceID: c.traceID, Timestamp: time.Now()}
	if err != nil {
		msg = Message{Type: TypeError, Seq: seq, Error: c.problem(err), TraceID: c.traceID, Timestamp: time.Now()}
	}

	data, merr := json.Marshal(msg)
	if merr != nil {
		c.logger.ErrorContext(ctx, "Error marshaling view message", slog.String("error", merr.Error()))
		return
	}

	if !c.deliver(seq, data) {
		c.logger.DebugContext(c.context(), "Superseded render dropped",
			slog.Uint64("seq", seq),
			slog.Duration("duration", time.Since(start)))
		return
	}
	c.logger.DebugContext(c.context(), "Render delivered",
		slog.Uint64("seq", seq),
		slog.String("type", msg.Type),
		slog.Duration("duration", time.Since(start)))
}

// deliver queues data only while seq is still the newest selection
func (c *Client) deliver(seq uint64, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.seq {
		return false
	}
	return c.push(data)
}

// enqueue queues data unless the client is closed or its buffer is full
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.push(data)
}

// push must be called with c.mu held
func (c *Client) push(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn("Client send buffer full, message dropped")
		return false
	}
}

func (c *Client) sendMessage(msg Message) {
	msg.TraceID = c.traceID
	msg.Timestamp = time.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Error marshaling message", slog.String("error", err.Error()))
		return
	}
	c.enqueue(data)
}

// shutdown cancels any render and closes the send queue; safe to call twice
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stop()
	close(c.send)
}

// handle processes one client message
func (c *Client) handle(message []byte) {
	var in Inbound
	if err := json.Unmarshal(message, &in); err != nil {
		c.sendMessage(Message{Type: TypeError, Error: c.problem(apierrors.InvalidRequestWithError(err))})
		return
	}
	if err := c.validator.ValidateStruct(in); err != nil {
		c.sendMessage(Message{Type: TypeError, Error: c.problem(err)})
		return
	}

	switch in.Type {
	case TypeHeartbeat:
		c.logger.Debug("Heartbeat received")
	case TypeSelect:
		seq := c.Select(in.Request)
		c.logger.DebugContext(c.context(), "Selection received",
			slog.Uint64("seq", seq),
			slog.Int("filters", len(in.Request.Selection.Filters)))
	}
}

// ReadPump pumps messages from the websocket connection to the client
func (c *Client) ReadPump() {
	defer func() {
		c.logger.InfoContext(c.context(), "WebSocket client disconnected (readPump)",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived),
			slog.Int64("bytes_received", c.bytesReceived))
		c.hub.Unregister(c)
		c.shutdown()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(c.context(), "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}

		c.messagesReceived++
		c.bytesReceived += int64(len(message))
		c.handle(message)
	}
}

// WritePump pumps messages from the send queue to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.InfoContext(c.context(), "WebSocket write pump stopped",
			slog.Int64("messages_sent", c.messagesSent),
			slog.Int64("bytes_sent", c.bytesSent))
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(c.context(), "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}
			c.messagesSent++
			c.bytesSent += int64(len(message))

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
