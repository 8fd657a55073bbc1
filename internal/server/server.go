// Package server exposes the orb transport: a WebSocket channel carrying
// voice commands in and state/speech broadcasts out, plus a small HTTP
// surface for the UI page and status checks.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/normanking/zara/internal/bus"
	"github.com/normanking/zara/internal/logging"
	"github.com/normanking/zara/internal/orchestrator"
)

const (
	// WebSocketEndpoint is the path for WebSocket connections.
	WebSocketEndpoint = "/ws"

	// WriteWait is the timeout for writing to a WebSocket.
	WriteWait = 10 * time.Second

	// PongWait is the timeout for pong responses.
	PongWait = 60 * time.Second

	// PingPeriod is how often to send ping frames.
	PingPeriod = (PongWait * 9) / 10

	// MaxMessageSize is the maximum inbound message size allowed.
	MaxMessageSize = 4096
)

// inboundMessage is the envelope front-ends send: a voice_command carrying a
// command string, or a browser_state forcing a presence state.
type inboundMessage struct {
	Event   string `json:"event"`
	Command string `json:"command,omitempty"`
	State   string `json:"state,omitempty"`
}

// outboundMessage is the envelope sent to front-ends.
type outboundMessage struct {
	Event      string `json:"event"`
	State      string `json:"state,omitempty"`
	Text       string `json:"text,omitempty"`
	IsFallback bool   `json:"is_fallback,omitempty"`
}

func encodeEvent(e bus.Event) ([]byte, error) {
	return json.Marshal(outboundMessage{
		Event:      string(e.Type),
		State:      e.State,
		Text:       e.Text,
		IsFallback: e.IsFallback,
	})
}

// client is a single connected front-end.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Server is the WebSocket hub. It subscribes to the orchestrator's bus and
// forwards every event to all connected clients; broadcasts are
// fire-and-forget with no delivery guarantee.
type Server struct {
	addr string
	orch *orchestrator.Orchestrator
	bus  *bus.Bus
	log  *logging.Logger

	upgrader   websocket.Upgrader
	httpServer *http.Server

	clients     map[*client]bool
	clientsMu   sync.RWMutex
	register    chan *client
	unregister  chan *client
	broadcastCh chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

// New creates a Server bound to addr (for example ":5000").
func New(addr string, orch *orchestrator.Orchestrator, b *bus.Bus, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		orch: orch,
		bus:  b,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The orb page is opened from phones on the local network.
				return true
			},
		},
		clients:     make(map[*client]bool),
		register:    make(chan *client),
		unregister:  make(chan *client),
		broadcastCh: make(chan []byte, 256),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Routes returns the HTTP handler serving the orb endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketEndpoint, s.handleWebSocket)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Start begins serving. It returns once the listener goroutine is running.
func (s *Server) Start() error {
	s.runningMu.Lock()
	if s.running {
		s.runningMu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.runningMu.Unlock()

	s.startHub()

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("server", "listening", map[string]interface{}{"addr": s.addr})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("server", "listener failed", err, nil)
		}
	}()

	return nil
}

// startHub subscribes to the bus and starts the client manager.
func (s *Server) startHub() {
	s.bus.Subscribe(s.broadcast)
	s.wg.Add(1)
	go s.runClientManager()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.runningMu.Lock()
	if !s.running {
		s.runningMu.Unlock()
		return nil
	}
	s.running = false
	s.runningMu.Unlock()

	// Cancelling the context makes the client manager close every client
	// as its final act; closing them here would race in-flight broadcasts.
	s.cancel()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
	}

	s.wg.Wait()
	return nil
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// runClientManager owns the client set. Registration, teardown and
// broadcast delivery all run on this goroutine, so a send on c.send can
// never race the close of c.send: both happen here, in order.
func (s *Server) runClientManager() {
	defer s.wg.Done()

	for {
		select {
		case c := <-s.register:
			s.clientsMu.Lock()
			s.clients[c] = true
			total := len(s.clients)
			s.clientsMu.Unlock()
			s.log.Info("server", "client connected", map[string]interface{}{
				"client": c.id, "total": total,
			})

			// Per-subscriber replay: current state and the welcome message
			// go to this client only.
			s.orch.Greet(func(e bus.Event) {
				data, err := encodeEvent(e)
				if err != nil {
					return
				}
				select {
				case c.send <- data:
				default:
				}
			})

		case c := <-s.unregister:
			s.clientsMu.Lock()
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				close(c.send)
				c.conn.Close()
			}
			remaining := len(s.clients)
			s.clientsMu.Unlock()
			s.log.Info("server", "client disconnected", map[string]interface{}{
				"client": c.id, "remaining": remaining,
			})

		case data := <-s.broadcastCh:
			s.clientsMu.RLock()
			targets := make([]*client, 0, len(s.clients))
			for c := range s.clients {
				targets = append(targets, c)
			}
			s.clientsMu.RUnlock()

			for _, c := range targets {
				select {
				case c.send <- data:
				default:
					// Slow client: fire-and-forget, drop the event for this one.
				}
			}

		case <-s.ctx.Done():
			// Shutdown: once no more broadcasts can reach the send
			// channels, close every client from here.
			s.clientsMu.Lock()
			for c := range s.clients {
				close(c.send)
				c.conn.Close()
				delete(s.clients, c)
			}
			s.clientsMu.Unlock()
			return
		}
	}
}

// broadcast hands one bus event to the client manager for delivery. After
// shutdown begins the event is dropped.
func (s *Server) broadcast(e bus.Event) {
	data, err := encodeEvent(e)
	if err != nil {
		s.log.Error("server", "encode event failed", err, nil)
		return
	}

	select {
	case s.broadcastCh <- data:
	case <-s.ctx.Done():
	}
}

// handleWebSocket upgrades HTTP connections and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("server", "websocket upgrade failed", err, nil)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 256),
	}

	// The manager is gone once shutdown starts; a connection upgraded in
	// that window must not block the handler.
	select {
	case s.register <- c:
	case <-s.ctx.Done():
		conn.Close()
		return
	}

	s.wg.Add(2)
	go s.writePump(c)
	go s.readPump(c)
}

// writePump sends queued messages and pings to one client.
func (s *Server) writePump(c *client) {
	defer s.wg.Done()

	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// readPump handles inbound events from one client.
func (s *Server) readPump(c *client) {
	defer s.wg.Done()
	defer func() {
		select {
		case s.unregister <- c:
		case <-s.ctx.Done():
		}
	}()

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("server", "websocket read failed", map[string]interface{}{
					"client": c.id, "error": err.Error(),
				})
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("server", "malformed inbound message", map[string]interface{}{
				"client": c.id,
			})
			continue
		}

		switch msg.Event {
		case "voice_command":
			if msg.Command == "" {
				continue
			}
			// One goroutine per command; overlapping commands contend for
			// the shared presence state and throttle.
			cmd := orchestrator.NewCommand(msg.Command, c.id)
			go s.orch.HandleCommand(context.Background(), cmd)

		case "browser_state":
			if msg.State == "" {
				continue
			}
			if err := s.orch.ForceState(orchestrator.State(msg.State)); err != nil {
				s.log.Warn("server", "rejected browser state", map[string]interface{}{
					"client": c.id, "state": msg.State,
				})
			}

		default:
			s.log.Debug("server", "ignoring unknown event", map[string]interface{}{
				"event": msg.Event,
			})
		}
	}
}

// handleStatus returns the current presence state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": s.orch.CurrentState().String(),
	})
}

// handleHealth responds to health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Status  string `json:"status"`
		Service string `json:"service"`
		State   string `json:"state"`
		Clients int    `json:"clients"`
		BusSubs int    `json:"bus_subscriptions"`
	}{
		Status:  "healthy",
		Service: "zara-orb",
		State:   s.orch.CurrentState().String(),
		Clients: s.ClientCount(),
		BusSubs: s.bus.SubscriptionsCount(),
	})
}
