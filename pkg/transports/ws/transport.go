package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/harunnryd/halo/pkg/transports"
)

type Config struct {
	ServerAddr     string   `mapstructure:"server_addr"`
	ChatPath       string   `mapstructure:"chat_path"`
	AllowAnyOrigin bool     `mapstructure:"allow_any_origin"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c Config) withDefaults() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.ChatPath == "" {
		c.ChatPath = "/chat"
	}
	if !c.AllowAnyOrigin && len(c.AllowedOrigins) == 0 {
		c.AllowAnyOrigin = true
	}
	return c
}

// Transport serves chat conversations over websocket. Each connection is one
// conversation; inbound text becomes envelopes on Recv, and Send routes
// replies back to the owning connection.
type Transport struct {
	cfg      Config
	server   *http.Server
	upgrader websocket.Upgrader
	recvCh   chan transports.Envelope

	mu    sync.Mutex
	conns map[string]*conn

	draining atomic.Bool
	closed   atomic.Bool
}

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *conn) close() error {
	return c.ws.Close()
}

func New(cfg Config) *Transport {
	cfg = cfg.withDefaults()
	t := &Transport{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		recvCh: make(chan transports.Envelope, 512),
		conns:  make(map[string]*conn),
	}
	t.upgrader.CheckOrigin = t.checkOrigin
	return t
}

func (t *Transport) Name() string { return "ws" }

func (t *Transport) Recv() <-chan transports.Envelope { return t.recvCh }

func (t *Transport) ReadyFields() map[string]any {
	return map[string]any{
		"server_addr": t.cfg.ServerAddr,
		"chat_path":   t.cfg.ChatPath,
	}
}

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.Handle(t.cfg.ChatPath, t)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	t.server = &http.Server{
		Addr:              t.cfg.ServerAddr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() {
		<-ctx.Done()
		_ = t.server.Close()
	}()
	go func() {
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ws_transport_server_error", "error", err.Error())
		}
	}()
	return nil
}

func (t *Transport) Stop() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.draining.Store(true)
	if t.server != nil {
		_ = t.server.Close()
	}
	// recvCh closes under the same lock enqueue holds, so a connection
	// goroutine mid-message can never hit a closed channel.
	t.mu.Lock()
	for _, c := range t.conns {
		_ = c.close()
	}
	t.conns = make(map[string]*conn)
	close(t.recvCh)
	t.mu.Unlock()
	return nil
}

func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if t.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	wsConn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	c := &conn{ws: wsConn}
	t.attach(conversationID, c)
	defer func() {
		t.detach(conversationID)
		_ = wsConn.Close()
	}()

	// Tell the client which conversation it landed on.
	_ = c.writeJSON(transports.Envelope{ConversationID: conversationID})

	for {
		_, msg, err := wsConn.ReadMessage()
		if err != nil {
			return
		}
		text := string(msg)
		var env transports.Envelope
		if json.Unmarshal(msg, &env) == nil && env.Text != "" {
			text = env.Text
		}
		t.enqueue(transports.Envelope{
			ConversationID: conversationID,
			Text:           text,
		})
	}
}

// Send routes a reply back to the connection owning the conversation.
func (t *Transport) Send(e transports.Envelope) error {
	t.mu.Lock()
	c, ok := t.conns[e.ConversationID]
	t.mu.Unlock()
	if !ok {
		return errors.New("no connection for conversation " + e.ConversationID)
	}
	return c.writeJSON(e)
}

func (t *Transport) attach(id string, c *conn) {
	t.mu.Lock()
	old := t.conns[id]
	t.conns[id] = c
	t.mu.Unlock()
	if old != nil {
		_ = old.close()
	}
}

func (t *Transport) detach(id string) {
	t.mu.Lock()
	delete(t.conns, id)
	t.mu.Unlock()
}

func (t *Transport) checkOrigin(r *http.Request) bool {
	if t.cfg.AllowAnyOrigin {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range t.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// enqueue hands an inbound envelope to Recv without blocking the read loop.
// Envelopes arriving after Stop are dropped.
func (t *Transport) enqueue(e transports.Envelope) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return
	}
	select {
	case t.recvCh <- e:
	default:
		slog.Warn("ws_transport_recv_overflow", "conversation_id", e.ConversationID)
	}
}
