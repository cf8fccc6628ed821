// Package web serves the terminal over a websocket: output chunks stream
// out, input lines and prompts stream in. It also exposes /metrics and
// /health for the local machine.
package web

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/codefionn/kael/internal/assistant"
	"github.com/codefionn/kael/internal/health"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/pprof"
	"github.com/codefionn/kael/internal/pty"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultAddr     = "127.0.0.1:7681"
	authTokenLength = 32
)

// Backend is what the socket drives. *assistant.Shell implements it.
type Backend interface {
	Terminal() *pty.Session
	RestartTerminal(ctx context.Context) (*pty.Session, error)
	Submit(ctx context.Context, text string) assistant.Reply
}

// Options configures a Server.
type Options struct {
	Addr string
	// Token guards the websocket. A random token is generated when empty.
	Token   string
	Backend Backend
	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer
	// Profiling mounts /debug/pprof.
	Profiling bool
	// Status reports the background jobs on /health. Nil omits them.
	Status func() health.Status
	Logger *logger.Logger
}

// Server is the terminal bridge.
type Server struct {
	addr       string
	authToken  string
	backend    Backend
	status     func() health.Status
	router     *httprouter.Router
	hub        *Hub
	log        *logger.Logger
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a server. Call Start to listen.
func NewServer(opts Options) (*Server, error) {
	if opts.Backend == nil {
		return nil, errors.New("web: backend is required")
	}

	token := opts.Token
	if token == "" {
		var err error
		if token, err = generateAuthToken(); err != nil {
			return nil, fmt.Errorf("failed to generate auth token: %w", err)
		}
	}
	addr := opts.Addr
	if addr == "" {
		addr = defaultAddr
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global().WithPrefix("web")
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		addr:      addr,
		authToken: token,
		backend:   opts.Backend,
		status:    opts.Status,
		router:    httprouter.New(),
		hub:       NewHub(),
		log:       log,
	}

	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/health", s.handleHealth)
	s.router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if opts.Profiling {
		pprof.Register(s.router)
	}
	return s, nil
}

// Handler returns the routes, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.addr = ln.Addr().String()

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.Info("terminal bridge listening on %s", s.addr)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server error: %v", err)
		}
	}()
	return nil
}

// Stop disconnects clients and shuts the server down.
func (s *Server) Stop() error {
	s.hub.CloseAll()
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// Addr returns the listen address; after Start it has the real port.
func (s *Server) Addr() string {
	return s.addr
}

// URL returns the websocket URL including the token.
func (s *Server) URL() string {
	return fmt.Sprintf("ws://%s/ws?token=%s", s.addr, s.authToken)
}

func (s *Server) authorized(r *http.Request) bool {
	got := r.URL.Query().Get("token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.authToken)) == 1
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !s.authorized(r) {
		s.log.Warn("websocket connection rejected: invalid auth token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		// The token is the access check; browsers on any local origin may connect.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("failed to upgrade websocket: %v", err)
		return
	}

	client := NewClient(s.hub, conn, s.backend, s.log)
	s.hub.Register(client)

	go client.WritePump()

	term := s.backend.Terminal()
	if err := term.EnsureSession(r.Context()); err != nil {
		client.enqueue(&Message{Type: MessageTypeError, Data: "Terminal error: " + err.Error()})
	}
	client.attach(term)

	go client.ReadPump()
}

type healthResponse struct {
	Terminal    string      `json:"terminal"`
	Subscribers int         `json:"subscribers"`
	Clients     int         `json:"clients"`
	Jobs        *jobsHealth `json:"jobs,omitempty"`
}

type jobsHealth struct {
	DaemonUp     bool     `json:"daemon_up"`
	WarmedModels []string `json:"warmed_models"`
	WarmError    string   `json:"warm_error,omitempty"`
	KeysLoaded   int      `json:"keys_loaded"`
	PrefetchErr  string   `json:"prefetch_error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	term := s.backend.Terminal()
	resp := healthResponse{
		Terminal:    term.State().String(),
		Subscribers: term.Subscribers(),
		Clients:     s.hub.ClientCount(),
	}
	if s.status != nil {
		st := s.status()
		resp.Jobs = &jobsHealth{
			DaemonUp:     st.DaemonUp,
			WarmedModels: st.WarmedModels,
			WarmError:    logger.Redact(st.WarmError),
			KeysLoaded:   st.KeysLoaded,
			PrefetchErr:  logger.Redact(st.PrefetchErr),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("encode health: %v", err)
	}
}

func generateAuthToken() (string, error) {
	bytes := make([]byte, authTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
