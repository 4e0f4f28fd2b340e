package relay

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"mchat/internal/domain"
	"mchat/internal/instrument"
)

const (
	// ChatPath is where the WebSocket endpoint is mounted.
	ChatPath = "/chat"
	// MetricsPath serves Prometheus metrics.
	MetricsPath = "/metrics"

	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	outboxSize = 64

	defaultRate  = rate.Limit(5)
	defaultBurst = 20
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger.
func WithServerLogger(l *log.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithRegistry replaces the default empty registry.
func WithRegistry(r *Registry) ServerOption {
	return func(s *Server) { s.registry = r }
}

// WithRateLimit bounds control frames (auth, lookups, registration) per
// connection.
func WithRateLimit(limit rate.Limit, burst int) ServerOption {
	return func(s *Server) { s.rate, s.burst = limit, burst }
}

// WithPrometheus registers the relay's collectors on reg and serves reg's
// metrics on MetricsPath.
func WithPrometheus(reg *prometheus.Registry) ServerOption {
	return func(s *Server) { s.promReg = reg }
}

// WithChallengeSource sets the randomness used for login challenges.
func WithChallengeSource(r io.Reader) ServerOption {
	return func(s *Server) { s.random = r }
}

// Server is the relay hub.
type Server struct {
	log      *log.Logger
	registry *Registry
	metrics  *instrument.Relay
	promReg  *prometheus.Registry
	random   io.Reader
	rate     rate.Limit
	burst    int
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	online map[domain.Username]*peer
	peers  map[*peer]struct{}
}

// NewServer returns a relay hub.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		random: rand.Reader,
		rate:   defaultRate,
		burst:  defaultBurst,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		online: make(map[domain.Username]*peer),
		peers:  make(map[*peer]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.Default().WithPrefix("relay")
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.promReg == nil {
		s.promReg = prometheus.NewRegistry()
	}
	s.metrics = instrument.NewRelay(s.promReg)
	return s
}

// Registry returns the server's key registry.
func (s *Server) Registry() *Registry { return s.registry }

// Handler returns the HTTP routes for the relay.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ChatPath, s.serveChat)
	mux.Handle(MetricsPath, promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
	return mux
}

// Online reports whether username has an authenticated connection.
func (s *Server) Online(username domain.Username) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.online[username]
	return ok
}

func (s *Server) serveChat(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	p := &peer{
		ws:      ws,
		remote:  r.RemoteAddr,
		outbox:  make(chan domain.Envelope, outboxSize),
		limiter: rate.NewLimiter(s.rate, s.burst),
	}
	s.attach(p)
	defer s.detach(p)

	s.log.Debug("connection opened", "remote", p.remote)

	// Either loop failing closes the socket, which ends the other.
	g, ctx := errgroup.WithContext(context.Background())
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer stop()

	g.Go(func() error { return s.readLoop(p) })
	g.Go(func() error { return s.writeLoop(ctx, p) })
	if err := g.Wait(); err != nil && !isClosed(err) {
		s.log.Debug("connection closed", "remote", p.remote, "user", p.name(), "err", err)
	}
}

// Close drops every open connection. http.Server.Shutdown does not reach
// hijacked WebSocket connections, so callers pair it with Close.
func (s *Server) Close() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p := range s.peers {
		_ = p.ws.Close()
	}
}

func (s *Server) attach(p *peer) {
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
	s.metrics.ConnOpened()
}

func (s *Server) detach(p *peer) {
	s.mu.Lock()
	delete(s.peers, p)
	if u := p.name(); u != "" && s.online[u] == p {
		delete(s.online, u)
	}
	s.mu.Unlock()
	s.metrics.ConnClosed()
	_ = p.ws.Close()
}

// bind marks p as authenticated for username. A newer login replaces an
// older connection for the same name.
func (s *Server) bind(p *peer, username domain.Username) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.setName(username)
	s.online[username] = p
}

func (s *Server) readLoop(p *peer) error {
	p.ws.SetReadLimit(maxMessageSize)
	_ = p.ws.SetReadDeadline(time.Now().Add(pongWait))
	p.ws.SetPongHandler(func(string) error {
		return p.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, b, err := p.ws.ReadMessage()
		if err != nil {
			return err
		}
		var env domain.Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			s.metrics.Frame("malformed")
			s.log.Warn("dropping undecodable envelope", "remote", p.remote, "err", err)
			continue
		}
		s.dispatch(p, env)
	}
}

func (s *Server) writeLoop(ctx context.Context, p *peer) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-p.outbox:
			_ = p.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.ws.WriteJSON(env); err != nil {
				return err
			}
		case <-ticker.C:
			if err := p.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// peer is one server-side connection.
type peer struct {
	ws      *websocket.Conn
	remote  string
	outbox  chan domain.Envelope
	limiter *rate.Limiter

	mu        sync.Mutex
	username  domain.Username
	challenge string // outstanding login challenge, consumed by the next auth-response
	rejected  bool   // a failed login is terminal for the connection
}

func (p *peer) name() domain.Username {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.username
}

func (p *peer) setName(u domain.Username) {
	p.mu.Lock()
	p.username = u
	p.mu.Unlock()
}

// takeChallenge returns and clears the outstanding challenge.
func (p *peer) takeChallenge() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.challenge
	p.challenge = ""
	return c
}

func (p *peer) reject() {
	p.mu.Lock()
	p.rejected = true
	p.challenge = ""
	p.mu.Unlock()
}

func (p *peer) isRejected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rejected
}

func (p *peer) setChallenge(c string) {
	p.mu.Lock()
	p.challenge = c
	p.mu.Unlock()
}

// send queues env for the write loop. It never blocks; a peer that cannot
// keep up loses the envelope.
func (p *peer) send(env domain.Envelope) bool {
	select {
	case p.outbox <- env:
		return true
	default:
		return false
	}
}
