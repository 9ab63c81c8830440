package devtools

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/vango-dev/quark/pkg/quark"
)

const (
	// DefaultEventsPerSecond is the default stream rate.
	DefaultEventsPerSecond = 50

	// DefaultBurst is the default stream burst.
	DefaultBurst = 100

	// DefaultBufferSize is the capacity of the event queue between the
	// runtime and the broadcaster.
	DefaultBufferSize = 1024

	// clientBufferSize is the per-client outgoing message queue.
	clientBufferSize = 64

	writeWait   = 5 * time.Second
	callTimeout = 5 * time.Second
)

// Option configures an Inspector.
type Option func(*Inspector)

// WithRateLimit limits streamed events to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(i *Inspector) {
		i.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithGatherer serves gatherer's metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(i *Inspector) {
		i.gatherer = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithBufferSize sets the event queue capacity.
func WithBufferSize(n int) Option {
	return func(i *Inspector) {
		if n > 0 {
			i.events = make(chan Event, n)
		}
	}
}

// Inspector streams runtime events to WebSocket clients and serves graph
// snapshots over HTTP.
type Inspector struct {
	logger   *slog.Logger
	limiter  *rate.Limiter
	gatherer prometheus.Gatherer
	events   chan Event
	dropped  atomic.Uint64
	loop     atomic.Pointer[quark.Loop]
	router   chi.Router
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

// client is one /events subscriber.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// New creates an inspector.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		logger:  slog.Default(),
		limiter: rate.NewLimiter(DefaultEventsPerSecond, DefaultBurst),
		events:  make(chan Event, DefaultBufferSize),
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Inspector is a local development tool
			},
		},
	}
	for _, opt := range opts {
		opt(i)
	}
	i.router = i.routes()
	return i
}

// Attach sets the loop whose runtime /nodes reports on.
func (i *Inspector) Attach(l *quark.Loop) {
	i.loop.Store(l)
}

// Handler returns the HTTP handler serving every inspector endpoint.
func (i *Inspector) Handler() http.Handler {
	return i.router
}

func (i *Inspector) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/nodes", i.handleNodes)
	r.Get("/clients", i.handleClients)
	r.Get("/events", i.handleEvents)
	if i.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(i.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Run broadcasts queued events until ctx is done, then disconnects every
// client.
func (i *Inspector) Run(ctx context.Context) error {
	defer i.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-i.events:
			data, err := json.Marshal(ev)
			if err != nil {
				i.logger.Warn("devtools: encode event", slog.String("error", err.Error()))
				continue
			}
			i.broadcast(data)
		}
	}
}

// Close disconnects every client.
func (i *Inspector) Close() {
	i.mu.Lock()
	clients := i.clients
	i.clients = make(map[string]*client)
	i.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// ClientCount returns the number of connected stream clients.
func (i *Inspector) ClientCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.clients)
}

// Dropped returns the number of events discarded and not yet reported.
func (i *Inspector) Dropped() uint64 {
	return i.dropped.Load()
}

// publish queues ev without blocking the runtime goroutine.
func (i *Inspector) publish(ev Event, limited bool) {
	if limited && !i.limiter.Allow() {
		i.dropped.Add(1)
		return
	}
	ev.Time = time.Now()
	ev.Dropped = i.dropped.Swap(0)
	select {
	case i.events <- ev:
	default:
		i.dropped.Add(ev.Dropped + 1)
	}
}

// broadcast sends a message to all connected clients. Clients whose queue
// is full are disconnected.
func (i *Inspector) broadcast(data []byte) {
	i.mu.RLock()
	clients := make([]*client, 0, len(i.clients))
	for _, c := range i.clients {
		clients = append(clients, c)
	}
	i.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		case <-c.done:
		default:
			i.logger.Debug("devtools: dropping slow client", slog.String("client", c.id))
			i.unregister(c)
		}
	}
}

func (i *Inspector) unregister(c *client) {
	i.mu.Lock()
	delete(i.clients, c.id)
	i.mu.Unlock()
	c.close()
}

// handleEvents upgrades the connection and streams events until the client
// disconnects.
func (i *Inspector) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := i.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientBufferSize),
		done: make(chan struct{}),
	}

	hello, _ := json.Marshal(Event{Type: EventHello, Time: time.Now(), Client: c.id})
	c.send <- hello

	i.mu.Lock()
	i.clients[c.id] = c
	i.mu.Unlock()
	i.logger.Debug("devtools: client connected", slog.String("client", c.id))

	go i.writePump(c)

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	i.unregister(c)
	i.logger.Debug("devtools: client disconnected", slog.String("client", c.id))
}

func (i *Inspector) writePump(c *client) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				i.unregister(c)
				return
			}
		}
	}
}

func (i *Inspector) handleNodes(w http.ResponseWriter, r *http.Request) {
	loop := i.loop.Load()
	if loop == nil {
		http.Error(w, "no runtime attached", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()

	nodes, err := quark.Call(ctx, loop, func(rt *quark.Runtime) ([]quark.NodeInfo, error) {
		return rt.Nodes(), nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	slices.SortFunc(nodes, func(a, b quark.NodeInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	if nodes == nil {
		nodes = []quark.NodeInfo{}
	}
	writeJSON(w, nodes)
}

// ClientsResponse is the body of GET /clients.
type ClientsResponse struct {
	Clients int    `json:"clients"`
	Dropped uint64 `json:"dropped"`
}

func (i *Inspector) handleClients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ClientsResponse{Clients: i.ClientCount(), Dropped: i.Dropped()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// AtomWritten implements quark.Observer.
func (i *Inspector) AtomWritten(id int64, label string) {
	i.publish(Event{Type: EventAtom, ID: id, Label: label}, true)
}

// ComputeEvaluated implements quark.Observer.
func (i *Inspector) ComputeEvaluated(id int64, label string) {
	i.publish(Event{Type: EventCompute, ID: id, Label: label}, true)
}

// EffectRan implements quark.Observer.
func (i *Inspector) EffectRan(stats quark.EffectStats) {
	i.publish(effectEvent(stats), true)
}

// FlushCompleted implements quark.Observer.
func (i *Inspector) FlushCompleted(stats quark.FlushStats) {
	i.publish(flushEvent(stats), true)
}

// ErrorReported implements quark.Observer.
func (i *Inspector) ErrorReported(err error) {
	i.publish(errorEvent(err), false)
}

var _ quark.Observer = (*Inspector)(nil)
