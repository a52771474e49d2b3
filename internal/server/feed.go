package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	bus "github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/pkg/concurrent"
)

const (
	writeTimeout     = 5 * time.Second
	broadcastWorkers = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// SensorSummary is one row of GET /debug/sensors.
type SensorSummary struct {
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"time"`
	Visible    int       `json:"visible"`
	Candidates int       `json:"candidates"`
}

type feedClient struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	sensor string // empty means every sensor
}

func (c *feedClient) wants(sensorID string) bool { return c.sensor == "" || c.sensor == sensorID }

func (c *feedClient) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(msg)
}

func (c *feedClient) writeLocked(msg []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// FeedServer streams tick snapshots to websocket clients and serves the
// latest snapshot per sensor over HTTP. It is a development aid.
type FeedServer struct {
	router *mux.Router
	logger log.Log

	mu     sync.RWMutex
	latest map[string]*perception.Snapshot

	clientsMu sync.Mutex
	clients   map[*feedClient]struct{}

	runMu    sync.Mutex
	server   *http.Server
	listener net.Listener
}

func NewFeedServer(logger log.Log) *FeedServer {
	if logger == nil {
		logger = log.Nop()
	}
	s := &FeedServer{
		router:  mux.NewRouter(),
		logger:  logger.Named("feed"),
		latest:  make(map[string]*perception.Snapshot),
		clients: make(map[*feedClient]struct{}),
	}
	s.router.HandleFunc("/debug/feed", s.handleFeed).Methods(http.MethodGet)
	s.router.HandleFunc("/debug/sensors", s.handleSensors).Methods(http.MethodGet)
	s.router.HandleFunc("/debug/sensors/{id}", s.handleSensor).Methods(http.MethodGet)
	return s
}

func (s *FeedServer) Handler() http.Handler { return s.router }

// Attach forwards every tick published on b to the feed.
func (s *FeedServer) Attach(b bus.EventBus) (bus.Subscription, error) {
	return b.Subscribe(perception.TickEvent, func(e bus.Event) error {
		snap, ok := e.Data().(*perception.Snapshot)
		if !ok {
			return fmt.Errorf("feed: unexpected payload %T", e.Data())
		}
		return s.Publish(context.Background(), snap)
	})
}

// Publish records snap as its sensor's latest and sends it to subscribed
// clients. Clients that fail to receive are dropped. A snapshot older than
// the sensor's latest is ignored.
func (s *FeedServer) Publish(ctx context.Context, snap *perception.Snapshot) error {
	msg, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	s.mu.Lock()
	if prev, ok := s.latest[snap.SensorID()]; ok && prev.Seq() >= snap.Seq() {
		s.mu.Unlock()
		return nil
	}
	s.latest[snap.SensorID()] = snap
	s.mu.Unlock()

	targets := s.clientsFor(snap.SensorID())
	return concurrent.ForEach(ctx, targets, broadcastWorkers, func(_ context.Context, c *feedClient) error {
		if err := c.write(msg); err != nil {
			s.logger.Debug("dropping feed client", log.String("remote", c.conn.RemoteAddr().String()), log.Error(err))
			s.removeClient(c)
		}
		return nil
	})
}

func (s *FeedServer) clientsFor(sensorID string) []*feedClient {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	out := make([]*feedClient, 0, len(s.clients))
	for c := range s.clients {
		if c.wants(sensorID) {
			out = append(out, c)
		}
	}
	return out
}

func (s *FeedServer) removeClient(c *feedClient) {
	s.clientsMu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.clientsMu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

// Clients is the number of connected feed clients.
func (s *FeedServer) Clients() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// Latest returns the most recent snapshot received for sensorID.
func (s *FeedServer) Latest(sensorID string) (*perception.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.latest[sensorID]
	return snap, ok
}

func (s *FeedServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	c := &feedClient{conn: conn, sensor: r.URL.Query().Get("sensor")}

	// Join, then catch up while holding the client's write lock so broadcasts
	// queue behind the catch-up. A tick racing the join may arrive twice.
	c.mu.Lock()
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()
	err = s.catchUp(c)
	c.mu.Unlock()
	if err != nil {
		s.logger.Debug("feed catch-up failed", log.String("remote", conn.RemoteAddr().String()), log.Error(err))
		s.removeClient(c)
		return
	}
	s.logger.Info("feed client connected", log.String("remote", conn.RemoteAddr().String()), log.String("sensor", c.sensor))

	// Clients only listen; reading surfaces the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.removeClient(c)
	s.logger.Info("feed client disconnected", log.String("remote", conn.RemoteAddr().String()))
}

// catchUp sends the latest snapshot of every sensor c wants, ordered by
// sensor ID. The caller holds c.mu.
func (s *FeedServer) catchUp(c *feedClient) error {
	s.mu.RLock()
	snaps := make([]*perception.Snapshot, 0, len(s.latest))
	for id, snap := range s.latest {
		if c.wants(id) {
			snaps = append(snaps, snap)
		}
	}
	s.mu.RUnlock()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].SensorID() < snaps[j].SensorID() })

	for _, snap := range snaps {
		msg, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		if err := c.writeLocked(msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *FeedServer) handleSensors(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make([]SensorSummary, 0, len(s.latest))
	for id, snap := range s.latest {
		out = append(out, SensorSummary{
			ID:         id,
			Seq:        snap.Seq(),
			Time:       snap.Time(),
			Visible:    len(snap.Visible()),
			Candidates: snap.Len(),
		})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *FeedServer) handleSensor(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, ok := s.Latest(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown sensor " + id})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start listens on addr and serves in the background.
func (s *FeedServer) Start(addr string) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.server != nil {
		return ErrServerAlreadyRunning
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.server, s.listener = srv, ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("feed server stopped", log.Error(err))
		}
	}()
	s.logger.Info("feed server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound listen address while running.
func (s *FeedServer) Addr() string {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down and disconnects every feed client.
func (s *FeedServer) Stop(ctx context.Context) error {
	s.runMu.Lock()
	srv := s.server
	s.server, s.listener = nil, nil
	s.runMu.Unlock()
	if srv == nil {
		return ErrServerNotRunning
	}

	s.clientsMu.Lock()
	clients := s.clients
	s.clients = make(map[*feedClient]struct{})
	s.clientsMu.Unlock()
	for c := range clients {
		_ = c.conn.Close()
	}
	return srv.Shutdown(ctx)
}
