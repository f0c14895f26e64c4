// Package server implements ServerOrchestrator: WebSocket lifecycle,
// message routing, the periodic broadcast pipeline, and shutdown. The
// control-flow shape — a register/unregister channel pair feeding a single
// event loop, with per-connection read/write pumps — follows
// github.com/lab1702/netrek-web's server.Server.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gridrelay/internal/config"
	"gridrelay/internal/game"
	"gridrelay/internal/protocol"
	"gridrelay/internal/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the single long-lived orchestrator object; its lifecycle is
// new -> Run -> Shutdown (design note §9).
type Server struct {
	cfg config.ServerConfig
	log *logrus.Entry

	core     *game.Core
	registry *registry.Registry

	register   chan *Client
	unregister chan *Client

	clientsMu sync.Mutex
	clients   map[uuid.UUID]*Client

	stopOnce sync.Once
	stop     chan struct{}
	stopped  chan struct{}
}

// New builds a Server bound to an already-constructed GameCore.
func New(cfg config.ServerConfig, core *game.Core, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		cfg:        cfg,
		log:        log.WithField("component", "orchestrator"),
		core:       core,
		registry:   registry.New(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID]*Client),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Run drives the register/unregister loop and the broadcast ticker until
// Shutdown is called. It blocks, so callers typically invoke it in a
// goroutine, mirroring the teacher's `go gameServer.Run()`.
func (s *Server) Run() {
	defer close(s.stopped)

	ticker := time.NewTicker(s.cfg.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case c := <-s.register:
			s.clientsMu.Lock()
			s.clients[c.ClientID] = c
			s.clientsMu.Unlock()
			for _, frame := range s.registry.DrainOutbound(c.ClientID) {
				c.enqueue(frame)
			}
			s.log.WithField("clientId", c.ClientID).Info("client connected")

		case c := <-s.unregister:
			s.clientsMu.Lock()
			_, known := s.clients[c.ClientID]
			delete(s.clients, c.ClientID)
			s.clientsMu.Unlock()
			if !known {
				continue
			}
			close(c.send)
			s.handleDisconnect(c)

		case <-ticker.C:
			s.broadcastState()

		case <-s.stop:
			s.closeAllClients()
			return
		}
	}
}

// Shutdown stops the broadcast ticker and closes every socket, returning
// once Run has exited.
func (s *Server) Shutdown(ctx context.Context) {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.stopped:
	case <-ctx.Done():
	}
}

func (s *Server) closeAllClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for _, c := range s.clients {
		c.conn.Close()
	}
}

// handleDisconnect removes the player from GameCore, tries to fill the
// freed slot, and tells any newly spawned waiter.
func (s *Server) handleDisconnect(c *Client) {
	s.registry.Remove(c.ClientID)
	if c.PlayerID == uuid.Nil {
		return
	}
	s.core.RemovePlayer(c.PlayerID)

	for _, spawnedID := range s.core.TrySpawnWaiting() {
		s.notifySpawned(spawnedID)
	}
}

// notifySpawned sends a full-state CONNECT message to a client whose
// waiting player was just placed on the board.
func (s *Server) notifySpawned(playerID uuid.UUID) {
	conn, ok := s.registry.ByPlayerID(playerID)
	if !ok {
		return
	}

	state := s.core.SerializeState()
	var name string
	for _, pv := range state.Players {
		if pv.PlayerID == playerID {
			name = pv.Name
		}
	}

	payload := protocol.ConnectSpawnedPayload{
		ClientID:   conn.ClientID,
		PlayerID:   playerID,
		PlayerName: name,
		GameState:  state,
	}
	frame, err := protocol.Build(protocol.TypeConnect, payload, &conn.ClientID, time.Now())
	if err != nil {
		s.log.WithError(err).Warn("failed to build spawn notification")
		return
	}

	s.clientsMu.Lock()
	c, ok := s.clients[conn.ClientID]
	s.clientsMu.Unlock()
	if !ok {
		// Accepted (registry.Add already ran) but not yet visible to the
		// broadcast loop — the register channel send and this notification
		// raced. Queue it; Run's register case flushes it once the client
		// lands in s.clients.
		s.registry.Enqueue(conn.ClientID, frame)
		return
	}
	c.enqueue(frame)
}

// broadcastState serializes GameCore and fans STATE_UPDATE out to every
// client, only when at least one is connected (spec.md §4.6).
func (s *Server) broadcastState() {
	s.clientsMu.Lock()
	targets := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.clientsMu.Unlock()

	if len(targets) == 0 {
		return
	}

	state := s.core.SerializeState()
	frame, err := protocol.Build(protocol.TypeStateUpdate, protocol.FromState(state), nil, time.Now())
	if err != nil {
		s.log.WithError(err).Error("failed to build STATE_UPDATE")
		return
	}

	for _, c := range targets {
		c.enqueue(frame) // per-connection send failures log and move on; never aborts the broadcast
	}

	s.core.ClearCollisions() // only after the broadcast attempt completes
}

// HandleWebSocket upgrades an HTTP request and starts the connection's
// pumps, mirroring the teacher's HandleWebSocket.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	clientID := uuid.New()
	c := &Client{
		ClientID: clientID,
		conn:     conn,
		send:     make(chan []byte, 256),
		server:   s,
	}
	s.registry.Add(clientID, c)

	s.register <- c

	go c.writePump()
	go c.readPump()
}

// Stats is the supplemented diagnostic payload (SPEC_FULL.md §3),
// generalized from the teacher's per-team player counts.
type Stats struct {
	Connected int `json:"connected"`
	Waiting   int `json:"waiting"`
}

// HandleStats reports connected/waiting player counts.
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	state := s.core.SerializeState()
	stats := Stats{}
	for _, p := range state.Players {
		if p.X != nil {
			stats.Connected++
		} else {
			stats.Waiting++
		}
	}
	writeJSON(w, stats)
}

// HandleHealth is a liveness probe, grounded on the teacher's /health route.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
