// Package registry tracks live connections and the clientId<->playerId
// bijection while both ends are established.
package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Conn is the minimal per-connection record ConnectionRegistry tracks.
// Socket is an opaque handle (the concrete *websocket.Conn wrapper lives in
// internal/server); registry only needs identity and the outbound queue
// used before a connection is OPEN.
type Conn struct {
	ClientID uuid.UUID
	PlayerID uuid.UUID // zero value (uuid.Nil) means "no player yet"
	Socket   interface{}
	Outbound [][]byte
}

// HasPlayer reports whether this connection has joined a player.
func (c *Conn) HasPlayer() bool { return c.PlayerID != uuid.Nil }

// Registry is the shared clientId<->playerId directory. All mutation is
// serialized behind mu, matching GameCore's single-writer discipline.
type Registry struct {
	mu       sync.Mutex
	byClient map[uuid.UUID]*Conn
	byPlayer map[uuid.UUID]uuid.UUID // playerId -> clientId
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		byClient: make(map[uuid.UUID]*Conn),
		byPlayer: make(map[uuid.UUID]uuid.UUID),
	}
}

// Add registers a freshly accepted connection.
func (r *Registry) Add(clientID uuid.UUID, socket interface{}) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Conn{ClientID: clientID, Socket: socket}
	r.byClient[clientID] = c
	return c
}

// Remove drops a connection and clears its playerId mapping, if any.
func (r *Registry) Remove(clientID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byClient[clientID]; ok {
		if c.HasPlayer() {
			delete(r.byPlayer, c.PlayerID)
		}
		delete(r.byClient, clientID)
	}
}

// SetPlayerID binds a connection to a playerId, establishing the bijection.
func (r *Registry) SetPlayerID(clientID, playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byClient[clientID]
	if !ok {
		return
	}
	if c.HasPlayer() {
		delete(r.byPlayer, c.PlayerID)
	}
	c.PlayerID = playerID
	r.byPlayer[playerID] = clientID
}

// ByClientID looks up a connection by clientId.
func (r *Registry) ByClientID(clientID uuid.UUID) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byClient[clientID]
	return c, ok
}

// ByPlayerID looks up a connection by playerId.
func (r *Registry) ByPlayerID(playerID uuid.UUID) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clientID, ok := r.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	c, ok := r.byClient[clientID]
	return c, ok
}

// All returns a snapshot of every registered connection. The order follows
// map iteration and is not stable between calls (spec.md §4.4 leaves it
// unspecified).
func (r *Registry) All() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Conn, 0, len(r.byClient))
	for _, c := range r.byClient {
		out = append(out, c)
	}
	return out
}

// Enqueue appends a frame to a connection's outbound queue, used while its
// socket is not yet OPEN.
func (r *Registry) Enqueue(clientID uuid.UUID, frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byClient[clientID]; ok {
		c.Outbound = append(c.Outbound, frame)
	}
}

// DrainOutbound returns and clears a connection's queued frames in FIFO
// order.
func (r *Registry) DrainOutbound(clientID uuid.UUID) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byClient[clientID]
	if !ok || len(c.Outbound) == 0 {
		return nil
	}
	out := c.Outbound
	c.Outbound = nil
	return out
}
