package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"gridrelay/internal/protocol"
)

// route parses one inbound frame and dispatches it by envelope type,
// recovering from any handler panic so one bad frame cannot take the
// connection down (mirrors the teacher's handleMessage recover).
func (s *Server) route(c *Client, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).WithField("clientId", c.ClientID).Error("panic handling frame")
		}
	}()

	env, err := protocol.Parse(data)
	if err != nil {
		s.log.WithError(err).WithField("clientId", c.ClientID).Debug("dropping unparseable frame")
		return
	}

	switch env.Type {
	case protocol.TypeConnect:
		s.handleConnect(c, env)
	case protocol.TypeMove:
		s.handleMove(c, env)
	default:
		s.log.WithField("type", env.Type).Debug("unknown message type, dropping")
	}
}

// handleConnect processes a CONNECT frame: a fresh join, or a reconnect
// carrying a known playerId (spec.md §4.6).
func (s *Server) handleConnect(c *Client, env protocol.Envelope) {
	var payload protocol.ConnectClientPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			s.log.WithError(err).WithField("clientId", c.ClientID).Debug("dropping malformed CONNECT")
			return
		}
	}

	if payload.PlayerID != nil && s.core.HasPlayer(*payload.PlayerID) {
		s.resumePlayer(c, *payload.PlayerID)
		return
	}

	id := uuid.New()
	if payload.PlayerID != nil {
		// The client remembers an id from a prior session whose player was
		// already torn down; rejoin under the same identity rather than
		// minting an unrelated one.
		id = *payload.PlayerID
	}

	name := payload.PlayerName
	if name == "" {
		name = fmt.Sprintf("Player%d", rand.Intn(1000))
	}

	spawned, waiting := s.core.AddPlayer(id, name)
	s.registry.SetPlayerID(c.ClientID, id)
	c.PlayerID = id

	if spawned {
		s.replyFullState(c, id, name)
		return
	}
	if waiting {
		s.replyWaiting(c)
	}
}

// resumePlayer re-binds a reconnecting client to its still-live player
// without re-spawning it.
func (s *Server) resumePlayer(c *Client, playerID uuid.UUID) {
	s.registry.SetPlayerID(c.ClientID, playerID)
	c.PlayerID = playerID

	snap, ok := s.core.PlayerSnapshot(playerID)
	if !ok {
		return
	}
	if snap.X != nil {
		s.replyFullState(c, playerID, snap.Name)
	} else {
		s.replyWaiting(c)
	}
}

func (s *Server) replyFullState(c *Client, playerID uuid.UUID, name string) {
	state := s.core.SerializeState()
	payload := protocol.ConnectSpawnedPayload{
		ClientID:   c.ClientID,
		PlayerID:   playerID,
		PlayerName: name,
		GameState:  state,
	}
	frame, err := protocol.Build(protocol.TypeConnect, payload, &c.ClientID, time.Now())
	if err != nil {
		s.log.WithError(err).Error("failed to build CONNECT reply")
		return
	}
	c.enqueue(frame)
}

func (s *Server) replyWaiting(c *Client) {
	payload := protocol.ConnectWaitingPayload{
		ClientID:        c.ClientID,
		WaitingForSpawn: true,
		Message:         s.core.WaitMessage(),
	}
	frame, err := protocol.Build(protocol.TypeConnect, payload, &c.ClientID, time.Now())
	if err != nil {
		s.log.WithError(err).Error("failed to build wait reply")
		return
	}
	c.enqueue(frame)
}

// handleMove validates and applies a move. No reply is sent; the result
// appears in the next STATE_UPDATE (spec.md §4.6).
func (s *Server) handleMove(c *Client, env protocol.Envelope) {
	if c.PlayerID == uuid.Nil {
		return
	}
	var payload protocol.MovePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		s.log.WithError(err).WithField("clientId", c.ClientID).Debug("dropping malformed MOVE")
		return
	}
	s.core.ValidateAndApply(c.PlayerID, payload.DX, payload.DY)
}
