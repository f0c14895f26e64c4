// Package protocol implements the wire envelope described in spec.md §4.5:
// parse/build plus the CONNECT/MOVE/STATE_UPDATE payload shapes.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gridrelay/internal/game"
)

// Message type constants (spec.md §4.5).
const (
	TypeConnect     = "CONNECT"
	TypeMove        = "MOVE"
	TypeStateUpdate = "STATE_UPDATE"
)

// Envelope is the framed JSON message exchanged over the WebSocket.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	ClientID  *uuid.UUID      `json:"clientId,omitempty"`
}

// ParseError reports a malformed frame; per spec.md §7 the caller logs and
// drops it.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes a raw frame into an Envelope, validating that the
// top-level value is a JSON object carrying type, payload, and timestamp
// with the expected types.
func Parse(data []byte) (Envelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, &ParseError{Reason: "invalid JSON or not an object", Err: err}
	}

	typeRaw, ok := raw["type"]
	if !ok {
		return Envelope{}, &ParseError{Reason: "missing type"}
	}
	var typ string
	if err := json.Unmarshal(typeRaw, &typ); err != nil {
		return Envelope{}, &ParseError{Reason: "type is not a string", Err: err}
	}

	payloadRaw, ok := raw["payload"]
	if !ok {
		return Envelope{}, &ParseError{Reason: "missing payload"}
	}
	var payloadObj map[string]json.RawMessage
	if err := json.Unmarshal(payloadRaw, &payloadObj); err != nil || payloadObj == nil {
		return Envelope{}, &ParseError{Reason: "payload is not an object", Err: err}
	}

	tsRaw, ok := raw["timestamp"]
	if !ok {
		return Envelope{}, &ParseError{Reason: "missing timestamp"}
	}
	var ts int64
	if err := json.Unmarshal(tsRaw, &ts); err != nil {
		return Envelope{}, &ParseError{Reason: "timestamp is not an integer", Err: err}
	}

	env := Envelope{Type: typ, Payload: payloadRaw, Timestamp: ts}
	if cidRaw, ok := raw["clientId"]; ok {
		var cid uuid.UUID
		if err := json.Unmarshal(cidRaw, &cid); err == nil {
			env.ClientID = &cid
		}
	}
	return env, nil
}

// Build marshals payload and stamps the envelope's timestamp with the
// current time, per spec.md §4.5 ("Build always stamps timestamp = now_ms").
func Build(msgType string, payload interface{}, clientID *uuid.UUID, now time.Time) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal payload: %w", err)
	}
	env := Envelope{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: now.UnixMilli(),
		ClientID:  clientID,
	}
	return json.Marshal(env)
}

// ConnectClientPayload is the client->server CONNECT body. PlayerID is set
// only when a reconnecting client wants the server to recognize it.
// PlayerName is not specified by spec.md's terse payload description but is
// required by the Player data model (spec.md §3); gridrelay accepts it here,
// generating a placeholder name when absent (see DESIGN.md).
type ConnectClientPayload struct {
	PlayerID   *uuid.UUID `json:"playerId,omitempty"`
	PlayerName string     `json:"playerName,omitempty"`
}

// ConnectSpawnedPayload is the server->client CONNECT reply for a player
// that was placed on the board immediately (or resumed after reconnect).
type ConnectSpawnedPayload struct {
	ClientID   uuid.UUID  `json:"clientId"`
	PlayerID   uuid.UUID  `json:"playerId"`
	PlayerName string     `json:"playerName"`
	GameState  game.State `json:"gameState"`
}

// ConnectWaitingPayload is the server->client CONNECT reply for a player
// held because no spawn point is currently free.
type ConnectWaitingPayload struct {
	ClientID        uuid.UUID `json:"clientId"`
	WaitingForSpawn bool      `json:"waitingForSpawn"`
	Message         string    `json:"message"`
}

// MovePayload is the client->server MOVE body: a one-cell delta.
type MovePayload struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// StateUpdatePayload is the server->broadcast STATE_UPDATE body. It is
// identical in shape to game.State; defined separately so the wire contract
// doesn't silently change if game.State grows server-internal fields.
type StateUpdatePayload struct {
	Board         game.BoardView        `json:"board"`
	Players       []game.PlayerView     `json:"players"`
	Score         int                   `json:"score"`
	HasCollisions bool                  `json:"hasCollisions"`
	Collisions    []game.CollisionEvent `json:"collisions"`
}

// FromState converts a game.State into its wire payload.
func FromState(s game.State) StateUpdatePayload {
	return StateUpdatePayload{
		Board:         s.Board,
		Players:       s.Players,
		Score:         s.Score,
		HasCollisions: s.HasCollisions,
		Collisions:    s.Collisions,
	}
}
