// Package game holds the authoritative board, players, and event bus that
// every other server component reads through — GameCore in spec terms.
package game

import (
	"time"

	"github.com/google/uuid"
)

// Player is a single connected participant. X and Y are nil while the
// player is waiting for a spawn slot. LastX/LastY/LastT record the prior
// confirmed position so SerializeState can derive a velocity.
type Player struct {
	ID   uuid.UUID
	Name string

	X, Y *int

	LastX, LastY *int
	LastT        *time.Time
}

// Placed reports whether the player currently occupies a cell.
func (p *Player) Placed() bool { return p.X != nil && p.Y != nil }

// SpawnConfig controls how many board spawn points are offered and how
// much clearance (Manhattan radius) each one requires.
type SpawnConfig struct {
	MaxCount    int
	ClearRadius int
	WaitMessage string
}

// DefaultSpawnConfig matches the defaults named in spec.md §3.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		MaxCount:    25,
		ClearRadius: 3,
		WaitMessage: "Waiting for an open spawn point...",
	}
}

// CollisionKind distinguishes why a move was rejected.
type CollisionKind string

const (
	PlayerCollision CollisionKind = "PLAYER_COLLISION"
	WallCollision   CollisionKind = "WALL_COLLISION"
)

// CollisionEvent records a rejected move attempt for the next broadcast.
type CollisionEvent struct {
	Kind     CollisionKind `json:"kind"`
	PlayerID uuid.UUID     `json:"playerId"`
	X        int           `json:"x"`
	Y        int           `json:"y"`
}

// PlayerView is the read-only per-player slice of a serialized state.
type PlayerView struct {
	PlayerID uuid.UUID `json:"playerId"`
	X        *int      `json:"x"`
	Y        *int      `json:"y"`
	Name     string    `json:"playerName"`
	VX       float64   `json:"vx"`
	VY       float64   `json:"vy"`
}

// BoardView is the read-only board slice of a serialized state.
type BoardView struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Grid   [][]byte `json:"grid"`
}

// State is the value returned by SerializeState — a defensive copy safe to
// hand to the broadcast pipeline without holding GameCore's lock.
type State struct {
	Board         BoardView        `json:"board"`
	Players       []PlayerView     `json:"players"`
	Score         int              `json:"score"`
	HasCollisions bool             `json:"hasCollisions"`
	Collisions    []CollisionEvent `json:"collisions"`
}
