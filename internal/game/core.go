package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gridrelay/internal/board"
	"gridrelay/internal/spawn"
)

// Core is the single authoritative owner of the board and every player.
// All mutation goes through its exported methods, each of which acquires
// mu — the single-writer discipline spec.md §5 requires of GameCore and
// ConnectionRegistry.
type Core struct {
	mu sync.Mutex

	board  *board.Board
	spawns SpawnConfig

	players map[uuid.UUID]*Player
	order   []uuid.UUID // insertion order, for waiting-queue fairness

	collisions []CollisionEvent

	Events *EventBus

	log *logrus.Entry
	now func() time.Time
}

// NewCore builds a GameCore bound to an already-loaded board.
func NewCore(b *board.Board, cfg SpawnConfig, log *logrus.Entry) *Core {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "gamecore")
	return &Core{
		board:   b,
		spawns:  cfg,
		players: make(map[uuid.UUID]*Player),
		Events:  NewEventBus(log),
		log:     log,
		now:     time.Now,
	}
}

// effectiveSpawnList is spawnPoints[:maxCount], falling back to the board
// center when that slice is empty (spec.md §3).
func (c *Core) effectiveSpawnList() []board.Point {
	list := c.board.SpawnPoints
	if len(list) > c.spawns.MaxCount {
		list = list[:c.spawns.MaxCount]
	}
	if len(list) == 0 {
		return []board.Point{{X: c.board.Width / 2, Y: c.board.Height / 2}}
	}
	return list
}

// occupantsLocked returns every placed player as a spawn.Occupant. Caller
// must hold mu.
func (c *Core) occupantsLocked() []spawn.Occupant {
	out := make([]spawn.Occupant, 0, len(c.players))
	for _, p := range c.players {
		if p.Placed() {
			out = append(out, spawn.Occupant{X: *p.X, Y: *p.Y, Placed: true})
		}
	}
	return out
}

// AddPlayer inserts a new Player and attempts to place it immediately.
func (c *Core) AddPlayer(id uuid.UUID, name string) (spawned, waiting bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &Player{ID: id, Name: name}
	c.players[id] = p
	c.order = append(c.order, id)

	if pt, ok := spawn.FirstAvailable(c.effectiveSpawnList(), c.board, c.occupantsLocked(), c.spawns.ClearRadius); ok {
		x, y := pt.X, pt.Y
		p.X, p.Y = &x, &y
		c.log.WithFields(logrus.Fields{"playerId": id, "x": x, "y": y}).Info("player spawned")
		return true, false
	}

	c.log.WithField("playerId", id).Info("player waiting for spawn")
	return false, true
}

// RemovePlayer deletes a player. Callers must invoke TrySpawnWaiting
// afterward to give any waiting player a chance at the freed disk.
func (c *Core) RemovePlayer(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.players, id)
	for i, pid := range c.order {
		if pid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// TrySpawnWaiting attempts to place every still-waiting player, in
// insertion order, and returns the ids that were newly placed.
func (c *Core) TrySpawnWaiting() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()

	var spawned []uuid.UUID
	for _, id := range c.order {
		p, ok := c.players[id]
		if !ok || p.Placed() {
			continue
		}
		pt, ok := spawn.FirstAvailable(c.effectiveSpawnList(), c.board, c.occupantsLocked(), c.spawns.ClearRadius)
		if !ok {
			continue
		}
		x, y := pt.X, pt.Y
		p.X, p.Y = &x, &y
		spawned = append(spawned, id)
		c.log.WithFields(logrus.Fields{"playerId": id, "x": x, "y": y}).Info("waiting player spawned")
	}
	return spawned
}

// ValidateAndApply applies a one-cell move if every invariant in
// spec.md §4.3 holds, emitting a collision event on rejection by wall or
// player overlap.
func (c *Core) ValidateAndApply(id uuid.UUID, dx, dy int) (applied bool, reason string) {
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
		return false, "delta out of range"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.players[id]
	if !ok || !p.Placed() {
		return false, "unknown or unplaced player"
	}

	newX, newY := *p.X+dx, *p.Y+dy

	if !c.board.InBounds(newX, newY) {
		return false, "out of bounds"
	}

	if c.board.IsWall(newX, newY) {
		c.recordCollision(WallCollision, id, newX, newY)
		return false, "wall"
	}

	for otherID, other := range c.players {
		if otherID == id || !other.Placed() {
			continue
		}
		if *other.X == newX && *other.Y == newY {
			c.recordCollision(PlayerCollision, id, newX, newY)
			return false, "collision"
		}
	}

	now := c.now()
	p.LastX, p.LastY, p.LastT = p.X, p.Y, &now
	x, y := newX, newY
	p.X, p.Y = &x, &y
	return true, ""
}

// recordCollision appends to the pending collision log and emits via the
// event bus. Caller must hold mu.
func (c *Core) recordCollision(kind CollisionKind, id uuid.UUID, x, y int) {
	ev := CollisionEvent{Kind: kind, PlayerID: id, X: x, Y: y}
	c.collisions = append(c.collisions, ev)
	c.Events.EmitTargeted(id, ev)
	c.Events.EmitGlobal(ev)
}

// SerializeState returns a defensive copy of the full game state, suitable
// for handing to the broadcast pipeline without holding mu.
func (c *Core) SerializeState() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	players := make([]PlayerView, 0, len(c.players))
	for id, p := range c.players {
		var vx, vy float64
		if p.Placed() && p.LastT != nil && p.LastX != nil && p.LastY != nil {
			dt := c.now().Sub(*p.LastT).Seconds()
			if dt > 0 {
				vx = float64(*p.X-*p.LastX) / dt
				vy = float64(*p.Y-*p.LastY) / dt
			}
		}
		players = append(players, PlayerView{
			PlayerID: id,
			X:        copyIntPtr(p.X),
			Y:        copyIntPtr(p.Y),
			Name:     p.Name,
			VX:       vx,
			VY:       vy,
		})
	}

	collisions := make([]CollisionEvent, len(c.collisions))
	copy(collisions, c.collisions)

	return State{
		Board:         BoardView{Width: c.board.Width, Height: c.board.Height, Grid: c.board.CloneGrid()},
		Players:       players,
		Score:         0, // no scoring rule is defined by the spec; reserved for future use
		HasCollisions: len(collisions) > 0,
		Collisions:    collisions,
	}
}

// ClearCollisions drops the accumulated collision log. Callers must only
// invoke this strictly after a successful broadcast (spec.md §4.3/§5).
func (c *Core) ClearCollisions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collisions = nil
}

// WaitMessage returns the configured message shown to a waiting client.
func (c *Core) WaitMessage() string { return c.spawns.WaitMessage }

// HasPlayer reports whether a player with this id is still tracked.
func (c *Core) HasPlayer(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.players[id]
	return ok
}

// PlayerSnapshot returns a defensive copy of one player's view, for
// replying to a reconnecting client without serializing the whole state.
func (c *Core) PlayerSnapshot(id uuid.UUID) (PlayerView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.players[id]
	if !ok {
		return PlayerView{}, false
	}
	return PlayerView{
		PlayerID: id,
		X:        copyIntPtr(p.X),
		Y:        copyIntPtr(p.Y),
		Name:     p.Name,
	}, true
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
