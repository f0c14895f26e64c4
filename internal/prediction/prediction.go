// Package prediction implements PredictionEngine: client-side optimistic
// movement for the local player with authoritative reconciliation on every
// STATE_UPDATE and a periodic safety-net reconcile (spec.md §4.9).
package prediction

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gridrelay/internal/game"
)

// Point is a local-board coordinate.
type Point struct{ X, Y int }

// Callbacks lets the host redraw in response to prediction events, in
// place of the source's event-emitter base class (design note §9).
type Callbacks struct {
	// SendMove is invoked once a locally validated move should go over the
	// wire.
	SendMove func(dx, dy int)
	// OnReconcile fires whenever the predicted local position changes
	// (either from local input or a server snap), carrying the new cell.
	OnReconcile func(p Point)
	// OnForceRedrawRemotes fires when a STATE_UPDATE reports a collision,
	// so remote players stay visible even when their cell didn't change.
	OnForceRedrawRemotes func()
}

// DefaultReconcileInterval is the periodic safety-net cadence spec.md §4.9
// names (5000 ms).
const DefaultReconcileInterval = 5 * time.Second

// Engine tracks one client's local-player prediction state.
type Engine struct {
	mu sync.Mutex

	localPlayerID uuid.UUID
	board         game.BoardView
	others        map[uuid.UUID]Point

	predicted *Point
	server    *Point

	enabled bool
	cb      Callbacks
	log     *logrus.Entry

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds an Engine for the given local player, with prediction enabled
// by default.
func New(localPlayerID uuid.UUID, cb Callbacks, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		localPlayerID: localPlayerID,
		others:        make(map[uuid.UUID]Point),
		enabled:       true,
		cb:            cb,
		log:           log.WithField("component", "prediction"),
		stop:          make(chan struct{}),
	}
}

// SetEnabled toggles reconciliation; disabling leaves predicted position as
// the sole rendering source.
func (e *Engine) SetEnabled(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = on
}

// HandleInput validates a one-cell move locally (bounds, wall, known other
// players) and, if valid, advances the predicted position and sends the
// MOVE. Returns whether the move was sent.
func (e *Engine) HandleInput(dx, dy int) bool {
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.predicted == nil {
		return false // waiting for spawn; nothing to move yet
	}

	newX, newY := e.predicted.X+dx, e.predicted.Y+dy
	if !inBounds(e.board, newX, newY) || isWall(e.board, newX, newY) {
		return false
	}
	for id, p := range e.others {
		if id == e.localPlayerID {
			continue
		}
		if p.X == newX && p.Y == newY {
			return false
		}
	}

	e.predicted = &Point{X: newX, Y: newY}
	if e.cb.SendMove != nil {
		e.cb.SendMove(dx, dy)
	}
	if e.cb.OnReconcile != nil {
		e.cb.OnReconcile(*e.predicted)
	}
	return true
}

// HandleStateUpdate ingests one STATE_UPDATE: refreshes the board and known
// other-player positions, sets the latest server position for the local
// player, reconciles if prediction is enabled, and forces a remote redraw
// on any reported collision.
func (e *Engine) HandleStateUpdate(state game.State) {
	e.mu.Lock()
	e.board = state.Board

	others := make(map[uuid.UUID]Point, len(state.Players))
	var serverPos *Point
	for _, p := range state.Players {
		if p.X == nil || p.Y == nil {
			continue
		}
		pt := Point{X: *p.X, Y: *p.Y}
		if p.PlayerID == e.localPlayerID {
			serverPos = &pt
		} else {
			others[p.PlayerID] = pt
		}
	}
	e.others = others
	e.server = serverPos

	hasCollision := state.HasCollisions || len(state.Collisions) > 0
	enabled := e.enabled
	e.mu.Unlock()

	if enabled {
		e.Reconcile()
	}
	if hasCollision && e.cb.OnForceRedrawRemotes != nil {
		e.cb.OnForceRedrawRemotes()
	}
}

// Reconcile snaps the predicted position to the last known server position
// when they differ. Safe to call on a timer even with no new state.
func (e *Engine) Reconcile() {
	e.mu.Lock()
	if e.server == nil {
		e.mu.Unlock()
		return
	}
	if e.predicted != nil && *e.predicted == *e.server {
		e.mu.Unlock()
		return
	}
	snapped := *e.server
	e.predicted = &snapped
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{"x": snapped.X, "y": snapped.Y}).Debug("reconciled predicted position to server")
	if e.cb.OnReconcile != nil {
		e.cb.OnReconcile(snapped)
	}
}

// Predicted returns the current predicted local position, if spawned.
func (e *Engine) Predicted() (Point, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.predicted == nil {
		return Point{}, false
	}
	return *e.predicted, true
}

// StartPeriodicReconciliation runs Reconcile on interval until Stop is
// called, recovering from drift bugs even absent a mismatched STATE_UPDATE
// (spec.md §4.9 point 3).
func (e *Engine) StartPeriodicReconciliation(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.Reconcile()
			case <-e.stop:
				return
			}
		}
	}()
}

// Stop ends the periodic reconciliation goroutine, if started.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func inBounds(b game.BoardView, x, y int) bool {
	return x >= 0 && x < b.Width && y >= 0 && y < b.Height
}

func isWall(b game.BoardView, x, y int) bool {
	if !inBounds(b, x, y) {
		return true
	}
	return b.Grid[y][x] == '#'
}
