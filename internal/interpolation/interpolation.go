// Package interpolation implements InterpolationEngine: a per-remote-entity
// jitter buffer that is sampled at a delayed render time and eased toward
// smoothly, so remote players move fluidly between STATE_UPDATE snapshots
// (spec.md §4.10).
package interpolation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"gridrelay/internal/game"
)

// DefaultBufferCap is the per-entity ring buffer size spec.md §4.10 names
// ("e.g. 20").
const DefaultBufferCap = 20

// DefaultDelay is INTERPOLATION_DELAY_MS (default 150 ms).
const DefaultDelay = 150 * time.Millisecond

// DefaultTick is the client tick cadence spec.md §4.10 names (50 ms).
const DefaultTick = 50 * time.Millisecond

// Snapshot is one server-stamped sample of a remote player's position.
type Snapshot struct {
	T          time.Time
	X, Y       int
	PlayerName string
	VX, VY     float64
}

// Cell is a rendered integer board position.
type Cell struct {
	X, Y       int
	PlayerName string
}

// Config tunes the engine; zero values fall back to the spec's defaults.
type Config struct {
	BufferCap int
	Delay     time.Duration
	// DisableEasing turns off the one-cell-per-tick display cap (spec.md
	// §4.10 default is eased on; the zero value of this struct therefore
	// keeps easing enabled).
	DisableEasing bool
}

// Engine holds the jitter buffers and eased display state for every known
// remote player.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	board  game.BoardView
	cap    int
	buffer map[uuid.UUID][]Snapshot
	eased  map[uuid.UUID]Cell // last drawn cell, for display easing and diffing

	onCellChanged func(playerID uuid.UUID, old, new Cell, hadOld bool)
	onCellCleared func(playerID uuid.UUID)
}

// Callbacks lets the host commit redraws without the engine knowing about
// any rendering surface (Renderer stays an out-of-scope collaborator).
type Callbacks struct {
	OnCellChanged func(playerID uuid.UUID, old, new Cell, hadOld bool)
	OnCellCleared func(playerID uuid.UUID)
}

// New builds an Engine. Display easing defaults to on (DisableEasing false),
// matching spec.md §4.10's stated default.
func New(cfg Config, cb Callbacks) *Engine {
	bufCap := cfg.BufferCap
	if bufCap <= 0 {
		bufCap = DefaultBufferCap
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Engine{
		cfg:           Config{BufferCap: bufCap, Delay: delay, DisableEasing: cfg.DisableEasing},
		cap:           bufCap,
		buffer:        make(map[uuid.UUID][]Snapshot),
		eased:         make(map[uuid.UUID]Cell),
		onCellChanged: cb.OnCellChanged,
		onCellCleared: cb.OnCellCleared,
	}
}

// Ingest appends one snapshot per remote player from a STATE_UPDATE stamped
// with envelope timestamp t, dropping buffers for any player present
// before but absent now (spec.md §4.10 Ingest).
func (e *Engine) Ingest(localPlayerID uuid.UUID, state game.State, t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.board = state.Board
	seen := make(map[uuid.UUID]bool, len(state.Players))

	for _, p := range state.Players {
		if p.PlayerID == localPlayerID || p.X == nil || p.Y == nil {
			continue
		}
		seen[p.PlayerID] = true
		snap := Snapshot{T: t, X: *p.X, Y: *p.Y, PlayerName: p.Name, VX: p.VX, VY: p.VY}
		buf := append(e.buffer[p.PlayerID], snap)
		if len(buf) > e.cap {
			buf = buf[len(buf)-e.cap:]
		}
		e.buffer[p.PlayerID] = buf
	}

	for id := range e.buffer {
		if seen[id] {
			continue
		}
		delete(e.buffer, id)
		delete(e.eased, id)
		if e.onCellCleared != nil {
			e.onCellCleared(id)
		}
	}
}

// Tick samples every remote entity's jitter buffer at renderTime = now -
// Delay, lerping between adjacent snapshots, clamping to a legal cell, and
// applying display easing before committing any change.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	renderTime := now.Add(-e.cfg.Delay)

	for id, buf := range e.buffer {
		if len(buf) == 0 {
			continue
		}
		target := sample(buf, renderTime)
		target = clamp(e.board, target, buf[len(buf)-1])

		old, hadOld := e.eased[id]
		var next Cell
		if !e.cfg.DisableEasing && hadOld {
			next = Cell{
				X:          old.X + clampStep(target.X-old.X),
				Y:          old.Y + clampStep(target.Y-old.Y),
				PlayerName: target.PlayerName,
			}
		} else {
			next = target
		}

		if hadOld && next == old {
			continue
		}
		e.eased[id] = next
		if e.onCellChanged != nil {
			e.onCellChanged(id, old, next, hadOld)
		}
	}
}

// sample finds the two snapshots adjacent to renderTime and linearly
// interpolates between them, per spec.md §4.10's Tick algorithm. With a
// dry buffer (renderTime beyond the latest sample) it holds at the latest
// sample rather than extrapolating.
func sample(buf []Snapshot, renderTime time.Time) Cell {
	latest := buf[len(buf)-1]
	if len(buf) == 1 || !renderTime.After(buf[0].T) {
		return Cell{X: round(float64(latest.X)), Y: round(float64(latest.Y)), PlayerName: latest.PlayerName}
	}
	if renderTime.After(latest.T) || renderTime.Equal(latest.T) {
		return Cell{X: latest.X, Y: latest.Y, PlayerName: latest.PlayerName}
	}

	for i := 0; i < len(buf)-1; i++ {
		a, b := buf[i], buf[i+1]
		if !renderTime.Before(a.T) && !renderTime.After(b.T) {
			span := b.T.Sub(a.T).Seconds()
			if span <= 0 {
				return Cell{X: b.X, Y: b.Y, PlayerName: b.PlayerName}
			}
			alpha := renderTime.Sub(a.T).Seconds() / span
			x := float64(a.X) + float64(b.X-a.X)*alpha
			y := float64(a.Y) + float64(b.Y-a.Y)*alpha
			return Cell{X: round(x), Y: round(y), PlayerName: b.PlayerName}
		}
	}
	return Cell{X: latest.X, Y: latest.Y, PlayerName: latest.PlayerName}
}

// clamp substitutes the latest snapshot's cell whenever the interpolated
// cell would land out of bounds or on a wall (spec.md §4.10 Clamp).
func clamp(b game.BoardView, c Cell, latest Snapshot) Cell {
	if inBounds(b, c.X, c.Y) && !isWall(b, c.X, c.Y) {
		return c
	}
	return Cell{X: latest.X, Y: latest.Y, PlayerName: latest.PlayerName}
}

func clampStep(delta int) int {
	if delta > 1 {
		return 1
	}
	if delta < -1 {
		return -1
	}
	return delta
}

func round(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
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
