package interpolation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridrelay/internal/game"
)

func openBoard(width, height int) game.BoardView {
	grid := make([][]byte, height)
	for y := range grid {
		row := make([]byte, width)
		for x := range row {
			row[x] = ' '
		}
		grid[y] = row
	}
	return game.BoardView{Width: width, Height: height, Grid: grid}
}

func intPtr(v int) *int { return &v }

func TestTickInterpolatesBetweenAdjacentSnapshotsScenario5(t *testing.T) {
	remote := uuid.New()
	local := uuid.New()
	base := time.Unix(0, 0)

	var lastCell Cell
	e2 := New(Config{Delay: 150 * time.Millisecond}, Callbacks{
		OnCellChanged: func(id uuid.UUID, old, new Cell, hadOld bool) { lastCell = new },
	})
	e2.Ingest(local, game.State{
		Board:   openBoard(20, 20),
		Players: []game.PlayerView{{PlayerID: remote, X: intPtr(10), Y: intPtr(10)}},
	}, base)
	e2.Ingest(local, game.State{
		Board:   openBoard(20, 20),
		Players: []game.PlayerView{{PlayerID: remote, X: intPtr(11), Y: intPtr(10)}},
	}, base.Add(250*time.Millisecond))

	e2.Tick(base.Add(200 * time.Millisecond)) // renderTime=50ms, alpha=0.2 -> rounds to (10,10)
	assert.Equal(t, Cell{X: 10, Y: 10}, lastCell)

	e2.Tick(base.Add(300 * time.Millisecond)) // renderTime=150ms, alpha=0.6 -> rounds to (11,10)
	assert.Equal(t, Cell{X: 11, Y: 10}, lastCell)
}

func TestIngestClearsBufferForDepartedPlayer(t *testing.T) {
	remote := uuid.New()
	local := uuid.New()
	cleared := false
	e := New(Config{}, Callbacks{
		OnCellCleared: func(id uuid.UUID) {
			if id == remote {
				cleared = true
			}
		},
	})

	e.Ingest(local, game.State{
		Board:   openBoard(10, 10),
		Players: []game.PlayerView{{PlayerID: remote, X: intPtr(1), Y: intPtr(1)}},
	}, time.Unix(0, 0))
	e.Ingest(local, game.State{Board: openBoard(10, 10), Players: nil}, time.Unix(0, 0).Add(time.Second))

	assert.True(t, cleared)
}

func TestTickClampsInterpolatedCellAwayFromWalls(t *testing.T) {
	remote := uuid.New()
	local := uuid.New()
	base := time.Unix(0, 0)

	board := openBoard(5, 1)
	board.Grid[0][2] = '#'

	var lastCell Cell
	e := New(Config{Delay: 150 * time.Millisecond, DisableEasing: true}, Callbacks{
		OnCellChanged: func(id uuid.UUID, old, new Cell, hadOld bool) { lastCell = new },
	})
	e.Ingest(local, game.State{Board: board, Players: []game.PlayerView{{PlayerID: remote, X: intPtr(1), Y: intPtr(0)}}}, base)
	e.Ingest(local, game.State{Board: board, Players: []game.PlayerView{{PlayerID: remote, X: intPtr(3), Y: intPtr(0)}}}, base.Add(100*time.Millisecond))

	// renderTime=50ms: midpoint of (1,0)->(3,0) rounds to x=2, which is a
	// wall; must clamp to the latest snapshot's cell instead.
	e.Tick(base.Add(200 * time.Millisecond))
	assert.Equal(t, Cell{X: 3, Y: 0, PlayerName: lastCell.PlayerName}, lastCell)
}

func TestTickHoldsAtLatestWhenBufferRunsDry(t *testing.T) {
	remote := uuid.New()
	local := uuid.New()
	base := time.Unix(0, 0)

	var lastCell Cell
	e := New(Config{Delay: 150 * time.Millisecond}, Callbacks{
		OnCellChanged: func(id uuid.UUID, old, new Cell, hadOld bool) { lastCell = new },
	})
	e.Ingest(local, game.State{
		Board:   openBoard(20, 20),
		Players: []game.PlayerView{{PlayerID: remote, X: intPtr(5), Y: intPtr(5)}},
	}, base)
	e.Ingest(local, game.State{
		Board:   openBoard(20, 20),
		Players: []game.PlayerView{{PlayerID: remote, X: intPtr(6), Y: intPtr(5)}},
	}, base.Add(100*time.Millisecond))

	// Way past the latest sample: renderTime >> 100ms.
	e.Tick(base.Add(5 * time.Second))
	assert.Equal(t, 6, lastCell.X)
	assert.Equal(t, 5, lastCell.Y)
}

func TestTickDisplayEasingCapsOneCellPerAxisPerTick(t *testing.T) {
	remote := uuid.New()
	local := uuid.New()
	base := time.Unix(0, 0)

	var cells []Cell
	e := New(Config{Delay: 0}, Callbacks{
		OnCellChanged: func(id uuid.UUID, old, new Cell, hadOld bool) { cells = append(cells, new) },
	})
	e.Ingest(local, game.State{
		Board:   openBoard(20, 20),
		Players: []game.PlayerView{{PlayerID: remote, X: intPtr(0), Y: intPtr(0)}},
	}, base)
	e.Tick(base) // establishes eased=(0,0)

	e.Ingest(local, game.State{
		Board:   openBoard(20, 20),
		Players: []game.PlayerView{{PlayerID: remote, X: intPtr(5), Y: intPtr(0)}},
	}, base)
	e.Tick(base) // target jumps to (5,0); easing caps movement to 1 cell

	require.NotEmpty(t, cells)
	last := cells[len(cells)-1]
	assert.Equal(t, 1, last.X, "display easing must not jump more than one cell per tick")
}
