package prediction

import (
	"testing"

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

func TestHandleInputAcceptsValidMoveAndSendsIt(t *testing.T) {
	localID := uuid.New()
	var sent []Point
	e := New(localID, Callbacks{
		SendMove: func(dx, dy int) { sent = append(sent, Point{X: dx, Y: dy}) },
	}, nil)
	e.HandleStateUpdate(game.State{
		Board:   openBoard(5, 5),
		Players: []game.PlayerView{{PlayerID: localID, X: intPtr(2), Y: intPtr(2)}},
	})

	ok := e.HandleInput(1, 0)
	require.True(t, ok)

	p, spawned := e.Predicted()
	require.True(t, spawned)
	assert.Equal(t, Point{X: 3, Y: 2}, p)
	require.Len(t, sent, 1)
	assert.Equal(t, Point{X: 1, Y: 0}, sent[0])
}

func TestHandleInputRejectsWallMove(t *testing.T) {
	localID := uuid.New()
	board := openBoard(3, 1)
	board.Grid[0][2] = '#'

	e := New(localID, Callbacks{}, nil)
	e.HandleStateUpdate(game.State{
		Board:   board,
		Players: []game.PlayerView{{PlayerID: localID, X: intPtr(1), Y: intPtr(0)}},
	})

	ok := e.HandleInput(1, 0)
	assert.False(t, ok)
	p, _ := e.Predicted()
	assert.Equal(t, Point{X: 1, Y: 0}, p, "rejected move must not advance predicted position")
}

func TestHandleInputRejectsOccupiedCell(t *testing.T) {
	localID, otherID := uuid.New(), uuid.New()
	e := New(localID, Callbacks{}, nil)
	e.HandleStateUpdate(game.State{
		Board: openBoard(5, 5),
		Players: []game.PlayerView{
			{PlayerID: localID, X: intPtr(2), Y: intPtr(2)},
			{PlayerID: otherID, X: intPtr(3), Y: intPtr(2)},
		},
	})

	assert.False(t, e.HandleInput(1, 0))
}

func TestHandleStateUpdateSnapsPredictedOnMismatch(t *testing.T) {
	localID := uuid.New()
	var reconciled []Point
	e := New(localID, Callbacks{
		OnReconcile: func(p Point) { reconciled = append(reconciled, p) },
	}, nil)

	e.HandleStateUpdate(game.State{
		Board:   openBoard(5, 5),
		Players: []game.PlayerView{{PlayerID: localID, X: intPtr(2), Y: intPtr(2)}},
	})
	e.HandleInput(1, 0) // optimistic predicted now (3,2)

	// Server rejected the move server-side (e.g. a collision another client
	// caused); next STATE_UPDATE still reports the old position.
	e.HandleStateUpdate(game.State{
		Board:         openBoard(5, 5),
		Players:       []game.PlayerView{{PlayerID: localID, X: intPtr(2), Y: intPtr(2)}},
		HasCollisions: true,
	})

	p, _ := e.Predicted()
	assert.Equal(t, Point{X: 2, Y: 2}, p, "predicted snaps back to authoritative server position")
	assert.NotEmpty(t, reconciled)
}

func TestHandleStateUpdateForcesRemoteRedrawOnCollision(t *testing.T) {
	localID := uuid.New()
	forced := false
	e := New(localID, Callbacks{
		OnForceRedrawRemotes: func() { forced = true },
	}, nil)

	e.HandleStateUpdate(game.State{
		Board:         openBoard(5, 5),
		Players:       []game.PlayerView{{PlayerID: localID, X: intPtr(2), Y: intPtr(2)}},
		HasCollisions: true,
	})

	assert.True(t, forced)
}

func TestReconcileIsNoOpWhenPredictedMatchesServer(t *testing.T) {
	localID := uuid.New()
	calls := 0
	e := New(localID, Callbacks{
		OnReconcile: func(Point) { calls++ },
	}, nil)
	e.HandleStateUpdate(game.State{
		Board:   openBoard(5, 5),
		Players: []game.PlayerView{{PlayerID: localID, X: intPtr(2), Y: intPtr(2)}},
	})
	calls = 0 // HandleStateUpdate's own reconcile pass may have fired once

	e.Reconcile()
	assert.Zero(t, calls)
}
