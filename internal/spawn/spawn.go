// Package spawn decides whether a candidate spawn point is currently free
// of walls and players within a Manhattan clear radius.
package spawn

import "gridrelay/internal/board"

// Occupant is the minimal view SpawnAdmission needs of a player: its
// current coordinates, or "no position" when waiting to spawn.
type Occupant struct {
	X, Y   int
	Placed bool // false means the player has no position yet (waiting)
}

// Available reports whether every cell within Manhattan distance R of
// (sx,sy) is in-bounds, not a wall, and unoccupied by any placed player.
func Available(b *board.Board, occupants []Occupant, sx, sy, r int) bool {
	for dx := -r; dx <= r; dx++ {
		remaining := r - abs(dx)
		for dy := -remaining; dy <= remaining; dy++ {
			x, y := sx+dx, sy+dy
			if !b.InBounds(x, y) {
				return false
			}
			if b.IsWall(x, y) {
				return false
			}
			for _, o := range occupants {
				if o.Placed && o.X == x && o.Y == y {
					return false
				}
			}
		}
	}
	return true
}

// FirstAvailable scans spawnList in order and returns the first point whose
// clear disk (radius r) is free, or ok=false if none qualify.
func FirstAvailable(spawnList []board.Point, b *board.Board, occupants []Occupant, r int) (point board.Point, ok bool) {
	for _, p := range spawnList {
		if Available(b, occupants, p.X, p.Y, r) {
			return p, true
		}
	}
	return board.Point{}, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
