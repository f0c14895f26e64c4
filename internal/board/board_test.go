package board

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBoardFiles(t *testing.T, dir, boardJSON, dimsJSON string) string {
	t.Helper()
	boardPath := filepath.Join(dir, "board.json")
	require.NoError(t, os.WriteFile(boardPath, []byte(boardJSON), 0o644))
	if dimsJSON != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "dimensions.json"), []byte(dimsJSON), 0o644))
	}
	return boardPath
}

func TestLoadDecodesRLEAndSpawnPoints(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeBoardFiles(t, dir,
		`[{"entity":1,"repeat":3},{"entity":1},{"entity":2},{"entity":1},{"entity":1,"repeat":3}]`,
		`{"width":3,"height":3}`)

	b, err := Load(boardPath)
	require.NoError(t, err)

	assert.Equal(t, 3, b.Width)
	assert.Equal(t, 3, b.Height)
	require.Len(t, b.Grid, 3)
	for _, row := range b.Grid {
		require.Len(t, row, 3)
	}

	assert.Equal(t, []Point{{X: 1, Y: 1}}, b.SpawnPoints)
	assert.True(t, b.IsWall(0, 1))
	assert.False(t, b.IsWall(1, 1))
	assert.True(t, b.IsWall(2, 1))
}

func TestLoadFallsBackToDefaultDimensions(t *testing.T) {
	dir := t.TempDir()
	// No dimensions.json alongside the board; Load should fall back to
	// DefaultDimensionsPath, which does not exist from a temp dir either.
	boardPath := writeBoardFiles(t, dir, `[{"entity":0,"repeat":4}]`, "")

	_, err := Load(boardPath)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, MissingDims, loadErr.Kind)
}

func TestLoadMissingBoardFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, MissingBoard, loadErr.Kind)
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeBoardFiles(t, dir, `not json`, `{"width":2,"height":2}`)

	_, err := Load(boardPath)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, InvalidJSON, loadErr.Kind)
}

func TestLoadInvalidDims(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeBoardFiles(t, dir, `[{"entity":0}]`, `{"width":0,"height":2}`)

	_, err := Load(boardPath)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, InvalidDims, loadErr.Kind)
}

func TestLoadZeroRepeatIsInvalid(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeBoardFiles(t, dir, `[{"entity":0,"repeat":0}]`, `{"width":1,"height":1}`)

	_, err := Load(boardPath)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, InvalidEntity, loadErr.Kind)
}

func TestLoadUnknownEntityIsInvalid(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeBoardFiles(t, dir, `[{"entity":9,"repeat":4}]`, `{"width":2,"height":2}`)

	_, err := Load(boardPath)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, InvalidEntity, loadErr.Kind)
}

func TestLoadCellCountMismatch(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeBoardFiles(t, dir, `[{"entity":0,"repeat":3}]`, `{"width":2,"height":2}`)

	_, err := Load(boardPath)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, CellCountMismatch, loadErr.Kind)
}

func TestLoadNoSpawnCellsYieldsEmptySlice(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeBoardFiles(t, dir, `[{"entity":0,"repeat":4}]`, `{"width":2,"height":2}`)

	b, err := Load(boardPath)
	require.NoError(t, err)
	assert.Empty(t, b.SpawnPoints)
}

func TestCloneGridIsIndependentCopy(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeBoardFiles(t, dir, `[{"entity":0,"repeat":4}]`, `{"width":2,"height":2}`)
	b, err := Load(boardPath)
	require.NoError(t, err)

	clone := b.CloneGrid()
	clone[0][0] = '#'
	assert.NotEqual(t, b.Grid[0][0], clone[0][0])
}
