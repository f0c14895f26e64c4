// Package render declares the Renderer contract that PredictionEngine and
// InterpolationEngine draw through. Terminal rendering internals — cursor
// movement, ANSI/lipgloss styling, the modal UI system — are an external
// collaborator and out of scope (spec.md §1); gridrelay only names the
// interface a concrete terminal client (e.g. one built on
// charmbracelet/lipgloss, as github.com/HershLalwani/gotris and
// github.com/vctt94/pokerbisonrelay do over a gorilla/websocket transport)
// would need to satisfy.
package render

import "github.com/google/uuid"

// Renderer draws board cells and surfaces session-level notices. Cell
// styling (color, borders) is left to the implementation's choice of
// lipgloss styles; gridrelay's engines only ever pass board coordinates
// and plain strings.
type Renderer interface {
	// DrawCell paints one board cell, identified by the occupying player's
	// name (empty string clears it to the board's base glyph).
	DrawCell(x, y int, playerName string)

	// DrawLocalPlayer paints the local player's cell last, so it always
	// wins z-order against remote players drawn in the same tick
	// (spec.md §4.10 Commit).
	DrawLocalPlayer(x, y int)

	// ShowWaitMessage displays the wait-for-spawn message from a CONNECT
	// waiting reply.
	ShowWaitMessage(message string)

	// ShowConnectionNotice surfaces a session-level event: connecting,
	// reconnecting, or giving up (driven by Callbacks.OnOpen/OnClose/
	// OnError in internal/session).
	ShowConnectionNotice(playerID uuid.UUID, message string)
}
