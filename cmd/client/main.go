// Command client hosts the terminal game client: it wires ClientSession,
// PredictionEngine, and InterpolationEngine to a Renderer. The renderer
// here is a minimal line-oriented stand-in — terminal drawing internals are
// an external collaborator and out of scope (spec.md §1); a real terminal
// UI would satisfy the same render.Renderer interface with ANSI/lipgloss
// output instead.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gridrelay/internal/config"
	"gridrelay/internal/game"
	"gridrelay/internal/interpolation"
	"gridrelay/internal/prediction"
	"gridrelay/internal/protocol"
	"gridrelay/internal/render"
	"gridrelay/internal/session"
)

// lineRenderer implements render.Renderer by printing one line per event.
type lineRenderer struct{}

func (lineRenderer) DrawCell(x, y int, playerName string) {
	fmt.Printf("cell (%d,%d) -> %q\n", x, y, playerName)
}

func (lineRenderer) DrawLocalPlayer(x, y int) {
	fmt.Printf("you are at (%d,%d)\n", x, y)
}

func (lineRenderer) ShowWaitMessage(message string) {
	fmt.Println(message)
}

func (lineRenderer) ShowConnectionNotice(playerID uuid.UUID, message string) {
	fmt.Printf("[session %s] %s\n", playerID, message)
}

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())
	cfg := config.LoadClientConfig()
	var r render.Renderer = lineRenderer{}

	var localPlayerID uuid.UUID
	var predEngine *prediction.Engine
	interpEngine := interpolation.New(interpolation.Config{}, interpolation.Callbacks{
		OnCellChanged: func(id uuid.UUID, old, new interpolation.Cell, hadOld bool) {
			r.DrawCell(new.X, new.Y, new.PlayerName)
		},
		OnCellCleared: func(id uuid.UUID) {},
	})

	var sess *session.Session
	sess = session.New(cfg.WebSocketURL, cfg, session.Callbacks{
		OnOpen: func() {
			r.ShowConnectionNotice(localPlayerID, "connected")
			payload := protocol.ConnectClientPayload{}
			if id, ok := sess.PlayerID(); ok {
				payload.PlayerID = &id
			}
			frame, err := protocol.Build(protocol.TypeConnect, payload, nil, time.Now())
			if err == nil {
				sess.Send(frame)
			}
		},
		OnClose: func() {
			r.ShowConnectionNotice(localPlayerID, "disconnected")
		},
		OnError: func(err error) {
			log.WithError(err).Warn("session error")
		},
		OnConnectResponse: func(env protocol.Envelope) {
			var spawned protocol.ConnectSpawnedPayload
			if err := json.Unmarshal(env.Payload, &spawned); err == nil && spawned.PlayerID != uuid.Nil {
				localPlayerID = spawned.PlayerID
				predEngine = prediction.New(localPlayerID, prediction.Callbacks{
					SendMove: func(dx, dy int) {
						frame, err := protocol.Build(protocol.TypeMove, protocol.MovePayload{DX: dx, DY: dy}, nil, time.Now())
						if err == nil {
							sess.Send(frame)
						}
					},
					OnReconcile: func(p prediction.Point) { r.DrawLocalPlayer(p.X, p.Y) },
					// Tick repaints only remote cells whose eased position
					// changed; remote cells that did not move are not repainted.
					OnForceRedrawRemotes: func() {
						interpEngine.Tick(time.Now())
					},
				}, log)
				predEngine.HandleStateUpdate(spawned.GameState)
				predEngine.StartPeriodicReconciliation(prediction.DefaultReconcileInterval)
				interpEngine.Ingest(localPlayerID, spawned.GameState, time.Now())
				return
			}
			var waiting protocol.ConnectWaitingPayload
			if err := json.Unmarshal(env.Payload, &waiting); err == nil && waiting.WaitingForSpawn {
				r.ShowWaitMessage(waiting.Message)
			}
		},
		OnStateUpdate: func(state game.State) {
			if predEngine != nil {
				predEngine.HandleStateUpdate(state)
			}
			interpEngine.Ingest(localPlayerID, state, time.Now())
		},
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sess.Connect(ctx); err != nil {
		log.WithError(err).Fatal("failed to connect")
	}

	go func() {
		ticker := time.NewTicker(interpolation.DefaultTick)
		defer ticker.Stop()
		for range ticker.C {
			interpEngine.Tick(time.Now())
		}
	}()

	go readInputLoop(func(dx, dy int) {
		if predEngine != nil {
			predEngine.HandleInput(dx, dy)
		}
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	sess.Close()
}

// readInputLoop reads "dx dy" lines from stdin and forwards each as a move
// attempt. A real terminal client would read raw key events instead; line
// input keeps this wiring demonstrable without a concrete Renderer.
func readInputLoop(onMove func(dx, dy int)) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) != 2 {
			continue
		}
		dx, errX := strconv.Atoi(parts[0])
		dy, errY := strconv.Atoi(parts[1])
		if errX != nil || errY != nil {
			continue
		}
		onMove(dx, dy)
	}
}
