// Package session implements ClientSession: the client-side WebSocket
// connection with an outbound queue and reconnect-with-backoff (spec.md
// §4.8). Dial/read/write shape follows the teacher's Client pumps,
// generalized from the server side to a dialing client.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gridrelay/internal/config"
	"gridrelay/internal/game"
	"gridrelay/internal/protocol"
)

type connState int

const (
	stateClosed connState = iota
	stateConnecting
	stateOpen
	stateClosing
)

// Callbacks is the explicit set of callback fields design note §9 asks for
// in place of an event-emitter base class (SessionObserver).
type Callbacks struct {
	OnConnectResponse func(protocol.Envelope)
	OnStateUpdate     func(game.State)
	OnOpen            func()
	OnClose           func()
	OnError           func(error)
}

// Session is one client's WebSocket connection to the server, with FIFO
// outbound queuing while not OPEN and automatic reconnect on unexpected
// close.
type Session struct {
	mu sync.Mutex

	url       string
	cfg       config.ClientConfig
	callbacks Callbacks
	log       *logrus.Entry

	dialer *websocket.Dialer
	conn   *websocket.Conn
	state  connState

	outbound [][]byte
	playerID *uuid.UUID

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a Session bound to a WebSocket URL and callback set.
func New(url string, cfg config.ClientConfig, callbacks Callbacks, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		url:       url,
		cfg:       cfg,
		callbacks: callbacks,
		log:       log.WithField("component", "session"),
		dialer:    websocket.DefaultDialer,
		state:     stateClosed,
		stop:      make(chan struct{}),
	}
}

// Connect dials the server and, once open, flushes any queued outbound
// frames and starts the read loop.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.state = stateConnecting
	s.mu.Unlock()
	return s.dial()
}

func (s *Session) dial() error {
	conn, _, err := s.dialer.Dial(s.url, nil)
	if err != nil {
		if s.callbacks.OnError != nil {
			s.callbacks.OnError(fmt.Errorf("session: dial: %w", err))
		}
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.state = stateOpen
	queued := s.outbound
	s.outbound = nil
	s.mu.Unlock()

	if s.callbacks.OnOpen != nil {
		s.callbacks.OnOpen()
	}

	s.mu.Lock()
	for i, frame := range queued {
		if werr := s.writeLocked(frame); werr != nil {
			s.outbound = append(append([][]byte{}, queued[i:]...), s.outbound...)
			break
		}
	}
	s.mu.Unlock()

	go s.readLoop()
	return nil
}

// Send enqueues frame for delivery, flushing immediately if the socket is
// currently OPEN (spec.md §4.8 outbound queue rule).
func (s *Session) Send(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		s.outbound = append(s.outbound, frame)
		return
	}
	if err := s.writeLocked(frame); err != nil {
		s.outbound = append([][]byte{frame}, s.outbound...)
		s.state = stateClosed
		go s.handleUnexpectedClose()
	}
}

// writeLocked writes one frame. Caller must hold mu and know the
// connection is live.
func (s *Session) writeLocked(frame []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close shuts the session down cleanly; no reconnect follows an explicit
// Close.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	s.state = stateClosing
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
	}
	if s.callbacks.OnClose != nil {
		s.callbacks.OnClose()
	}
}

func (s *Session) readLoop() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
			}
			s.log.WithError(err).Warn("websocket read failed, treating as unexpected close")
			s.mu.Lock()
			s.state = stateClosed
			s.mu.Unlock()
			s.handleUnexpectedClose()
			return
		}
		s.dispatch(data)
	}
}

func (s *Session) dispatch(data []byte) {
	env, err := protocol.Parse(data)
	if err != nil {
		s.log.WithError(err).Debug("dropping unparseable frame")
		return
	}

	switch env.Type {
	case protocol.TypeConnect:
		var payload protocol.ConnectSpawnedPayload
		if jsonErr := unmarshalInto(env.Payload, &payload); jsonErr == nil && payload.PlayerID != uuid.Nil {
			s.mu.Lock()
			id := payload.PlayerID
			s.playerID = &id
			s.mu.Unlock()
			if s.callbacks.OnStateUpdate != nil {
				s.callbacks.OnStateUpdate(payload.GameState)
			}
		}
		if s.callbacks.OnConnectResponse != nil {
			s.callbacks.OnConnectResponse(env)
		}

	case protocol.TypeStateUpdate:
		var payload protocol.StateUpdatePayload
		if jsonErr := unmarshalInto(env.Payload, &payload); jsonErr == nil {
			if s.callbacks.OnStateUpdate != nil {
				s.callbacks.OnStateUpdate(game.State{
					Board:         payload.Board,
					Players:       payload.Players,
					Score:         payload.Score,
					HasCollisions: payload.HasCollisions,
					Collisions:    payload.Collisions,
				})
			}
		}

	default:
		s.log.WithField("type", env.Type).Debug("unhandled message type")
	}
}

// handleUnexpectedClose runs the reconnect policy (spec.md §4.8) when
// enabled, otherwise surfaces OnClose directly.
func (s *Session) handleUnexpectedClose() {
	if !s.cfg.ReconnectionEnabled {
		if s.callbacks.OnClose != nil {
			s.callbacks.OnClose()
		}
		return
	}
	s.reconnect()
}

// reconnect retries dial() with exponential backoff
// (min(retryDelay*2^(n-1), maxRetryDelay) when enabled, else a constant
// delay), giving up and surfacing OnClose after ReconnectionMaxAttempts
// failures.
func (s *Session) reconnect() {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.ReconnectionRetryDelay
	eb.MaxInterval = s.cfg.ReconnectionMaxRetryDelay
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	if s.cfg.ReconnectionExponentialBackoff {
		eb.Multiplier = 2
	} else {
		eb.Multiplier = 1
	}

	attempts := s.cfg.ReconnectionMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	policy := backoff.WithMaxRetries(eb, uint64(attempts-1))

	err := backoff.Retry(func() error {
		select {
		case <-s.stop:
			return backoff.Permanent(fmt.Errorf("session closed"))
		default:
		}
		return s.dial()
	}, policy)

	if err != nil {
		s.log.WithError(err).Warn("reconnect attempts exhausted")
		if s.callbacks.OnClose != nil {
			s.callbacks.OnClose()
		}
	}
}

func unmarshalInto(data json.RawMessage, v interface{}) error {
	return json.Unmarshal(data, v)
}

// PlayerID returns the playerId the session last saw acknowledged, if any.
func (s *Session) PlayerID() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playerID == nil {
		return uuid.UUID{}, false
	}
	return *s.playerID, true
}
