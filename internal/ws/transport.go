// Package ws is the WebSocket transport adapter: it tracks connected
// client sessions and implements the delivery primitives the dispatch
// router consumes.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/desyncd/crew-sync-backend/internal/state"
)

var (
	ErrUnknownConnection = errors.New("ws: unknown connection")

	// ErrSlowClient means the session's outbound buffer is full. The
	// game would be unplayable for that user anyway; callers treat it
	// like any other delivery failure.
	ErrSlowClient = errors.New("ws: send buffer full")
)

const sendBufferSize = 32

// Transport is the registry of live sessions, grouped by game so a
// broadcast never crosses match boundaries. It satisfies
// dispatch.Sender.
type Transport struct {
	mu    sync.RWMutex
	conns map[state.ConnID]chan []byte
	games map[string]map[state.ConnID]struct{}
	log   *zap.Logger
}

func NewTransport(log *zap.Logger) *Transport {
	return &Transport{
		conns: make(map[state.ConnID]chan []byte),
		games: make(map[string]map[state.ConnID]struct{}),
		log:   log,
	}
}

// Register adds a session to a game's delivery group and returns its
// outbound channel; the session's writer goroutine drains it.
func (t *Transport) Register(game string, id state.ConnID) chan []byte {
	ch := make(chan []byte, sendBufferSize)
	t.mu.Lock()
	t.conns[id] = ch
	members, ok := t.games[game]
	if !ok {
		members = make(map[state.ConnID]struct{})
		t.games[game] = members
	}
	members[id] = struct{}{}
	t.mu.Unlock()
	return ch
}

// Unregister removes a session from its game's delivery group and
// closes its outbound channel. The close happens under the write lock
// so it cannot interleave with an in-flight send.
func (t *Transport) Unregister(game string, id state.ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.conns[id]; ok {
		delete(t.conns, id)
		close(ch)
	}
	if members, ok := t.games[game]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(t.games, game)
		}
	}
}

// SendTo queues buf for exactly one session. The read lock is held
// across the queue attempt; Unregister closes the channel under the
// write lock, so the send can never hit a closed channel.
func (t *Transport) SendTo(_ context.Context, buf []byte, to state.ConnID) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ch, ok := t.conns[to]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, to)
	}
	select {
	case ch <- buf:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrSlowClient, to)
	}
}

// SendToAllExcept queues buf for every session in one game's delivery
// group except one; the zero ConnID excludes nobody. Slow sessions are
// reported but do not block delivery to the rest.
func (t *Transport) SendToAllExcept(_ context.Context, game string, buf []byte, except state.ConnID) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var errs error
	for id := range t.games[game] {
		if id == except {
			continue
		}
		ch, ok := t.conns[id]
		if !ok {
			continue
		}
		select {
		case ch <- buf:
		default:
			t.log.Warn("dropping message for slow client", zap.String("conn", id.String()))
			errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrSlowClient, id))
		}
	}
	return errs
}
