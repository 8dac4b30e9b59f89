// Package hub owns the registry of running games. All registry access
// goes through the hub's inbox so game creation, lookup, and teardown
// serialize on a single goroutine.
package hub

import (
	"context"

	"github.com/desyncd/crew-sync-backend/internal/state"
)

type HubMsg interface{ isHubMsg() }

type CreateGame struct {
	Code  string
	Reply chan *state.Game
}

type GetGame struct {
	Code  string
	Reply chan *state.Game
}

type EnsureGame struct {
	Code  string
	Reply chan *state.Game
}

// RemoveGame tears the match down: the game is marked ended so any
// in-flight sweep against it fails with ErrGameEnded instead of calling
// into destroyed state.
type RemoveGame struct {
	Code string
}

type ShutdownHub struct{}

func (CreateGame) isHubMsg()  {}
func (GetGame) isHubMsg()     {}
func (EnsureGame) isHubMsg()  {}
func (RemoveGame) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	games  map[string]*state.Game
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		games:  make(map[string]*state.Game),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateGame:
				if g := h.games[msg.Code]; g != nil {
					msg.Reply <- g
					break
				}
				g := state.NewGame(msg.Code)
				h.games[msg.Code] = g
				msg.Reply <- g

			case GetGame:
				msg.Reply <- h.games[msg.Code] // May be nil

			case EnsureGame:
				if g := h.games[msg.Code]; g != nil {
					msg.Reply <- g
					break
				}
				g := state.NewGame(msg.Code)
				h.games[msg.Code] = g
				msg.Reply <- g

			case RemoveGame:
				if g := h.games[msg.Code]; g != nil {
					g.End()
					delete(h.games, msg.Code)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, g := range h.games {
		g.End()
	}
	clear(h.games)
	h.cancel()
}
