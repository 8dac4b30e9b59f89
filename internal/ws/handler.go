package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/desyncd/crew-sync-backend/internal/hub"
	"github.com/desyncd/crew-sync-backend/internal/state"
)

const writeTimeout = 3 * time.Second

// pingInterval paces the keepalive for otherwise idle sessions. A var
// so tests can shrink it.
var pingInterval = 30 * time.Second

// Handler upgrades a client into a game session: it spawns a player and
// character into the requested game, registers the session with the
// transport, and pumps outbound buffers until the client leaves.
func Handler(h *hub.Hub, t *Transport, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *state.Game, 1)
		h.Inbox() <- hub.GetGame{Code: code, Reply: reply}
		g := <-reply
		if g == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		if g.Ended() {
			http.Error(w, "game has ended", http.StatusGone)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		id := uuid.New()
		out := t.Register(code, id)
		defer t.Unregister(code, id)

		// Spawn sequence: a player and its in-world character. The
		// name query parameter feeds the initial outfit.
		player := state.NewPlayer(id)
		g.AddPlayer(player)
		defer g.RemovePlayer(id)

		info := state.NewPlayerInfo(g.AllocateNetID(), state.Outfit{
			Name: r.URL.Query().Get("name"),
		})
		g.BindCharacter(player, state.NewCharacter(g.AllocateNetID(), info))

		log.Info("session joined",
			zap.String("game", code),
			zap.String("conn", id.String()))

		// Writer goroutine: drain the transport's outbound channel into
		// the socket.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for buf := range out {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				if err := conn.Write(ctx, websocket.MessageBinary, buf); err != nil {
					cancel()
					return
				}
				cancel()
			}
		}()

		// Keepalive goroutine. Inbound game traffic is outside this
		// core, so a session may legitimately listen without ever
		// sending; liveness comes from protocol pings, not a read
		// deadline.
		go func() {
			tick := time.NewTicker(pingInterval)
			defer tick.Stop()
			for {
				select {
				case <-writeCtx.Done():
					return
				case <-tick.C:
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := conn.Ping(ctx)
					cancel()
					if err != nil {
						// Unblocks the read loop below.
						conn.Close(websocket.StatusNormalClosure, "keepalive failed")
						return
					}
				}
			}
		}()

		// Reader loop: drains inbound frames so control frames are
		// processed and a departed client frees its seat.
		for {
			_, _, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("session read ended", zap.String("conn", id.String()), zap.Error(err))
				}
				return
			}
		}
	}
}
