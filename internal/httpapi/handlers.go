package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/desyncd/crew-sync-backend/internal/hub"
	"github.com/desyncd/crew-sync-backend/internal/rolesync"
	"github.com/desyncd/crew-sync-backend/internal/state"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *state.Game, 1)
			h.Inbox() <- hub.GetGame{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			// Collision; regenerate.
		}

		reply := make(chan *state.Game, 1)
		h.Inbox() <- hub.EnsureGame{Code: code, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create game", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// lookupGame resolves the {code} route parameter, writing a 404 and
// returning nil if no such game is running.
func lookupGame(h *hub.Hub, w http.ResponseWriter, r *http.Request) *state.Game {
	code := chi.URLParam(r, "code")
	reply := make(chan *state.Game, 1)
	h.Inbox() <- hub.GetGame{Code: code, Reply: reply}
	g := <-reply
	if g == nil {
		http.Error(w, "game not found", http.StatusNotFound)
	}
	return g
}

func AssignRoles(h *hub.Hub, eng *rolesync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g := lookupGame(h, w, r)
		if g == nil {
			return
		}
		if err := eng.AssignRoles(r.Context(), g); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func ResyncRoles(h *hub.Hub, eng *rolesync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g := lookupGame(h, w, r)
		if g == nil {
			return
		}
		if err := eng.ResyncRoles(r.Context(), g); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func SyncData(h *hub.Hub, eng *rolesync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g := lookupGame(h, w, r)
		if g == nil {
			return
		}
		if err := eng.SyncData(r.Context(), g); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func RemoveGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Inbox() <- hub.RemoveGame{Code: chi.URLParam(r, "code")}
		w.WriteHeader(http.StatusNoContent)
	}
}
