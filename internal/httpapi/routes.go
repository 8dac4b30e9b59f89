package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/desyncd/crew-sync-backend/internal/hub"
	"github.com/desyncd/crew-sync-backend/internal/metrics"
	"github.com/desyncd/crew-sync-backend/internal/rolesync"
	"github.com/desyncd/crew-sync-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, eng *rolesync.Engine, t *ws.Transport, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/games", CreateGame(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, t, log))
	r.Handle("/metrics", metrics.Handler())

	// Match-control routes; the trigger side of the synchronization
	// engine (normally driven by game rules).
	r.Post("/games/{code}/roles/assign", AssignRoles(h, eng))
	r.Post("/games/{code}/roles/resync", ResyncRoles(h, eng))
	r.Post("/games/{code}/sync", SyncData(h, eng))
	r.Delete("/games/{code}", RemoveGame(h))

	return r
}
