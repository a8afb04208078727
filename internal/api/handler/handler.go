package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Lezek123/battleships-indexer/internal/domain"
	"github.com/Lezek123/battleships-indexer/internal/store"
)

// GameStore is the read-side view of the projection store the API serves.
type GameStore interface {
	ListProjections(ctx context.Context, f store.Filter) ([]domain.Projection, error)
	Projection(ctx context.Context, gameIndex uint64) (*domain.Projection, error)
}

// Handler holds the dependencies for API handlers.
type Handler struct {
	Store GameStore
	Hub   *Hub
}

// NewHandler creates a new Handler instance.
func NewHandler(st GameStore, hub *Hub) *Handler {
	return &Handler{Store: st, Hub: hub}
}

// NewRouter creates and configures the HTTP router with all API routes.
func (h *Handler) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", h.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/games", h.HandleGamesList).Methods(http.MethodGet)
	r.HandleFunc("/api/games/{index:[0-9]+}", h.HandleGameDetail).Methods(http.MethodGet)
	r.HandleFunc("/api/ws", h.Hub.HandleWS)

	return r
}

// HandleHealth returns a simple health check response.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
