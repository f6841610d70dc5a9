package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"Luanshi/server/internal/engine"
	"Luanshi/server/internal/intent"
	"Luanshi/server/internal/models"
	"Luanshi/server/internal/storage"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Game is the engine surface the API drives.
type Game interface {
	NewGame(ctx context.Context, req engine.NewGameRequest) (*models.Save, error)
	Load(ctx context.Context, slot string) (*models.Save, error)
	PlayTurn(ctx context.Context, slot, text string, mode intent.Mode) (*engine.TurnResult, error)
}

// SlotLister lists stored saves.
type SlotLister interface {
	List(ctx context.Context) ([]storage.SlotSummary, error)
}

// Options wires the router.
type Options struct {
	Game        Game
	Slots       SlotLister
	Hub         *TurnHub
	Logger      *slog.Logger
	TurnTimeout time.Duration
}

type Handlers struct {
	game        Game
	slots       SlotLister
	hub         *TurnHub
	logger      *slog.Logger
	turnTimeout time.Duration
}

func NewHandlers(opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		game:        opts.Game,
		slots:       opts.Slots,
		hub:         opts.Hub,
		logger:      logger.With("component", "web"),
		turnTimeout: opts.TurnTimeout,
	}
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "luanshi",
	})
}

// CORS middleware
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Max-Age", "300")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func NewRouter(opts Options) *chi.Mux {
	h := NewHandlers(opts)
	r := chi.NewRouter()

	r.Use(h.logRequests)
	r.Use(corsMiddleware)

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1/games", func(r chi.Router) {
		r.Get("/", h.ListGames)
		r.Post("/", h.CreateGame)
		r.Route("/{slot}", func(r chi.Router) {
			r.Get("/", h.GetGame)
			r.Post("/turns", h.PlayTurn)
			r.Get("/history", h.GetHistory)
			r.Get("/stream", h.Stream)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
