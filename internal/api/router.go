package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/rummy-tracker/internal/api/apierr"
	"github.com/mcoot/rummy-tracker/internal/api/handler"
	"github.com/mcoot/rummy-tracker/internal/api/response"
	"github.com/mcoot/rummy-tracker/internal/middleware"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Store       storage.GameStore
	StorageType string // Reported by the health check
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	gameHandler := handler.NewGameHandler(cfg.Store, cfg.Logger)

	r.Use(middleware.Recovery(cfg.Logger, apiPanicHandler))
	r.Use(middleware.Logging(cfg.Logger))

	// Key-value snapshot endpoint; other methods get 405 from mux
	r.HandleFunc("/api/game", gameHandler.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/game", gameHandler.Save).Methods(http.MethodPost)

	// Health check endpoint
	r.HandleFunc("/api/v1/health", healthHandler(cfg.StorageType)).Methods(http.MethodGet)

	return r
}

func healthHandler(storageType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok", Storage: storageType})
	}
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
