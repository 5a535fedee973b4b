package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Get("/docs", handleSwaggerUI())
	r.Get("/docs/*", handleSwaggerUI())

	r.Get("/api/catalog", handleCatalog(deps.Catalog))
	r.Get("/api/highscores", handleHighScores(logger, deps.Scores))
	r.Post("/api/sessions", handleCreateSession(logger, deps.Hub, deps.Tokens))

	// Player routes, authenticated by the session token.
	r.Route("/api/session", func(r chi.Router) {
		r.Use(sessionMiddleware(deps.Tokens, deps.Hub))
		r.Get("/", handleGetSession())
		r.Delete("/", handleDeleteSession(deps.Hub))
		r.Post("/start", handleStart())
		r.Post("/choice", handleChoice())
		r.Post("/reset", handleReset())
		r.Post("/ad-reward", handleAdReward())
		r.Get("/events", handleEvents(deps.Broker))
		r.Get("/ws", handleWS(logger, deps.Broker))
	})

	if deps.WebDir != "" {
		if info, err := os.Stat(deps.WebDir); err == nil && info.IsDir() {
			logger.Info("serving web client", "dir", deps.WebDir)
			r.NotFound(handleWebClient(deps.WebDir))
		}
	}
}
