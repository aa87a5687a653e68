package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/magic-match/internal/hub"
	"github.com/DoyleJ11/magic-match/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// The game UI is served from its own origin.
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	}).Handler)

	// Public routes
	r.Post("/games", CreateGame(h, log))
	r.Get("/games/{code}", GetGame(h))
	r.Delete("/games/{code}", DeleteGame(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log, originPatterns(allowedOrigins)))
	return r
}

// originPatterns turns CORS origins ("https://play.example.com") into the
// host patterns the websocket origin check expects.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		for _, scheme := range []string{"https://", "http://"} {
			if len(o) > len(scheme) && o[:len(scheme)] == scheme {
				o = o[len(scheme):]
				break
			}
		}
		patterns = append(patterns, o)
	}
	return patterns
}
