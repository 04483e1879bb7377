package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ilias-t/griblet/internal/config"
	"github.com/ilias-t/griblet/internal/websocket"
	"github.com/ilias-t/griblet/pkg/logger"
)

// Router wires the API handlers into a chi mux
type Router struct {
	handler  *Handler
	wsServer *websocket.Server
	config   *config.Config
	logger   *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(handler *Handler, wsServer *websocket.Server, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler:  handler,
		wsServer: wsServer,
		config:   cfg,
		logger:   log.Named("api-router"),
	}
}

// Routes returns the HTTP handler for the service
func (r *Router) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(corsMiddleware(r.config.Server.CORSAllowed))

	mux.Route("/api", func(api chi.Router) {
		api.Get("/health", r.handler.GetHealth)

		api.Route("/grib", func(g chi.Router) {
			g.Post("/", r.handler.UploadGrib)
			g.Post("/preview", r.handler.PreviewGrib)
			g.Post("/fetch", r.handler.FetchGrib)
			g.Get("/", r.handler.ListRecords)
			g.Get("/{id}/wind", r.handler.GetWindData)
			g.Delete("/{id}", r.handler.DeleteRecord)
		})

		api.Get("/ws", r.wsServer.HandleWebSocket)
	})

	mux.Handle("/metrics", promhttp.Handler())

	if dir := r.config.Server.StaticFilesDir; dir != "" {
		mux.NotFound(NewStaticFileHandler(dir, r.logger).ServeHTTP)
	}

	return mux
}

// corsMiddleware applies the configured CORS policy
func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	allowAll := false
	allowedSet := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		allowedSet[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			origin := req.Header.Get("Origin")
			if origin != "" && (allowAll || allowedSet[origin]) {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
