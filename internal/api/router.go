package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yegors/handoff-board/pkg/logger"
)

// Router wires the API handlers, the viewer websocket and the static files
type Router struct {
	handler        *Handler
	wsHandler      http.HandlerFunc
	static         http.Handler
	allowedOrigins []string
	logger         *logger.Logger
}

// NewRouter creates a new router. wsHandler upgrades /ws and staticDir may be empty for an API-only
// server.
func NewRouter(handler *Handler, wsHandler http.HandlerFunc, staticDir string, allowedOrigins []string, log *logger.Logger) *Router {
	r := &Router{
		handler:        handler,
		wsHandler:      wsHandler,
		allowedOrigins: allowedOrigins,
		logger:         log.Named("router"),
	}
	if staticDir != "" {
		r.static = NewStaticFileHandler(staticDir, log)
	}
	return r
}

// Routes returns the HTTP handler shared by every listener
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(rt.requestLogger)

	origins := rt.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/ws", rt.wsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", rt.handler.GetHealth)
		r.Get("/tracks", rt.handler.GetTracks)
		r.Get("/annotations", rt.handler.GetAnnotations)
		r.Post("/annotations", rt.handler.UpdateAnnotation)
		r.Get("/regions", rt.handler.GetRegions)
	})

	if rt.static != nil {
		r.Handle("/*", rt.static)
	}

	return r
}

// requestLogger logs every request at debug level. The websocket upgrade is logged when it
// completes, which is when the viewer disconnects.
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		rt.logger.Debug("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("remote", r.RemoteAddr),
		)
	})
}
