package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/MaksimIschenko/giga-gen-project/internal/http/handlers"
	"github.com/MaksimIschenko/giga-gen-project/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.Logger(*app.Logger),
		chimw.Recoverer,
		middleware.CORS(app.Config.AllowedOrigins),
		middleware.Locale(app.Config.DefaultLocale),
		middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	// Generation
	r.Post("/v1/simple/generate", app.SimpleGenerate)
	r.Post("/v1/kandinsky/generate", app.KandinskyGenerate)
	r.Post("/v1/model3d/generate", app.Model3DGenerate)
	r.Get("/v1/generations", app.ListGenerations)

	// Docs
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/docs", app.OpenAPIDocs)

	// Stored artifacts
	fileServer(r, "/files/images", app.Config.ImagesOutDir)
	fileServer(r, "/files/models", app.Config.ModelsOutDir)

	return r
}

// fileServer mounts dir under prefix. Only direct file paths resolve;
// directory listings are refused.
func fileServer(r chi.Router, prefix, dir string) {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(w, req)
			return
		}
		fs.ServeHTTP(w, req)
	})
}
