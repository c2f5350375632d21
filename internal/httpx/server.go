package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 12 << 20

func NewRouter(allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog, middleware.Recoverer)
	r.Use(cors(allowedOrigins))
	r.Use(middleware.RequestSize(maxBodyBytes))
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// MountImages serves uploaded product pictures from dir under /images.
func MountImages(r chi.Router, dir string) {
	fs := http.StripPrefix("/images/", http.FileServer(http.Dir(dir)))
	r.Get("/images/*", fs.ServeHTTP)
}
