package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anvargas/tiendaluz-core/api/controllers"
	"github.com/anvargas/tiendaluz-core/api/middleware"
	"github.com/anvargas/tiendaluz-core/api/responses"
	"github.com/anvargas/tiendaluz-core/pkg/logger"
)

func NewRouter(logg *logger.Logger, store controllers.SyncStore) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	syncController := controllers.NewSyncController(store, logg)
	r.Post("/sync", syncController.Handle)
	r.Get("/sync", syncController.Handle)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, "")
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
