package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/sponsorlens-backend/api/controllers"
	"github.com/angelmondragon/sponsorlens-backend/api/middleware"
	"github.com/angelmondragon/sponsorlens-backend/internal/attribution"
	"github.com/angelmondragon/sponsorlens-backend/pkg/config"
	"github.com/angelmondragon/sponsorlens-backend/pkg/logger"
	"github.com/angelmondragon/sponsorlens-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/sponsorlens-backend/pkg/redis"
)

// Params carries everything the HTTP surface needs. IdempotencyStore,
// HTTPMetrics and Gatherer may be nil.
type Params struct {
	Config           *config.Config
	Logger           *logger.Logger
	Attribution      attribution.Service
	IdempotencyStore pkgredis.IdempotencyStore
	HTTPMetrics      *metrics.HTTPMetrics
	Gatherer         prometheus.Gatherer
	Dependencies     []controllers.Dependency
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Dependencies...))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/attribution", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAttributionRunner(logg))
				r.Use(middleware.Idempotency(p.IdempotencyStore, logg))
				r.Post("/calculate", controllers.AttributionCalculate(p.Attribution, logg))
				r.Post("/compare", controllers.AttributionCompare(p.Attribution, logg))
			})
			r.Get("/results/latest", controllers.AttributionLatestResult(p.Attribution, logg))
			r.Get("/results", controllers.AttributionListResults(p.Attribution, logg))
		})
	})

	return r
}
