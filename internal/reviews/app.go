package reviews

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ReviewHub/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// ReviewLimit caps review submissions per client IP within ReviewWindow
	// unless the Server already carries a Limiter. Zero disables it.
	ReviewLimit  int
	ReviewWindow time.Duration

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool
}

func NewHandler(s *Server, deps HTTPDeps) (http.Handler, error) {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	if s.Limiter == nil && deps.ReviewLimit > 0 {
		l, err := kit.NewIPRateLimiter(deps.ReviewLimit, deps.ReviewWindow)
		if err != nil {
			return nil, err
		}
		s.Limiter = l
	}

	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, s, deps)

	r.Mount("/", s.Routes())
	return r, nil
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(kit.Logging(deps.Log))
	r.Use(kit.Recoverer)
}

func setupMetrics(r *chi.Mux, s *Server, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	deps.Registry.MustRegister(NewCollector(s.Store))

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}
