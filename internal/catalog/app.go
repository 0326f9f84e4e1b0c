package catalog

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ProductStore/pkg/kit"
)

// compressLevel applies to JSON responses; product lists are the large ones.
const compressLevel = 5

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// Extra is mounted next to the product routes, e.g. the auth token
	// endpoint.
	Extra func(r chi.Router)
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, s, deps)

	if deps.Extra != nil {
		deps.Extra(r)
	}
	r.Mount("/", s.Routes())
	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
	r.Use(chimw.CleanPath)
	r.Use(chimw.Compress(compressLevel, "application/json"))
}

func setupMetrics(r *chi.Mux, s *Server, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	deps.Registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "product_store_products",
			Help:        "Products currently in the store.",
			ConstLabels: prometheus.Labels{"service": deps.Service},
		},
		productCount(s.Store, deps.Log),
	))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

// productCount reports NaN when the store cannot be listed.
func productCount(store Store, log *zap.Logger) func() float64 {
	return func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		items, err := store.List(ctx)
		if err != nil {
			log.Warn("count products for metrics", zap.Error(err))
			return math.NaN()
		}
		return float64(len(items))
	}
}
