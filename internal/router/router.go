package router

import (
	"context"
	"net/http"
	"time"

	"liftcart/internal/handler"
	"liftcart/internal/metrics"
	"liftcart/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Products *handler.ProductHandler
	Carts    *handler.CartHandler
	Orders   *handler.OrderHandler
}

// Options configures the router.
type Options struct {
	JWTSecret      []byte
	Metrics        *metrics.Metrics
	DB             Pinger
	RequestTimeout time.Duration
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> Metrics -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}
	r.Use(middleware.CORS)

	r.Get("/health", health(opts.DB))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chimw.Timeout(opts.RequestTimeout))
		}
		r.Use(middleware.IdentityResolver(opts.JWTSecret, logger))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.GetAll)
			r.Get("/{id}", h.Products.GetByID)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Carts.Get)
			r.Delete("/", h.Carts.Clear)
			r.Get("/summary", h.Carts.Summary)
			r.Get("/inventory", h.Carts.Inventory)
			r.Post("/items", h.Carts.AddItem)
			r.Patch("/items/{itemID}", h.Carts.UpdateItem)
			r.Delete("/items/{itemID}", h.Carts.RemoveItem)
			r.With(middleware.RequireAccount).Post("/migrate", h.Carts.Migrate)
		})

		r.Post("/checkout", h.Orders.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireAccount).Get("/", h.Orders.List)
			r.Get("/{id}", h.Orders.GetByID)
		})
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unhealthy"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	}
}
