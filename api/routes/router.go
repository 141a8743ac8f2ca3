package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/calderonstudio/ranking-backend/api/controllers"
	"github.com/calderonstudio/ranking-backend/api/middleware"
	badge "github.com/calderonstudio/ranking-backend/internal/badges"
	cart "github.com/calderonstudio/ranking-backend/internal/cart"
	checkoutsvc "github.com/calderonstudio/ranking-backend/internal/checkout"
	customer "github.com/calderonstudio/ranking-backend/internal/customers"
	product "github.com/calderonstudio/ranking-backend/internal/products"
	score "github.com/calderonstudio/ranking-backend/internal/scores"
	season "github.com/calderonstudio/ranking-backend/internal/seasons"
	"github.com/calderonstudio/ranking-backend/pkg/config"
	"github.com/calderonstudio/ranking-backend/pkg/db"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
	"github.com/calderonstudio/ranking-backend/pkg/redis"
)

// Services bundles everything the router exposes.
type Services struct {
	Customers customer.Service
	Seasons   season.Service
	Badges    badge.Service
	Products  product.Service
	Scores    score.Service
	Cart      cart.Service
	Checkout  checkoutsvc.Service
}

// NewRouter builds the API's HTTP handler.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	services Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	writeThrottle := middleware.RateLimit("write", 120, time.Minute, redisClient, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.With(writeThrottle).Post("/", controllers.RegisterCustomer(services.Customers, logg))
			r.Get("/", controllers.ListCustomers(services.Customers, logg))
			r.Route("/{customerID}", func(r chi.Router) {
				r.Get("/", controllers.GetCustomer(services.Customers, logg))
				r.With(writeThrottle).Post("/points", controllers.CreditPoints(services.Customers, logg))
				r.Get("/badges", controllers.ListCustomerBadges(services.Badges, logg))
				r.With(writeThrottle).Post("/badges", controllers.AwardCustomerBadges(services.Badges, logg))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", controllers.GetCart(services.Cart, logg))
					r.Delete("/", controllers.ClearCart(services.Cart, logg))
					r.Post("/items", controllers.AddCartLine(services.Cart, logg))
					r.Delete("/items/{productID}", controllers.RemoveCartLine(services.Cart, logg))
					r.Get("/history", controllers.CartHistory(services.Cart, logg))
					r.With(writeThrottle).Post("/checkout", controllers.Checkout(services.Checkout, logg))
				})
			})
		})

		r.Route("/seasons", func(r chi.Router) {
			r.With(writeThrottle).Post("/", controllers.CreateSeason(services.Seasons, logg))
			r.Get("/", controllers.ListSeasons(services.Seasons, logg))
			r.Get("/active", controllers.ActiveSeason(services.Seasons, logg))
			r.Route("/{seasonID}", func(r chi.Router) {
				r.Get("/", controllers.GetSeason(services.Seasons, logg))
				r.With(writeThrottle).Delete("/", controllers.DeleteSeason(services.Seasons, logg))
				r.With(writeThrottle).Post("/awards", controllers.AwardSeasonBadges(services.Seasons, logg))
			})
		})

		r.Route("/badges", func(r chi.Router) {
			r.With(writeThrottle).Post("/", controllers.CreateBadge(services.Badges, logg))
			r.Get("/", controllers.ListBadges(services.Badges, logg))
			r.Route("/{badgeID}", func(r chi.Router) {
				r.Get("/", controllers.GetBadge(services.Badges, logg))
				r.Patch("/", controllers.UpdateBadge(services.Badges, logg))
				r.Delete("/", controllers.DeleteBadge(services.Badges, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.With(writeThrottle).Post("/", controllers.CreateProduct(services.Products, logg))
			r.Get("/", controllers.ListProducts(services.Products, logg))
			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/", controllers.GetProduct(services.Products, logg))
				r.Patch("/", controllers.UpdateProduct(services.Products, logg))
				r.Delete("/", controllers.DeleteProduct(services.Products, logg))
			})
		})

		r.Get("/ranking", controllers.Ranking(services.Scores, logg))
	})

	return r
}
