package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/merchantkit/voucher-service/internal/api/handlers"
	"github.com/merchantkit/voucher-service/internal/api/middleware"
	"github.com/merchantkit/voucher-service/internal/cache"
	"github.com/merchantkit/voucher-service/internal/repository"
	"github.com/merchantkit/voucher-service/internal/service"
)

// NewRouter wires the postgres repositories into services and mounts the
// routes.
func NewRouter(db *sqlx.DB, jwtSecret []byte, logger *slog.Logger) http.Handler {
	discountRepo := repository.NewDiscountRepo(db)
	codeRepo := repository.NewCodeRepo(db)
	usageRepo := repository.NewUsageRepo(db)
	discountCache := cache.NewDiscountCache()

	codeSvc := service.NewCodeService(codeRepo, logger)
	discountSvc := service.NewDiscountService(discountRepo, codeRepo, codeSvc, discountCache, logger)
	redemptionSvc := service.NewRedemptionService(discountRepo, codeRepo, usageRepo, discountCache, logger)

	return Routes(discountSvc, redemptionSvc, jwtSecret, logger)
}

// Routes mounts the HTTP API over already-constructed services. Split out of
// NewRouter so tests can drive the full router against in-memory stores.
func Routes(discountSvc *service.DiscountService, redemptionSvc *service.RedemptionService, jwtSecret []byte, logger *slog.Logger) http.Handler {
	discountHandler := handlers.NewDiscountHandler(discountSvc, logger)
	redemptionHandler := handlers.NewRedemptionHandler(redemptionSvc, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(jwtSecret))

		r.Route("/discounts", func(r chi.Router) {
			r.Post("/", discountHandler.Create)
			r.Get("/", discountHandler.List)
			r.Get("/{discountID}", discountHandler.Get)
			r.Put("/{discountID}", discountHandler.Update)
			r.Delete("/{discountID}", discountHandler.Delete)
			r.Post("/{discountID}/toggle", discountHandler.Toggle)
			r.Post("/{discountID}/duplicate", discountHandler.Duplicate)
			r.Get("/{discountID}/codes", discountHandler.ListCodes)
			r.Post("/{discountID}/codes/generate", discountHandler.GenerateCodes)
			r.Get("/{discountID}/usages", redemptionHandler.ListUsages)
		})

		r.Post("/codes/{codeID}/deactivate", discountHandler.DeactivateCode)

		r.Route("/redemptions", func(r chi.Router) {
			r.Post("/validate", redemptionHandler.Validate)
			r.Post("/", redemptionHandler.Redeem)
		})
	})

	return r
}
