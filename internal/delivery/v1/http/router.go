package http

import (
	"time"

	_ "github.com/DRSN-tech/price-tracker/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(prUC usecase.ProductUC, requestTimeout time.Duration) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RealIP)
	r.router.Use(middleware.Recoverer)
	r.router.Use(middleware.Timeout(requestTimeout))

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api", func(api chi.Router) {
		prHandler := NewProductHandler(prUC, r.logger)
		registerProductRoutes(api, prHandler)
		registerCheckPricesRoutes(api, prHandler)
	})
}

func registerProductRoutes(router chi.Router, prHandler *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", prHandler.listProducts)
		pr.Post("/", prHandler.trackProduct)
		pr.Get("/{id}", prHandler.getProduct)
		pr.Put("/{id}", prHandler.setTargetPrice)
		pr.Delete("/{id}", prHandler.untrackProduct)
	})
}

func registerCheckPricesRoutes(router chi.Router, prHandler *ProductHandler) {
	router.Route("/check-prices", func(cp chi.Router) {
		cp.Post("/", prHandler.checkPrices)
		cp.Get("/last", prHandler.lastSweep)
	})
}
