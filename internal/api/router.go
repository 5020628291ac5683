package api

import (
	"net/http"
	"time"

	"github.com/athebyme/gomarket-platform/listing-service/internal/api/handlers"
	"github.com/athebyme/gomarket-platform/listing-service/internal/api/middleware"
	"github.com/athebyme/gomarket-platform/listing-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/listing-service/internal/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter настраивает маршрутизатор
func SetupRouter(
	listingService services.ListingServicePort,
	logger interfaces.LoggerPort,
	corsAllowedOrigins []string,
) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.CORS(corsAllowedOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Method(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	r.Method(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	listingHandler := handlers.NewListingHandler(listingService, logger)

	// Маршруты для заявок на размещение

	// Прием новой заявки
	r.Post("/", listingHandler.SubmitListing)

	// Список заявок с пагинацией
	r.Get("/", listingHandler.ListListings)

	// Справочник маркетплейсов
	r.Get("/marketplaces", listingHandler.ListMarketplaces)

	// Операции с конкретной заявкой
	r.Route("/{listingID}", func(r chi.Router) {
		// Получение заявки по ID
		r.Get("/", listingHandler.GetListing)

		// Запрос удаления заявки
		r.Delete("/", listingHandler.DeleteListing)

		// Запрос удаления позиции заявки
		r.Delete("/{itemID}", listingHandler.DeleteItem)
	})

	return r
}
