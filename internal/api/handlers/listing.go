package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/athebyme/gomarket-platform/listing-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/listing-service/internal/domain/services"
	"github.com/athebyme/gomarket-platform/listing-service/internal/interfaces"
	"github.com/athebyme/gomarket-platform/listing-service/internal/utils"
	"github.com/athebyme/gomarket-platform/listing-service/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Параметры пагинации принимаются строго как положительные целые
var pageParamPattern = regexp.MustCompile(`^[1-9]\d*$`)

// ListingHandler обработчик запросов для заявок на размещение
type ListingHandler struct {
	listingService services.ListingServicePort
	logger         interfaces.LoggerPort
}

// NewListingHandler создает новый обработчик заявок
func NewListingHandler(listingService services.ListingServicePort, logger interfaces.LoggerPort) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		logger:         logger,
	}
}

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// listingResponse оборачивает найденные заявки по образцу ответа
// {data, code, message}; код внутри тела всегда 200
type listingResponse struct {
	Data    []*models.Listing `json:"data"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
}

// listingPageResponse представляет страницу заявок с метаданными пагинации
type listingPageResponse struct {
	PageData        utils.PageData    `json:"page_data"`
	PagesLinks      utils.PageLinks   `json:"pages_links"`
	ListingRequests []*models.Listing `json:"listing_requests"`
}

// SubmitListing обрабатывает прием заявки на размещение.
// Ответ уходит сразу после постановки конвейера в очередь,
// результат обработки наблюдаем через журнал событий заявки
func (h *ListingHandler) SubmitListing(w http.ResponseWriter, r *http.Request) {
	var request models.ListingRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Некорректное тело запроса",
		})
		return
	}

	listingID, _, err := h.listingService.SubmitListing(r.Context(), &request)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrValidation):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{
				Error:   "validation_error",
				Code:    http.StatusBadRequest,
				Message: err.Error(),
			})
		case errors.Is(err, worker.ErrQueueFull):
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, errorResponse{
				Error:   "service_unavailable",
				Code:    http.StatusServiceUnavailable,
				Message: "Очередь обработки заявок заполнена",
			})
		default:
			h.logger.ErrorWithContext(r.Context(), "Ошибка приема заявки",
				interfaces.LogField{Key: "error", Value: err.Error()})
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, errorResponse{
				Error:   "internal_error",
				Code:    http.StatusInternalServerError,
				Message: "Ошибка приема заявки",
			})
		}
		return
	}

	render.Status(r, http.StatusAccepted)
	render.PlainText(w, r, fmt.Sprintf("Listing request with ID %s is processing!", listingID))
}

// ListMarketplaces возвращает справочник маркетплейсов
func (h *ListingHandler) ListMarketplaces(w http.ResponseWriter, r *http.Request) {
	marketplaces, err := h.listingService.ListMarketplaces(r.Context())
	if err != nil {
		if errors.Is(err, utils.ErrMarketplacesNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{
				Error:   "not_found",
				Code:    http.StatusNotFound,
				Message: "Marketplace not found",
			})
			return
		}

		h.logger.ErrorWithContext(r.Context(), "Ошибка получения справочника маркетплейсов",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения справочника маркетплейсов",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, marketplaces)
}

// GetListing возвращает заявку по идентификатору.
// Отсутствие заявки не является ошибкой: ответ остается 200
// с пустым списком и поясняющим сообщением
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")

	listing, err := h.listingService.GetListing(r.Context(), listingID)
	if err != nil {
		if errors.Is(err, utils.ErrListingNotFound) {
			render.Status(r, http.StatusOK)
			render.JSON(w, r, listingResponse{
				Data:    []*models.Listing{},
				Code:    http.StatusOK,
				Message: "No listing request found with this ID!",
			})
			return
		}

		h.logger.ErrorWithContext(r.Context(), "Ошибка получения заявки",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения заявки",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, listingResponse{
		Data:    []*models.Listing{listing},
		Code:    http.StatusOK,
		Message: "Listing retrieved successfully!",
	})
}

// ListListings возвращает страницу заявок с метаданными пагинации
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	pageParam := r.URL.Query().Get("page")
	if pageParam == "" {
		pageParam = "1"
	}
	sizeParam := r.URL.Query().Get("size")
	if sizeParam == "" {
		sizeParam = "20"
	}

	if !pageParamPattern.MatchString(pageParam) || !pageParamPattern.MatchString(sizeParam) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "validation_error",
			Code:    http.StatusBadRequest,
			Message: "Параметры page и size должны быть положительными целыми числами",
		})
		return
	}

	page, _ := strconv.Atoi(pageParam)
	size, _ := strconv.Atoi(sizeParam)

	listings, totalElements, err := h.listingService.ListListings(r.Context(), page, size)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения списка заявок",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения списка заявок",
		})
		return
	}

	if len(listings) == 0 {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{
			Error:   "not_found",
			Code:    http.StatusNotFound,
			Message: "No listings found!",
		})
		return
	}

	pageData := utils.CalculatePageData(page, size, len(listings), totalElements)
	pagesLinks := utils.GeneratePageLinks(requestURL(r), page, size, totalElements, pageData.TotalPages)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, listingPageResponse{
		PageData:        pageData,
		PagesLinks:      pagesLinks,
		ListingRequests: listings,
	})
}

// DeleteListing ставит в очередь удаление заявки во внешнем сервисе
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")

	_, err := h.listingService.RequestDeleteListing(r.Context(), listingID)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrListingAlreadyDeleted):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{
				Error:   "not_found",
				Code:    http.StatusNotFound,
				Message: "Listing request with this ID is already deleted!",
			})
		case errors.Is(err, worker.ErrQueueFull):
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, errorResponse{
				Error:   "service_unavailable",
				Code:    http.StatusServiceUnavailable,
				Message: "Очередь обработки заявок заполнена",
			})
		default:
			h.logger.ErrorWithContext(r.Context(), "Ошибка запроса удаления заявки",
				interfaces.LogField{Key: "error", Value: err.Error()})
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, errorResponse{
				Error:   "internal_error",
				Code:    http.StatusInternalServerError,
				Message: "Ошибка запроса удаления заявки",
			})
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.PlainText(w, r, fmt.Sprintf("Listing request with ID %s is being deleted!", listingID))
}

// DeleteItem запрашивает удаление позиции заявки во внешнем сервисе.
// Ошибка внешнего вызова возвращается текстом подтверждения, не статусом
func (h *ListingHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")
	itemID := chi.URLParam(r, "itemID")

	message, err := h.listingService.RequestDeleteItem(r.Context(), listingID, itemID)
	if err != nil {
		if errors.Is(err, utils.ErrListingNotFound) || errors.Is(err, utils.ErrItemNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{
				Error:   "not_found",
				Code:    http.StatusNotFound,
				Message: "Item not found",
			})
			return
		}

		h.logger.ErrorWithContext(r.Context(), "Ошибка запроса удаления позиции",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка запроса удаления позиции",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.PlainText(w, r, message)
}

// requestURL восстанавливает полный URL запроса для построения ссылок пагинации
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.RequestURI())
}
