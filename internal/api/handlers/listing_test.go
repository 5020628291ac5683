package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/athebyme/gomarket-platform/listing-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/listing-service/internal/interfaces"
	"github.com/athebyme/gomarket-platform/listing-service/internal/utils"
	"github.com/athebyme/gomarket-platform/listing-service/internal/worker"
	"github.com/go-chi/chi/v5"
)

type nopLogger struct{}

func (n *nopLogger) Debug(msg string, args ...interface{}) {}
func (n *nopLogger) Info(msg string, args ...interface{})  {}
func (n *nopLogger) Warn(msg string, args ...interface{})  {}
func (n *nopLogger) Error(msg string, args ...interface{}) {}
func (n *nopLogger) Fatal(msg string, args ...interface{}) {}

func (n *nopLogger) DebugWithContext(ctx context.Context, msg string, args ...interface{}) {}
func (n *nopLogger) InfoWithContext(ctx context.Context, msg string, args ...interface{})  {}
func (n *nopLogger) WarnWithContext(ctx context.Context, msg string, args ...interface{})  {}
func (n *nopLogger) ErrorWithContext(ctx context.Context, msg string, args ...interface{}) {}

func (n *nopLogger) WithFields(fields ...interfaces.LogField) interfaces.LoggerPort { return n }
func (n *nopLogger) WithField(key string, value interface{}) interfaces.LoggerPort  { return n }
func (n *nopLogger) Sync() error                                                    { return nil }

// fakeListingService управляемая реализация сервиса заявок
type fakeListingService struct {
	submitID  string
	submitErr error

	listing    *models.Listing
	getErr     error
	listings   []*models.Listing
	total      int
	listErr    error
	markets    []*models.Marketplace
	marketsErr error

	deleteErr     error
	deleteItemMsg string
	deleteItemErr error

	lastPage int
	lastSize int
}

func (f *fakeListingService) SubmitListing(ctx context.Context, request *models.ListingRequest) (string, <-chan error, error) {
	if f.submitErr != nil {
		return "", nil, f.submitErr
	}
	done := make(chan error, 1)
	done <- nil
	return f.submitID, done, nil
}

func (f *fakeListingService) GetListing(ctx context.Context, listingID string) (*models.Listing, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.listing, nil
}

func (f *fakeListingService) ListListings(ctx context.Context, page, size int) ([]*models.Listing, int, error) {
	f.lastPage = page
	f.lastSize = size
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.listings, f.total, nil
}

func (f *fakeListingService) ListMarketplaces(ctx context.Context) ([]*models.Marketplace, error) {
	if f.marketsErr != nil {
		return nil, f.marketsErr
	}
	return f.markets, nil
}

func (f *fakeListingService) RequestDeleteListing(ctx context.Context, listingID string) (<-chan error, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	done := make(chan error, 1)
	done <- nil
	return done, nil
}

func (f *fakeListingService) RequestDeleteItem(ctx context.Context, listingID, itemID string) (string, error) {
	if f.deleteItemErr != nil {
		return "", f.deleteItemErr
	}
	return f.deleteItemMsg, nil
}

func newTestRouter(svc *fakeListingService) *chi.Mux {
	h := NewListingHandler(svc, &nopLogger{})

	r := chi.NewRouter()
	r.Post("/", h.SubmitListing)
	r.Get("/", h.ListListings)
	r.Get("/marketplaces", h.ListMarketplaces)
	r.Route("/{listingID}", func(r chi.Router) {
		r.Get("/", h.GetListing)
		r.Delete("/", h.DeleteListing)
		r.Delete("/{itemID}", h.DeleteItem)
	})
	return r
}

func doRequest(t *testing.T, router *chi.Mux, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitListingAccepted(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{submitID: "lst-42"}
	router := newTestRouter(svc)

	body := `{"marketplace":"acme","credentials":{"token":"x"},"inventory":[{"item_id":"i1"}]}`
	rec := doRequest(t, router, http.MethodPost, "/", body)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("статус %d, ожидался 202", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Listing request with ID lst-42 is processing!") {
		t.Errorf("неожиданное тело ответа: %q", rec.Body.String())
	}
}

func TestSubmitListingMalformedBody(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeListingService{submitID: "lst-42"})

	rec := doRequest(t, router, http.MethodPost, "/", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус %d, ожидался 400", rec.Code)
	}
}

func TestSubmitListingValidationError(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{submitErr: utils.ErrValidation}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/", `{"marketplace":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус %d, ожидался 400", rec.Code)
	}
}

func TestSubmitListingQueueFull(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{submitErr: worker.ErrQueueFull}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/", `{"marketplace":"acme"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("статус %d, ожидался 503", rec.Code)
	}
}

func TestGetListingFound(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{listing: &models.Listing{ListingID: "lst-1", Status: models.ListingStatusPending}}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/lst-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d, ожидался 200", rec.Code)
	}

	var resp listingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("некорректный JSON в ответе: %v", err)
	}
	if resp.Message != "Listing retrieved successfully!" {
		t.Errorf("сообщение = %q", resp.Message)
	}
	if len(resp.Data) != 1 || resp.Data[0].ListingID != "lst-1" {
		t.Errorf("неожиданные данные: %+v", resp.Data)
	}
}

func TestGetListingNotFound(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{getErr: utils.ErrListingNotFound}
	router := newTestRouter(svc)

	// Отсутствие заявки не меняет статус ответа
	rec := doRequest(t, router, http.MethodGet, "/missing", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d, ожидался 200", rec.Code)
	}

	var resp listingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("некорректный JSON в ответе: %v", err)
	}
	if resp.Message != "No listing request found with this ID!" {
		t.Errorf("сообщение = %q", resp.Message)
	}
	if len(resp.Data) != 0 {
		t.Errorf("данные должны быть пустыми: %+v", resp.Data)
	}
}

func TestListMarketplaces(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{markets: []*models.Marketplace{
		{Identifier: "acme", DisplayName: "Acme", Enabled: true},
	}}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/marketplaces", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d, ожидался 200", rec.Code)
	}

	var markets []*models.Marketplace
	if err := json.Unmarshal(rec.Body.Bytes(), &markets); err != nil {
		t.Fatalf("некорректный JSON в ответе: %v", err)
	}
	if len(markets) != 1 || markets[0].Identifier != "acme" {
		t.Errorf("неожиданный справочник: %+v", markets)
	}
}

func TestListMarketplacesEmpty(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{marketsErr: utils.ErrMarketplacesNotFound}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/marketplaces", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус %d, ожидался 404", rec.Code)
	}
}

func TestListListingsDefaults(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{
		listings: []*models.Listing{{ListingID: "lst-1"}},
		total:    1,
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d, ожидался 200", rec.Code)
	}
	if svc.lastPage != 1 || svc.lastSize != 20 {
		t.Errorf("page=%d size=%d, ожидались значения по умолчанию 1 и 20", svc.lastPage, svc.lastSize)
	}

	var resp listingPageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("некорректный JSON в ответе: %v", err)
	}
	if resp.PageData.TotalElements != 1 || resp.PageData.CurrentPage != 1 {
		t.Errorf("неожиданные метаданные страницы: %+v", resp.PageData)
	}
	if len(resp.ListingRequests) != 1 {
		t.Errorf("на странице %d заявок, ожидалась 1", len(resp.ListingRequests))
	}
}

func TestListListingsInvalidParams(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeListingService{})

	// Параметры проверяются по шаблону положительного целого
	for _, target := range []string{"/?page=0", "/?page=abc", "/?size=0", "/?size=-5", "/?page=01"} {
		rec := doRequest(t, router, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: статус %d, ожидался 400", target, rec.Code)
		}
	}
}

func TestListListingsEmptyPage(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{listings: nil, total: 0}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/?page=7&size=10", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус %d, ожидался 404", rec.Code)
	}
	if svc.lastPage != 7 || svc.lastSize != 10 {
		t.Errorf("page=%d size=%d, параметры запроса не переданы сервису", svc.lastPage, svc.lastSize)
	}
}

func TestListListingsPageLinks(t *testing.T) {
	t.Parallel()

	listings := make([]*models.Listing, 20)
	for i := range listings {
		listings[i] = &models.Listing{ListingID: "lst"}
	}
	svc := &fakeListingService{listings: listings, total: 47}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/?page=2&size=20", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d, ожидался 200", rec.Code)
	}

	var resp listingPageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("некорректный JSON в ответе: %v", err)
	}

	if resp.PageData.TotalPages != 3 {
		t.Errorf("всего страниц %d, ожидалось 3", resp.PageData.TotalPages)
	}
	if !resp.PageData.HasNextPage {
		t.Error("на второй странице из трех должна быть следующая")
	}
	// Строка запроса в ссылках перестраивается из параметров пагинации
	if !strings.Contains(resp.PagesLinks.Next, "page=3&size=20") {
		t.Errorf("Next = %q", resp.PagesLinks.Next)
	}
	if !strings.Contains(resp.PagesLinks.Prev, "page=1&size=20") {
		t.Errorf("Prev = %q", resp.PagesLinks.Prev)
	}
}

func TestDeleteListingAlreadyDeleted(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{deleteErr: utils.ErrListingAlreadyDeleted}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodDelete, "/lst-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус %d, ожидался 404", rec.Code)
	}
}

func TestDeleteListingAccepted(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeListingService{})

	rec := doRequest(t, router, http.MethodDelete, "/lst-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d, ожидался 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "lst-1") {
		t.Errorf("подтверждение не содержит идентификатор заявки: %q", rec.Body.String())
	}
}

func TestDeleteItemNotFound(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{deleteItemErr: utils.ErrItemNotFound}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodDelete, "/lst-1/item-2", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус %d, ожидался 404", rec.Code)
	}
}

func TestDeleteItemAck(t *testing.T) {
	t.Parallel()

	svc := &fakeListingService{deleteItemMsg: "Item item-1 removal request sent!"}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodDelete, "/lst-1/item-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d, ожидался 200", rec.Code)
	}
	if rec.Body.String() != "Item item-1 removal request sent!" {
		t.Errorf("неожиданное тело ответа: %q", rec.Body.String())
	}
}
