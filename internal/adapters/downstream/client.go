package downstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/athebyme/gomarket-platform/listing-service/internal/utils"
)

// MappingPort определяет интерфейс внешнего сервиса маппинга
type MappingPort interface {
	// SendForMapping передает принятую заявку сервису маппинга.
	// Тело ответа игнорируется, не-2xx считается ошибкой транспорта
	SendForMapping(ctx context.Context, listingID string) error
}

// ListingAPIPort определяет интерфейс внешнего сервиса листинга
type ListingAPIPort interface {
	// DeleteListing запрашивает удаление заявки во внешнем сервисе.
	// Флаг deleted в локальной записи проставляет внешний сервис
	DeleteListing(ctx context.Context, listingID string) error

	// DeleteItem запрашивает удаление отдельной позиции заявки
	DeleteItem(ctx context.Context, listingID, itemID string) error
}

// Client HTTP-клиент для внешних сервисов маппинга и листинга
type Client struct {
	mappingBaseURL string
	listingBaseURL string
	httpClient     *http.Client
}

// NewClient создает новый клиент внешних сервисов.
// Таймаут на исходящие вызовы задается конфигурацией
func NewClient(mappingBaseURL, listingBaseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		mappingBaseURL: strings.TrimRight(mappingBaseURL, "/"),
		listingBaseURL: strings.TrimRight(listingBaseURL, "/"),
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// SendForMapping реализация интерфейса MappingPort
func (c *Client) SendForMapping(ctx context.Context, listingID string) error {
	url := fmt.Sprintf("%s/%s", c.mappingBaseURL, listingID)
	return c.do(ctx, http.MethodPost, url)
}

// DeleteListing реализация интерфейса ListingAPIPort
func (c *Client) DeleteListing(ctx context.Context, listingID string) error {
	url := fmt.Sprintf("%s/%s", c.listingBaseURL, listingID)
	return c.do(ctx, http.MethodDelete, url)
}

// DeleteItem реализация интерфейса ListingAPIPort
func (c *Client) DeleteItem(ctx context.Context, listingID, itemID string) error {
	url := fmt.Sprintf("%s/%s/%s", c.listingBaseURL, listingID, itemID)
	return c.do(ctx, http.MethodDelete, url)
}

// do выполняет запрос без тела и отбрасывает ответ
func (c *Client) do(ctx context.Context, method, url string) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDownstreamUnavailable, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s returned status %d", utils.ErrDownstreamUnavailable, method, url, resp.StatusCode)
	}

	return nil
}
