package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/athebyme/gomarket-platform/listing-service/internal/adapters/downstream"
	"github.com/athebyme/gomarket-platform/listing-service/internal/adapters/messaging"
	"github.com/athebyme/gomarket-platform/listing-service/internal/adapters/storage"
	"github.com/athebyme/gomarket-platform/listing-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/listing-service/internal/interfaces"
	"github.com/athebyme/gomarket-platform/listing-service/internal/utils"
	"github.com/athebyme/gomarket-platform/listing-service/internal/worker"
	"github.com/google/uuid"
)

const (
	// Тема Kafka для событий жизненного цикла заявок
	listingEventsTopic = "listing-events"

	// Срок жизни кэша справочника маркетплейсов
	marketplaceCacheExpiration = 5 * time.Minute
)

// ListingServicePort определяет интерфейс сервиса заявок на размещение
type ListingServicePort interface {
	// SubmitListing принимает заявку, генерирует идентификатор и ставит
	// конвейер обработки в очередь фоновых задач. Возвращает идентификатор
	// и канал завершения фоновой обработки
	SubmitListing(ctx context.Context, request *models.ListingRequest) (string, <-chan error, error)

	// GetListing возвращает заявку без учетных данных
	GetListing(ctx context.Context, listingID string) (*models.Listing, error)

	// ListListings возвращает страницу заявок и общее количество
	ListListings(ctx context.Context, page, size int) ([]*models.Listing, int, error)

	// ListMarketplaces возвращает справочник маркетплейсов
	ListMarketplaces(ctx context.Context) ([]*models.Marketplace, error)

	// RequestDeleteListing ставит в очередь запрос на удаление заявки
	// во внешнем сервисе. Возвращает канал завершения фоновой задачи
	RequestDeleteListing(ctx context.Context, listingID string) (<-chan error, error)

	// RequestDeleteItem запрашивает удаление позиции заявки во внешнем
	// сервисе и возвращает текст подтверждения
	RequestDeleteItem(ctx context.Context, listingID, itemID string) (string, error)
}

// ListingService бизнес-логика работы с заявками на размещение
type ListingService struct {
	storage    postgres.ListingStorageInterface
	cache      interfaces.CachePort
	messaging  interfaces.MessagingPort
	mapping    downstream.MappingPort
	listingAPI downstream.ListingAPIPort
	pool       *worker.Pool
	logger     interfaces.LoggerPort
}

// NewListingService создает новый экземпляр ListingService
func NewListingService(
	storage postgres.ListingStorageInterface,
	cache interfaces.CachePort,
	msg interfaces.MessagingPort,
	mapping downstream.MappingPort,
	listingAPI downstream.ListingAPIPort,
	pool *worker.Pool,
	logger interfaces.LoggerPort,
) *ListingService {
	return &ListingService{
		storage:    storage,
		cache:      cache,
		messaging:  msg,
		mapping:    mapping,
		listingAPI: listingAPI,
		pool:       pool,
		logger:     logger,
	}
}

// lifecycleEvent сообщение о смене состояния заявки для Kafka
type lifecycleEvent struct {
	Event     messaging.KafkaEvent `json:"event"`
	ListingID string               `json:"listing_id"`
	Detail    string               `json:"detail,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// SubmitListing принимает заявку и запускает асинхронный конвейер.
// Ответ вызывающей стороне уходит до начала обработки, поэтому результат
// конвейера наблюдаем только через журнал событий и статус заявки
func (s *ListingService) SubmitListing(ctx context.Context, request *models.ListingRequest) (string, <-chan error, error) {
	if request == nil {
		return "", nil, fmt.Errorf("%w: empty request body", utils.ErrValidation)
	}
	if strings.TrimSpace(request.Marketplace) == "" {
		return "", nil, fmt.Errorf("%w: marketplace is required", utils.ErrValidation)
	}
	if len(request.Inventory) == 0 {
		return "", nil, fmt.Errorf("%w: inventory is empty", utils.ErrValidation)
	}

	listing := &models.Listing{
		ListingID:   uuid.New().String(),
		Status:      models.ListingStatusPending,
		Marketplace: strings.ToLower(request.Marketplace),
		Margin:      request.Margin,
		Credentials: request.Credentials,
		Inventory:   request.Inventory,
		CreatedAt:   time.Now().UTC(),
		Events:      []string{},
	}

	s.publishLifecycleEvent(ctx, messaging.ListingReceivedEvent, listing.ListingID, "")

	// Контекст запроса отвязывается: отмена HTTP-запроса не должна
	// прерывать конвейер, уже подтвержденный вызывающей стороне
	taskCtx := context.WithoutCancel(ctx)
	done, err := s.pool.Submit(taskCtx, "process_listing", func(ctx context.Context) error {
		return s.processListing(ctx, listing)
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to enqueue listing pipeline: %w", err)
	}

	return listing.ListingID, done, nil
}

// processListing выполняет конвейер обработки заявки:
// PERSIST -> VALIDATE -> DISPATCH, с терминальным статусом FAILED на любом шаге.
// Успешный терминальный статус проставляет внешний сервис маппинга
func (s *ListingService) processListing(ctx context.Context, listing *models.Listing) error {
	log := s.logger.WithField("listing_id", listing.ListingID)

	// PERSIST
	if err := s.storage.SaveListing(ctx, listing); err != nil {
		// Записи еще нет, событие добавить не во что; фиксируем в логах
		log.ErrorWithContext(ctx, "Ошибка сохранения заявки",
			interfaces.LogField{Key: "error", Value: err.Error()})
		s.appendEvent(ctx, listing.ListingID, fmt.Sprintf("Error while storing listing request: %v", err))
		s.publishLifecycleEvent(ctx, messaging.ListingFailedEvent, listing.ListingID, err.Error())
		return err
	}

	s.appendEvent(ctx, listing.ListingID, "Listing request stored into database")
	s.publishLifecycleEvent(ctx, messaging.ListingPersistedEvent, listing.ListingID, "")

	// VALIDATE MARKETPLACE
	exists, err := s.marketplaceExists(ctx, listing.Marketplace)
	if err != nil {
		s.appendEvent(ctx, listing.ListingID, fmt.Sprintf("Error while validating marketplace: %v", err))
		s.markFailed(ctx, listing.ListingID, err.Error())
		return err
	}
	if !exists {
		s.appendEvent(ctx, listing.ListingID, fmt.Sprintf("No such marketplace: %s", listing.Marketplace))
		s.markFailed(ctx, listing.ListingID, "no such marketplace")
		return fmt.Errorf("%w: %s", utils.ErrMarketplaceNotFound, listing.Marketplace)
	}

	// DISPATCH: событие фиксируется до исходящего вызова
	s.appendEvent(ctx, listing.ListingID, "Sent for mapping")
	if err := s.mapping.SendForMapping(ctx, listing.ListingID); err != nil {
		s.appendEvent(ctx, listing.ListingID, fmt.Sprintf("Error: Mapping request couldn't be sent: %v", err))
		s.markFailed(ctx, listing.ListingID, err.Error())
		return err
	}

	s.publishLifecycleEvent(ctx, messaging.ListingDispatchedEvent, listing.ListingID, "")
	log.InfoWithContext(ctx, "Заявка отправлена на маппинг")
	return nil
}

// GetListing возвращает заявку по идентификатору без учетных данных
func (s *ListingService) GetListing(ctx context.Context, listingID string) (*models.Listing, error) {
	listing, err := s.storage.GetListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	if listing == nil {
		return nil, utils.ErrListingNotFound
	}
	return listing, nil
}

// ListListings возвращает страницу заявок и общее количество записей
func (s *ListingService) ListListings(ctx context.Context, page, size int) ([]*models.Listing, int, error) {
	if page < 1 || size < 1 {
		return nil, 0, fmt.Errorf("%w: page and size must be positive", utils.ErrValidation)
	}

	total, err := s.storage.CountListings(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	offset := (page - 1) * size
	listings, err := s.storage.ListListings(ctx, offset, size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list listings: %w", err)
	}

	return listings, total, nil
}

// ListMarketplaces возвращает справочник маркетплейсов
func (s *ListingService) ListMarketplaces(ctx context.Context) ([]*models.Marketplace, error) {
	marketplaces, err := s.storage.ListMarketplaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplaces: %w", err)
	}
	if len(marketplaces) == 0 {
		return nil, utils.ErrMarketplacesNotFound
	}
	return marketplaces, nil
}

// RequestDeleteListing ставит в очередь удаление заявки во внешнем сервисе.
// Запись с deleted=true отклоняется; сам флаг deleted проставляет внешний
// сервис, локально он не меняется
func (s *ListingService) RequestDeleteListing(ctx context.Context, listingID string) (<-chan error, error) {
	listing, err := s.storage.GetListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	if listing != nil && listing.Deleted {
		return nil, utils.ErrListingAlreadyDeleted
	}

	s.publishLifecycleEvent(ctx, messaging.ListingDeleteRequested, listingID, "")

	taskCtx := context.WithoutCancel(ctx)
	done, err := s.pool.Submit(taskCtx, "delete_listing", func(ctx context.Context) error {
		if err := s.listingAPI.DeleteListing(ctx, listingID); err != nil {
			s.appendEvent(ctx, listingID, fmt.Sprintf("Error: Delete request couldn't be sent: %v", err))
			return err
		}
		s.appendEvent(ctx, listingID, "Sent for deletion")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue listing deletion: %w", err)
	}

	return done, nil
}

// RequestDeleteItem запрашивает удаление позиции во внешнем сервисе.
// Ошибка внешнего вызова не пробрасывается, а попадает в журнал событий
// и в текст подтверждения
func (s *ListingService) RequestDeleteItem(ctx context.Context, listingID, itemID string) (string, error) {
	listing, err := s.storage.GetListing(ctx, listingID)
	if err != nil {
		return "", fmt.Errorf("failed to get listing: %w", err)
	}
	if listing == nil {
		return "", utils.ErrListingNotFound
	}
	if !listing.HasItem(itemID) {
		return "", fmt.Errorf("%w: %s", utils.ErrItemNotFound, itemID)
	}

	if err := s.listingAPI.DeleteItem(ctx, listingID, itemID); err != nil {
		message := fmt.Sprintf("Error: Item delete request couldn't be sent: %v", err)
		s.appendEvent(ctx, listingID, message)
		return message, nil
	}

	s.appendEvent(ctx, listingID, fmt.Sprintf("Item %s sent for deletion", itemID))
	return fmt.Sprintf("Item %s removal request sent!", itemID), nil
}

// marketplaceExists проверяет наличие включенного маркетплейса,
// сначала в кэше, затем в хранилище. Ошибки кэша не фатальны
func (s *ListingService) marketplaceExists(ctx context.Context, identifier string) (bool, error) {
	cacheKey := "marketplace:" + identifier

	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		return string(cached) == "1", nil
	} else if !errors.Is(err, utils.ErrCacheMiss) {
		s.logger.WarnWithContext(ctx, "Ошибка чтения из кэша",
			interfaces.LogField{Key: "key", Value: cacheKey},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	exists, err := s.storage.MarketplaceExists(ctx, identifier, true)
	if err != nil {
		return false, fmt.Errorf("failed to check marketplace: %w", err)
	}

	value := []byte("0")
	if exists {
		value = []byte("1")
	}
	if err := s.cache.Set(ctx, cacheKey, value, marketplaceCacheExpiration); err != nil {
		s.logger.WarnWithContext(ctx, "Ошибка записи в кэш",
			interfaces.LogField{Key: "key", Value: cacheKey},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	return exists, nil
}

// appendEvent добавляет запись в журнал событий заявки.
// Ошибка записи не прерывает конвейер, журнал ведется по мере возможности
func (s *ListingService) appendEvent(ctx context.Context, listingID, message string) {
	if err := s.storage.AppendEvent(ctx, listingID, message); err != nil {
		s.logger.WarnWithContext(ctx, "Не удалось записать событие заявки",
			interfaces.LogField{Key: "listing_id", Value: listingID},
			interfaces.LogField{Key: "event", Value: message},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
}

// markFailed переводит заявку в терминальный статус FAILED
// и публикует событие об этом
func (s *ListingService) markFailed(ctx context.Context, listingID, detail string) {
	if err := s.storage.UpdateListingStatus(ctx, listingID, models.ListingStatusFailed); err != nil {
		s.logger.ErrorWithContext(ctx, "Не удалось обновить статус заявки",
			interfaces.LogField{Key: "listing_id", Value: listingID},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	s.publishLifecycleEvent(ctx, messaging.ListingFailedEvent, listingID, detail)
}

// publishLifecycleEvent публикует событие жизненного цикла в Kafka.
// Публикация выполняется по мере возможности и не влияет на результат операции
func (s *ListingService) publishLifecycleEvent(ctx context.Context, event messaging.KafkaEvent, listingID, detail string) {
	if s.messaging == nil {
		return
	}

	payload, err := json.Marshal(lifecycleEvent{
		Event:     event,
		ListingID: listingID,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := s.messaging.PublishWithKey(ctx, listingEventsTopic, listingID, payload); err != nil {
		s.logger.WarnWithContext(ctx, "Не удалось опубликовать событие жизненного цикла",
			interfaces.LogField{Key: "listing_id", Value: listingID},
			interfaces.LogField{Key: "event", Value: event},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
}
