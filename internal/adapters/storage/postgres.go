package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/athebyme/gomarket-platform/listing-service/internal/domain/models"
	"github.com/athebyme/gomarket-platform/listing-service/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListingStorageInterface определяет интерфейс взаимодействия с хранилищем PostgreSQL
type ListingStorageInterface interface {
	// Listing методы
	SaveListing(ctx context.Context, listing *models.Listing) error
	GetListing(ctx context.Context, listingID string) (*models.Listing, error)
	ListListings(ctx context.Context, offset, limit int) ([]*models.Listing, error)
	CountListings(ctx context.Context) (int, error)
	UpdateListingStatus(ctx context.Context, listingID string, status string) error

	// AppendEvent добавляет сообщение в конец журнала событий заявки.
	// Повторные вызовы с одинаковыми аргументами добавляют дубликаты:
	// журнал является аудитом, а не множеством
	AppendEvent(ctx context.Context, listingID string, message string) error

	// Marketplace методы
	MarketplaceExists(ctx context.Context, identifier string, mustBeEnabled bool) (bool, error)
	ListMarketplaces(ctx context.Context) ([]*models.Marketplace, error)
}

type ListingStoragePort interface {
	ListingStorageInterface

	Close() error
}

// ListingStorage реализация ListingStoragePort для PostgreSQL
type ListingStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage создает новый экземпляр ListingStorage
func NewPostgresStorage(ctx context.Context, connectionString string) (*ListingStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &ListingStorage{
		pool: pool,
	}, nil
}

func NewPostgresStorageWithPool(ctx context.Context, pool *pgxpool.Pool) (*ListingStorage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &ListingStorage{
		pool: pool,
	}, nil
}

// Close закрывает соединение с БД
func (r *ListingStorage) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность хранилища
func (r *ListingStorage) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// SaveListing сохраняет заявку на размещение в базу данных
func (r *ListingStorage) SaveListing(ctx context.Context, listing *models.Listing) error {
	query := `
		INSERT INTO listing.listings
			(listing_id, status, marketplace, margin, credentials, inventory, items, deleted, created_at, events)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	inventoryJSON, err := json.Marshal(listing.Inventory)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory: %w", err)
	}

	events := listing.Events
	if events == nil {
		events = []string{}
	}

	_, err = r.pool.Exec(ctx, query,
		listing.ListingID, listing.Status, listing.Marketplace, listing.Margin,
		[]byte(listing.Credentials), inventoryJSON, []byte(listing.Items),
		listing.Deleted, listing.CreatedAt, events)
	if err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}

// GetListing получает заявку по сгенерированному идентификатору.
// Поле credentials не выбирается: учетные данные не покидают хранилище
func (r *ListingStorage) GetListing(ctx context.Context, listingID string) (*models.Listing, error) {
	query := `
		SELECT listing_id, status, marketplace, margin, inventory, items, deleted, created_at, events
		FROM listing.listings
		WHERE listing_id = $1
	`

	row := r.pool.QueryRow(ctx, query, listingID)
	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Заявка не найдена
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return listing, nil
}

// ListListings возвращает страницу заявок без учетных данных
func (r *ListingStorage) ListListings(ctx context.Context, offset, limit int) ([]*models.Listing, error) {
	query := `
		SELECT listing_id, status, marketplace, margin, inventory, items, deleted, created_at, events
		FROM listing.listings
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, listing)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating listing rows: %w", rows.Err())
	}

	return listings, nil
}

// CountListings возвращает общее количество заявок
func (r *ListingStorage) CountListings(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listing.listings`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return total, nil
}

// UpdateListingStatus обновляет статус заявки
func (r *ListingStorage) UpdateListingStatus(ctx context.Context, listingID string, status string) error {
	query := `
		UPDATE listing.listings
		SET status = $2
		WHERE listing_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, listingID, status)
	if err != nil {
		return fmt.Errorf("failed to update listing status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrListingNotFound
	}

	return nil
}

// AppendEvent добавляет запись в журнал событий заявки.
// array_append выполняется одним UPDATE, порядок добавления сохраняется
func (r *ListingStorage) AppendEvent(ctx context.Context, listingID string, message string) error {
	query := `
		UPDATE listing.listings
		SET events = array_append(events, $2)
		WHERE listing_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, listingID, message)
	if err != nil {
		return fmt.Errorf("failed to append listing event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrListingNotFound
	}

	return nil
}

// MarketplaceExists проверяет наличие маркетплейса в справочнике.
// Идентификатор в справочнике хранится в нижнем регистре
func (r *ListingStorage) MarketplaceExists(ctx context.Context, identifier string, mustBeEnabled bool) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM listing.marketplaces WHERE identifier = $1 AND (NOT $2::boolean OR enabled))`

	var exists bool
	err := r.pool.QueryRow(ctx, query, identifier, mustBeEnabled).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check marketplace: %w", err)
	}

	return exists, nil
}

// ListMarketplaces возвращает справочник маркетплейсов без внутренних идентификаторов
func (r *ListingStorage) ListMarketplaces(ctx context.Context) ([]*models.Marketplace, error) {
	query := `
		SELECT identifier, display_name, enabled, icon
		FROM listing.marketplaces
		ORDER BY identifier
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplaces: %w", err)
	}
	defer rows.Close()

	var marketplaces []*models.Marketplace
	for rows.Next() {
		var m models.Marketplace
		if err := rows.Scan(&m.Identifier, &m.DisplayName, &m.Enabled, &m.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan marketplace row: %w", err)
		}
		marketplaces = append(marketplaces, &m)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating marketplace rows: %w", rows.Err())
	}

	return marketplaces, nil
}

// scanListing читает одну строку заявки
func scanListing(row pgx.Row) (*models.Listing, error) {
	var listing models.Listing
	var inventoryJSON, itemsJSON []byte

	err := row.Scan(&listing.ListingID, &listing.Status, &listing.Marketplace, &listing.Margin,
		&inventoryJSON, &itemsJSON, &listing.Deleted, &listing.CreatedAt, &listing.Events)
	if err != nil {
		return nil, err
	}

	if len(inventoryJSON) > 0 {
		if err := json.Unmarshal(inventoryJSON, &listing.Inventory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal inventory: %w", err)
		}
	}
	listing.Items = itemsJSON

	return &listing, nil
}
