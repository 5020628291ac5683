package models

import (
	"encoding/json"
	"time"
)

// Статусы заявки на размещение. Успешный терминальный статус проставляется
// внешним сервисом маппинга напрямую в хранилище, ядро его не записывает.
const (
	ListingStatusPending = "PENDING"
	ListingStatusFailed  = "FAILED"
)

// InventoryItem представляет позицию инвентаря внутри заявки на размещение
type InventoryItem struct {
	ItemID      string   `json:"item_id"`
	Condition   string   `json:"condition"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand"`
	Gender      string   `json:"gender"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Size        string   `json:"size"`
	Title       string   `json:"title"`
	Color       string   `json:"color"`
	Images      []string `json:"images"`
}

// Listing представляет заявку на размещение инвентаря на маркетплейсе.
// ListingID генерируется при приеме заявки и неизменяем; внутренний
// идентификатор записи хранилища наружу не отдается.
type Listing struct {
	ListingID   string   `json:"listing_id"`
	Status      string   `json:"status"`
	Marketplace string   `json:"marketplace"` // нормализован к нижнему регистру
	Margin      *float64 `json:"margin,omitempty"`
	// Credentials хранит учетные данные продавца как непрозрачный блоб.
	// Никогда не возвращается операциями чтения
	Credentials json.RawMessage `json:"credentials,omitempty"`
	Inventory   []InventoryItem `json:"inventory"`
	// Items заполняется внешним сервисом маппинга, ядро их не пишет
	Items     json.RawMessage `json:"items,omitempty"`
	Deleted   bool            `json:"deleted"`
	CreatedAt time.Time       `json:"created_at"`
	// Events — журнал событий заявки, только добавление в конец
	Events []string `json:"events"`
}

// HasItem сообщает, содержит ли инвентарь заявки позицию с указанным ID
func (l *Listing) HasItem(itemID string) bool {
	for _, item := range l.Inventory {
		if item.ItemID == itemID {
			return true
		}
	}
	return false
}

// Marketplace представляет запись справочника маркетплейсов.
// Справочник для ядра доступен только на чтение
type Marketplace struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
	Enabled     bool   `json:"enabled"`
	Icon        string `json:"icon"`
}

// ListingRequest представляет входящую заявку на размещение
type ListingRequest struct {
	Marketplace string          `json:"marketplace"`
	Margin      *float64        `json:"margin,omitempty"`
	Credentials json.RawMessage `json:"credentials"`
	Inventory   []InventoryItem `json:"inventory"`
}
