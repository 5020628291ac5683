package interfaces

import (
	"context"
	"time"
)

// CachePort определяет интерфейс для работы с системой кэширования
// Реализация может использовать Redis, Memcached или любую другую систему кэширования
type CachePort interface {
	// Get получает значение из кэша по ключу.
	// Возвращает ErrCacheMiss, если значение не найдено
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кэше с указанным сроком действия.
	// Если expiration равно 0, срок действия не устанавливается
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete удаляет значение из кэша по ключу
	Delete(ctx context.Context, key string) error

	// DeleteByPattern удаляет все значения, соответствующие шаблону
	// Например, "marketplace:*" удалит все ключи, начинающиеся с "marketplace:"
	DeleteByPattern(ctx context.Context, pattern string) error

	// Close закрывает соединение с системой кэширования
	Close() error
}
