package interfaces

import "context"

// MessagingPort определяет интерфейс для публикации сообщений о жизненном цикле заявок
type MessagingPort interface {
	// Publish публикует сообщение в указанную тему
	Publish(ctx context.Context, topic string, message []byte) error

	// PublishWithKey публикует сообщение с указанным ключом.
	// Сообщения с одним ключом сохраняют порядок публикации
	PublishWithKey(ctx context.Context, topic string, key string, message []byte) error

	// Close закрывает соединение с системой обмена сообщениями
	Close() error
}
