package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/athebyme/gomarket-platform/listing-service/internal/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

// KafkaMessaging реализация MessagingPort с использованием Kafka.
// Сервис только публикует события жизненного цикла заявок, подписок нет
type KafkaMessaging struct {
	producer *kafka.Producer
	brokers  []string
}

// NewKafkaMessaging создает новый экземпляр KafkaMessaging
func NewKafkaMessaging(brokers []string) (interfaces.MessagingPort, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":            strings.Join(brokers, ","),
		"client.id":                    "listing-service-producer",
		"acks":                         "all", // максимальная надежность
		"retries":                      5,
		"retry.backoff.ms":             500,
		"compression.type":             "snappy",
		"linger.ms":                    10,    // небольшая задержка для батчинга
		"batch.size":                   16384, // размер пакета в байтах
		"message.max.bytes":            1000000,
		"queue.buffering.max.messages": 100000, // размер внутреннего буфера
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka producer: %w", err)
	}

	return &KafkaMessaging{
		producer: producer,
		brokers:  brokers,
	}, nil
}

// messageToKafkaMessage преобразует сырое сообщение в kafka.Message
func messageToKafkaMessage(topic string, message []byte, key string) *kafka.Message {
	kafkaHeaders := []kafka.Header{
		{Key: "message_id", Value: []byte(uuid.New().String())},
		{Key: "timestamp", Value: []byte(fmt.Sprintf("%d", time.Now().UnixNano()))},
	}

	var keyBytes []byte
	if key != "" {
		keyBytes = []byte(key)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          message,
		Key:            keyBytes,
		Headers:        kafkaHeaders,
	}
}

// Publish публикует сообщение в указанную тему
func (k *KafkaMessaging) Publish(ctx context.Context, topic string, message []byte) error {
	msg := messageToKafkaMessage(topic, message, "")
	return k.producer.Produce(msg, nil)
}

// PublishWithKey публикует сообщение с указанным ключом.
// События одной заявки публикуются с ее listing_id в качестве ключа,
// что сохраняет порядок внутри партиции
func (k *KafkaMessaging) PublishWithKey(ctx context.Context, topic string, key string, message []byte) error {
	msg := messageToKafkaMessage(topic, message, key)
	return k.producer.Produce(msg, nil)
}

// Close закрывает соединение с системой обмена сообщениями
func (k *KafkaMessaging) Close() error {
	k.producer.Flush(15 * 1000) // Ждем до 15 секунд для отправки всех сообщений
	k.producer.Close()
	return nil
}
