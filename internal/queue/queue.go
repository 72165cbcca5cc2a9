package queue

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	LinkQueue   = "link_queue"
	DeleteQueue = "delete_queue"

	// MaxRetries is how often a message is redelivered through the retry
	// queue before it is parked in the dead-letter queue.
	MaxRetries = 10
	retryDelay = 10 * time.Second
)

// Queues lists every work queue consumed by the worker.
var Queues = []string{LinkQueue, DeleteQueue}

// Channel is the part of an AMQP channel used for declaring and publishing.
// *amqp091.Channel implements it.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

func Init() *amqp091.Connection {
	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnv("RABBITMQ_USER"),
		util.GetEnv("RABBITMQ_PASSWORD"),
		util.GetEnv("RABBITMQ_HOST"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// SetupQueues declares every queue together with its _dlq and its _retry
// queue. Retried messages wait in _retry and are dead-lettered back onto the
// work queue.
func SetupQueues(ch Channel, queueNames []string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryDelay.Milliseconds()),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", retryName, err)
		}
	}

	return nil
}

// PublishFIFO publishes a persistent message to queueName on the default
// exchange.
func PublishFIFO(ch Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	return ch.Publish(
		"",
		q.Name,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func retries(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleFailure moves a failed delivery to the retry queue, or to the
// dead-letter queue once it has been retried MaxRetries times. The delivery
// is acked after the copy was published and requeued if publishing fails.
func HandleFailure(ch Channel, msg amqp091.Delivery, queueName string) {
	n := retries(msg.Headers)

	target := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	if n >= MaxRetries {
		target = queueName + "_dlq"
		logger.Warn("[Queue] Sending message to DLQ", "dlq", target, "retries", n)
	} else {
		headers["x-retries"] = int32(n + 1)
	}

	err := ch.Publish(
		"",
		target,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		logger.Error("[Queue] Failed to publish failed message", "queue", target, "err", err)
		if err := msg.Nack(false, true); err != nil {
			logger.Error("[Queue] Failed to nack message", "err", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}
