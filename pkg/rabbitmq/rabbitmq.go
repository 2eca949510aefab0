package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	amqp "github.com/streadway/amqp"
)

// ReviewQueue is the durable queue review events are published to.
const ReviewQueue = "review_events"

// Review event types.
const (
	ReviewCreated = "review.created"
	ReviewUpdated = "review.updated"
	ReviewDeleted = "review.deleted"
)

// ReviewEvent describes a change to a review.
type ReviewEvent struct {
	Type     string    `json:"type"`
	ReviewID string    `json:"review_id"`
	Actor    string    `json:"actor"`
	Owner    string    `json:"owner"`
	Star     int       `json:"star,omitempty"`
	File     string    `json:"file,omitempty"`
	At       time.Time `json:"at"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares ReviewQueue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareReviewQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info().Str("queue", ReviewQueue).Msg("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareReviewQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		ReviewQueue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare %s: %w", ReviewQueue, err)
	}
	return q, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishReviewEvent publishes event as persistent JSON to ReviewQueue.
func (c *Client) PublishReviewEvent(event ReviewEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal review event: %w", err)
	}

	err = c.channel.Publish(
		"",          // default exchange
		ReviewQueue, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// ConsumeReviewEvents delivers every message on ReviewQueue to handler in a
// background goroutine. Messages are acked on success and requeued on error.
func (c *Client) ConsumeReviewEvents(handler func(ReviewEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := declareReviewQueue(c.channel)
	if err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			HandleDelivery(msg, handler)
		}
	}()

	return nil
}

// Acknowledger is the part of amqp.Delivery HandleDelivery needs.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// HandleDelivery decodes one delivery and acks or nacks it depending on the
// handler result. Undecodable bodies are dropped without requeue.
func HandleDelivery(msg amqp.Delivery, handler func(ReviewEvent) error) {
	handleBody(msg.Body, msg.DeliveryTag, msg, handler)
}

func handleBody(body []byte, tag uint64, ack Acknowledger, handler func(ReviewEvent) error) {
	var event ReviewEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error().Err(err).Uint64("tag", tag).Msg("dropping malformed review event")
		if nackErr := ack.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Uint64("tag", tag).Msg("error nacking message")
		}
		return
	}
	if err := handler(event); err != nil {
		log.Error().Err(err).Uint64("tag", tag).Msg("error processing review event")
		if nackErr := ack.Nack(false, true); nackErr != nil {
			log.Error().Err(nackErr).Uint64("tag", tag).Msg("error nacking message")
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		log.Error().Err(ackErr).Uint64("tag", tag).Msg("error acking message")
	}
}

// LogReviewEvent is the audit handler used by the serve command.
func LogReviewEvent(event ReviewEvent) error {
	log.Info().
		Str("type", event.Type).
		Str("review_id", event.ReviewID).
		Str("actor", event.Actor).
		Str("owner", event.Owner).
		Time("at", event.At).
		Msg("review event")
	return nil
}
