package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/dagma-cali/reportes-360/internal/models"
)

// ReportSaver persists reports ingested from the queue.
type ReportSaver interface {
	SaveReport(ctx context.Context, report *models.Report) error
}

// CaptureConsumer ingests report.captured events published by offline capture
// clients. The HTTP path stays read-only for the query pipeline; all writes
// enter through the capture endpoints or through this consumer.
type CaptureConsumer struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	saver        ReportSaver
	exchangeName string
	url          string
}

func NewCaptureConsumer(url, exchangeName string, saver ReportSaver) (*CaptureConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &CaptureConsumer{
		conn:         conn,
		channel:      channel,
		saver:        saver,
		exchangeName: exchangeName,
		url:          url,
	}, nil
}

// Start declares the ingest queue, binds it and begins consuming.
func (c *CaptureConsumer) Start() error {
	q, err := c.channel.QueueDeclare(
		"q.backend.captured_reports", // name
		true,                         // durable
		false,                        // delete when unused
		false,                        // exclusive
		false,                        // no-wait
		nil,                          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		q.Name,
		"report.captured",
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to report.captured: %w", err)
	}

	msgs, err := c.channel.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go c.consumeLoop(msgs)

	log.Info().Str("queue", q.Name).Msg("Capture consumer started")
	return nil
}

func (c *CaptureConsumer) consumeLoop(msgs <-chan amqp.Delivery) {
	for d := range msgs {
		log.Info().Str("routing_key", d.RoutingKey).Msg("Received captured report")

		report, err := reportFromCapture(d.Body)
		if err != nil {
			log.Error().Err(err).Msg("Dropping malformed capture event")
			d.Nack(false, false)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = c.saver.SaveReport(ctx, report)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("id", report.ID).Msg("Failed to save captured report")
			d.Nack(false, true) // retry
			continue
		}

		log.Info().Str("id", report.ID).Msg("Captured report ingested")
		d.Ack(false)
	}
}

// reportFromCapture validates a capture event and turns it into a report
// document. IDs missing from the event are generated here; photo_count is
// always derived from the URL list at write time.
func reportFromCapture(body []byte) (*models.Report, error) {
	var event models.ReportCapturedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capture event: %w", err)
	}

	if strings.TrimSpace(event.InterventionType) == "" {
		return nil, fmt.Errorf("capture event missing intervention_type")
	}
	if strings.TrimSpace(event.Address) == "" {
		return nil, fmt.Errorf("capture event missing address")
	}

	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := event.CapturedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &models.Report{
		ID:               id,
		InterventionType: event.InterventionType,
		Description:      event.Description,
		Address:          event.Address,
		Observations:     event.Observations,
		Latitude:         event.Latitude,
		Longitude:        event.Longitude,
		PhotoURLs:        event.PhotoURLs,
		PhotoCount:       len(event.PhotoURLs),
		CreatedAt:        createdAt,
	}, nil
}

func (c *CaptureConsumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
