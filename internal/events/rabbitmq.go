package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"quizgenai/internal/config"
)

const (
	QuizGenerated = "quiz.generated"
	QuizCreated   = "quiz.created"
	QuizSubmitted = "quiz.submitted"
)

// Event is the JSON body of every published message.
type Event struct {
	Type           string    `json:"type"`
	QuizID         string    `json:"quizId,omitempty"`
	UserID         string    `json:"userId,omitempty"`
	TotalQuestions int       `json:"totalQuestions,omitempty"`
	Score          *float64  `json:"score,omitempty"`
	Degraded       bool      `json:"degraded,omitempty"`
	Attempts       int       `json:"attempts,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends quiz events to a durable queue. A nil *Publisher is valid
// and drops every event.
type Publisher struct {
	conn    *amqp.Connection
	mu      sync.Mutex
	channel channel
	queue   string
	log     *zap.Logger
}

// NewPublisher dials RabbitMQ and declares the queue. It returns (nil, nil)
// when no URL is configured.
func NewPublisher(cfg config.RabbitMQConfig, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.URL == "" {
		log.Warn("RABBITMQ_URL not set, quiz events disabled")
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p, err := newPublisher(ch, cfg.Queue, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	log.Info("RabbitMQ publisher ready", zap.String("queue", cfg.Queue))
	return p, nil
}

func newPublisher(ch channel, queue string, log *zap.Logger) (*Publisher, error) {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	return &Publisher{channel: ch, queue: queue, log: log}, nil
}

// Publish sends ev. Failures are logged and otherwise ignored.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Type:        ev.Type,
			Body:        body,
			Timestamp:   ev.OccurredAt,
		},
	)
	if err != nil {
		p.log.Warn("failed to publish event", zap.String("type", ev.Type), zap.Error(err))
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
