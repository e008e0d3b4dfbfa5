// Package event 把进度状态迁移发布到 RabbitMQ，供成就、通知等下游服务订阅。
package event

import (
	"context"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Publisher interface {
	PublishProgressEvent(ctx context.Context, event *model.ProgressEvent) error
	Close() error
}

type EventPublisher struct {
	mu           sync.Mutex
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	enabled      bool
}

// NewEventPublisher URI 为空时返回一个禁用的发布器，所有事件直接丢弃
func NewEventPublisher(rabbitURI, exchangeName string) (*EventPublisher, error) {
	if rabbitURI == "" {
		logger.Log.Warn("RabbitMQ URI is empty, progress event publishing is disabled")
		return &EventPublisher{enabled: false}, nil
	}
	if exchangeName == "" {
		exchangeName = "progress.events"
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		enabled:      true,
	}, nil
}

func (p *EventPublisher) Enabled() bool {
	return p.enabled
}

func (p *EventPublisher) PublishProgressEvent(ctx context.Context, event *model.ProgressEvent) error {
	if !p.enabled {
		logger.Log.Debug("Event publishing is disabled, skipping event",
			zap.String("eventType", string(event.EventType)))
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp091 的 Channel 不保证并发安全
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName,          // exchange
		string(event.EventType), // routing key
		false,                   // mandatory
		false,                   // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	logger.Log.Debug("Published progress event",
		zap.String("eventType", string(event.EventType)),
		zap.String("learnerID", event.LearnerID))
	return nil
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			logger.Log.Error("Error closing RabbitMQ channel", zap.Error(err))
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}
	return nil
}

// MockPublisher 在内存中记录事件，用于测试
type MockPublisher struct {
	mu     sync.Mutex
	Events []model.ProgressEvent
	Err    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Events: make([]model.ProgressEvent, 0)}
}

func (m *MockPublisher) PublishProgressEvent(ctx context.Context, event *model.ProgressEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, *event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

func (m *MockPublisher) GetEvents() []model.ProgressEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ProgressEvent(nil), m.Events...)
}

func (m *MockPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = make([]model.ProgressEvent, 0)
}
