package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"transferbook/internal/domain/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const RoutingBookingCreated = "booking.created"

// BookingCreated is published once per confirmed booking.
type BookingCreated struct {
	BookingID  string    `json:"booking_id"`
	SessionID  string    `json:"session_id"`
	VehicleID  string    `json:"vehicle_id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Pickup     string    `json:"pickup"`
	Dropoff    string    `json:"dropoff"`
	Stops      int       `json:"stops"`
	Passengers int       `json:"passengers"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewBookingCreated(sessionID string, r models.BookingReceipt) BookingCreated {
	evt := BookingCreated{
		BookingID:  r.BookingID,
		SessionID:  sessionID,
		Stops:      len(r.Trip.Stops),
		Passengers: r.Trip.Passengers,
		Date:       r.Trip.Date,
		Time:       r.Trip.Time,
		CreatedAt:  r.CreatedAt.UTC(),
	}
	if r.Trip.Pickup != nil {
		evt.Pickup = r.Trip.Pickup.Address
	}
	if r.Trip.Dropoff != nil {
		evt.Dropoff = r.Trip.Dropoff.Address
	}
	if v := r.Trip.SelectedVehicle; v != nil {
		evt.VehicleID = v.ID
		evt.Amount = v.Price.Amount
		evt.Currency = v.Price.Currency
	}
	return evt
}

type Publisher interface {
	PublishBookingCreated(ctx context.Context, evt BookingCreated) error
	Close()
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishBookingCreated(context.Context, BookingCreated) error { return nil }
func (NopPublisher) Close() {}

// RabbitPublisher publishes JSON events to a durable topic exchange.
type RabbitPublisher struct {
	url      string
	exchange string
	log      *zap.Logger

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// DialRabbit connects with a short backoff and declares the exchange.
func DialRabbit(ctx context.Context, url, exchange string, attempts int, log *zap.Logger) (*RabbitPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if attempts < 1 {
		attempts = 1
	}
	p := &RabbitPublisher{url: url, exchange: exchange, log: log}

	delay := 500 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = p.connect(); lastErr == nil {
			log.Info("rabbitmq connected", zap.String("exchange", exchange), zap.Int("attempt", attempt))
			return p, nil
		}
		log.Warn("rabbitmq connect failed", zap.Int("attempt", attempt), zap.Error(lastErr))
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", attempts, lastErr)
}

func (p *RabbitPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.mu.Lock()
	p.conn = conn
	p.ch = ch
	p.mu.Unlock()
	return nil
}

// Publish sends v as a persistent JSON message under routingKey.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", routingKey, err)
	}

	p.mu.RLock()
	ch := p.ch
	p.mu.RUnlock()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(publishCtx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}

func (p *RabbitPublisher) PublishBookingCreated(ctx context.Context, evt BookingCreated) error {
	if err := p.Publish(ctx, RoutingBookingCreated, evt); err != nil {
		return err
	}
	p.log.Info("event published",
		zap.String("routing_key", RoutingBookingCreated),
		zap.String("booking_id", evt.BookingID),
	)
	return nil
}

func (p *RabbitPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch = nil
	p.conn = nil
}
