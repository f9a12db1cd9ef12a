package relay

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	EventsExchange = "relaypay.events"
	BridgeExchange = "relaypay.bridge"
)

// Message is one broker delivery.
type Message struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]any
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// LogPublisher only logs deliveries; it is used when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("relay.publisher")}
}

func (p *LogPublisher) Publish(ctx context.Context, msg Message) error {
	p.log.Info("publish skipped, no broker configured",
		zap.String("exchange", msg.Exchange),
		zap.String("routing_key", msg.RoutingKey),
		zap.Int("bytes", len(msg.Body)),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// AMQPPublisher publishes to durable topic exchanges and reopens its channel
// once when a publish fails.
type AMQPPublisher struct {
	log *zap.Logger

	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	declared map[string]bool
}

func NewAMQPPublisher(rawURL string, log *zap.Logger) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{
		log:      log.Named("relay.publisher"),
		conn:     conn,
		channel:  ch,
		declared: map[string]bool{},
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.publishLocked(ctx, msg)
	if err == nil {
		return nil
	}

	p.log.Warn("publish failed, reopening channel",
		zap.String("exchange", msg.Exchange),
		zap.String("routing_key", msg.RoutingKey),
		zap.Error(err),
	)
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return errors.Join(err, chErr)
	}
	p.channel = ch
	p.declared = map[string]bool{}
	return p.publishLocked(ctx, msg)
}

func (p *AMQPPublisher) publishLocked(ctx context.Context, msg Message) error {
	if !p.declared[msg.Exchange] {
		if err := p.channel.ExchangeDeclare(msg.Exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
		p.declared[msg.Exchange] = true
	}

	return p.channel.PublishWithContext(ctx, msg.Exchange, msg.RoutingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ulid.Make().String(),
		Timestamp:    time.Now(),
		Headers:      amqp091.Table(msg.Headers),
		Body:         msg.Body,
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.channel != nil {
		err = errors.Join(err, p.channel.Close())
	}
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
