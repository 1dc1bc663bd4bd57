package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JonMunkholm/retailetl/internal/core"
)

// Publisher is the part of *amqp.Channel the reject stream needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPOptions configures the broker connection.
type AMQPOptions struct {
	URL      string
	Exchange string
	Queue    string
}

// RejectMessage is the body published for every rejected line. Raw carries
// the original line bytes, base64 encoded, so invalid UTF-8 survives.
type RejectMessage struct {
	SessionID  string `json:"session_id"`
	Source     string `json:"source"`
	LineNumber int    `json:"line"`
	Kind       string `json:"kind"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
	Raw        []byte `json:"raw"`
}

// RejectPublisher streams rejects to a durable queue so they can be
// inspected or replayed by another consumer.
type RejectPublisher struct {
	pub      Publisher
	exchange string
	key      string
	closer   func() error
}

// NewRejectPublisher publishes through pub to exchange with routing key.
func NewRejectPublisher(pub Publisher, exchange, key string) *RejectPublisher {
	return &RejectPublisher{pub: pub, exchange: exchange, key: key}
}

// DialRejectPublisher connects, declares the queue and returns a publisher
// that owns the connection.
func DialRejectPublisher(opts AMQPOptions) (*RejectPublisher, error) {
	conn, err := amqp.Dial(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		opts.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	key := opts.Queue
	if opts.Exchange != "" {
		if err := ch.QueueBind(opts.Queue, opts.Queue, opts.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("bind queue: %w", err)
		}
	}

	p := NewRejectPublisher(ch, opts.Exchange, key)
	p.closer = func() error {
		ch.Close()
		return conn.Close()
	}
	return p, nil
}

func (p *RejectPublisher) Name() string { return "rabbitmq" }

func (p *RejectPublisher) Export(ctx context.Context, snap *core.Snapshot) (Summary, error) {
	sum := Summary{Rows: map[string]int{}}
	for _, r := range snap.Rejects {
		body, err := json.Marshal(RejectMessage{
			SessionID:  snap.SessionID,
			Source:     r.Source,
			LineNumber: r.LineNumber,
			Kind:       string(r.Kind),
			Code:       r.Code,
			Reason:     r.Reason,
			Raw:        r.Line,
		})
		if err != nil {
			return sum, fmt.Errorf("encode reject: %w", err)
		}

		err = p.pub.PublishWithContext(ctx, p.exchange, p.key, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         "reject",
			Headers:      amqp.Table{"session_id": snap.SessionID, "code": r.Code},
			Body:         body,
		})
		if err != nil {
			return sum, fmt.Errorf("publish reject %s:%d: %w", r.Source, r.LineNumber, err)
		}
		sum.Rows[p.key]++
	}
	return sum, nil
}

func (p *RejectPublisher) Close(context.Context) error {
	if p.closer != nil {
		return p.closer()
	}
	return nil
}
