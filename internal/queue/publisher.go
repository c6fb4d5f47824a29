package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/ailabben/dashboard-api/internal/model"
)

// Publisher publishes audit entries to a durable queue.  The connection
// is opened on first use and reopened after the broker drops it, so a
// broker that is down at startup does not stop the server.
type Publisher struct {
	url   string
	queue string
	dial  func(ctx context.Context, network, addr string) (net.Conn, error)

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for queue on the broker at url.
func NewPublisher(url, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	d := &net.Dialer{Timeout: 30 * time.Second}
	return &Publisher{url: url, queue: queue, dial: d.DialContext}
}

// Record publishes e as a persistent JSON message.  It satisfies the
// audit recorder contract, so the Auditor can use it in place of the
// database sink.  Connecting honours ctx, and a call that waited for the
// lock past its deadline returns without touching the broker.
func (p *Publisher) Record(ctx context.Context, e model.DownloadLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.DownloadedAt.IsZero() {
		e.DownloadedAt = time.Now().UTC()
	}
	body, err := json.Marshal(EventFromEntry(e))
	if err != nil {
		return fmt.Errorf("marshal delivery event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish delivery event: %w", err)
	}
	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    e.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish delivery event: %w", err)
	}
	return nil
}

// channel returns an open channel, dialing when needed.  Caller holds mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			c, err := p.dial(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// Bounds the AMQP handshake; the library clears it once the
			// connection is open.
			if dl, ok := ctx.Deadline(); ok {
				if err := c.SetDeadline(dl); err != nil {
					_ = c.Close()
					return nil, err
				}
			}
			return c, nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	log.Debug().Str("queue", p.queue).Msg("rabbitmq: publisher connected")
	return ch, nil
}

// reset drops the current connection.  Caller holds mu.
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
