package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/ailabben/dashboard-api/internal/model"
)

// Sink stores a consumed entry; the download log repository is one.
type Sink interface {
	Record(ctx context.Context, e model.DownloadLogEntry) error
}

// errUndecodable marks a message that will never be processable.
var errUndecodable = errors.New("undecodable delivery event")

// StartDeliveryConsumer connects to RabbitMQ, declares the queue (durable)
// and writes every message to sink.  It reconnects with exponential
// backoff until ctx is cancelled, then returns ctx.Err().
func StartDeliveryConsumer(ctx context.Context, url, queue string, sink Sink) error {
	if queue == "" {
		queue = DefaultQueue
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("delivery-consumer: dial failed")
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, queue, sink)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("delivery-consumer: consume loop ended, reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, sink Sink) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("delivery-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info().Str("queue", queue).Msg("delivery-consumer: consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			err := handleMessage(ctx, d.Body, sink)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, errUndecodable):
				log.Error().Err(err).Msg("delivery-consumer: dropping message")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			default:
				// One retry for sink failures; a redelivered message is dropped.
				log.Warn().Err(err).Bool("redelivered", d.Redelivered).Msg("delivery-consumer: sink failed")
				_ = d.Nack(false, !d.Redelivered)
			}
		}
	}
}

func handleMessage(ctx context.Context, body []byte, sink Sink) error {
	var ev DeliveryEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errUndecodable, err)
	}
	if ev.Version != eventVersion || ev.DocumentID == "" || !ev.ActionType.Valid() {
		return fmt.Errorf("%w: version=%d document=%q action=%q", errUndecodable, ev.Version, ev.DocumentID, ev.ActionType)
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sink.Record(wctx, ev.Entry()); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
