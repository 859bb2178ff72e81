package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

// confirmation resolves once the broker acks or nacks one delivery.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// confirmChannel is the slice of *amqp.Channel the publisher needs.
type confirmChannel interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
	Close() error
}

type amqpChannel struct {
	ch *amqp.Channel
}

func (a amqpChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := a.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		// channel is not in confirm mode
		return acked{}, nil
	}
	return dc, nil
}

func (a amqpChannel) Close() error { return a.ch.Close() }

type acked struct{}

func (acked) WaitContext(context.Context) (bool, error) { return true, nil }

// RabbitPublisher publishes envelopes to a durable topic exchange with the
// event type as routing key. Each publish waits for the confirm carrying its
// own delivery tag.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       confirmChannel
	exchange string
}

// NewRabbitPublisher dials url and declares exchange.
func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	return &RabbitPublisher{conn: conn, ch: amqpChannel{ch: ch}, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, evt document.Document) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	routingKey := evt.String("eventType", "portal.event")

	msg := amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    evt.String("eventId", ""),
		Timestamp:    time.Now().UTC(),
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	confirm, err := p.ch.publish(ctx, p.exchange, routingKey, msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	ack, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	if !ack {
		return fmt.Errorf("publish %s: broker nacked %s", routingKey, msg.MessageId)
	}
	return nil
}

// Close shuts down the channel and connection.
func (p *RabbitPublisher) Close() error {
	chErr := p.ch.Close()
	if chErr != nil && errors.Is(chErr, amqp.ErrClosed) {
		chErr = nil
	}
	if p.conn == nil {
		return chErr
	}
	if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) && chErr == nil {
		return err
	}
	return chErr
}
