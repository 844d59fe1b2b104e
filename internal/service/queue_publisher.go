package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/tiffinbox/tiffin-service/internal/queue"
)

// EventPublisher delivers ledger events after their transaction commits.
// Publishing is best effort: callers log failures and never roll back.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.LedgerEvent) error
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.LedgerEvent) error { return nil }

// AMQPPublisher publishes to the ledger.events queue.  Each call dials its
// own connection so a broker outage never leaves a stale channel behind.
type AMQPPublisher struct {
    URL string
    Log logrus.FieldLogger
}

// Publish marshals ev and sends it as a persistent message to the default
// exchange.  Any error is logged and returned so the caller can choose to
// ignore it.
func (p AMQPPublisher) Publish(ctx context.Context, ev queue.LedgerEvent) error {
    log := p.Log.WithField("event", ev.Type)
    conn, err := amqp.DialConfig(p.URL, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(dialTimeout(ctx)),
    })
    if err != nil {
        log.WithError(err).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.WithError(err).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(queue.LedgerQueue, true, false, false, false, nil); err != nil {
        log.WithError(err).Warn("rabbitmq: queue declare failed")
        return err
    }

    if ev.OccurredAt == "" {
        ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue.LedgerQueue, false, false, pub); err != nil {
        log.WithError(err).Warn("rabbitmq: publish failed")
        return err
    }
    return nil
}

// maxDialTimeout caps the connect and handshake of one publish.
const maxDialTimeout = 2 * time.Second

// dialTimeout is the time left before ctx expires, capped at
// maxDialTimeout.
func dialTimeout(ctx context.Context) time.Duration {
    d := maxDialTimeout
    if deadline, ok := ctx.Deadline(); ok {
        if left := time.Until(deadline); left < d {
            d = left
        }
    }
    if d < 10*time.Millisecond {
        d = 10 * time.Millisecond
    }
    return d
}

// publish sends ev after a commit.  It runs detached from the request's
// cancellation with its own short deadline, and failures are only logged.
func publish(ctx context.Context, p EventPublisher, log logrus.FieldLogger, ev queue.LedgerEvent) {
    if p == nil {
        return
    }
    if ev.OccurredAt == "" {
        ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
    defer cancel()
    if err := p.Publish(ctx, ev); err != nil {
        log.WithError(err).WithField("event", ev.Type).Warn("ledger event not published")
    }
}
