// Package queue contains the background consumer that listens to the
// ledger.events queue and appends one audit line per event to
// logs/ledger.log.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// LedgerConsumer drains the ledger queue into an append-only log file.
type LedgerConsumer struct {
    URL string
    Dir string
    Log logrus.FieldLogger
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is cancelled.  Dial and channel failures are retried with an
// exponential backoff capped at 30s; a malformed message is rejected
// without requeue so the loop keeps going.
func (c LedgerConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.WithError(err).Warnf("ledger-consumer: dial failed; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.WithError(err).Warn("ledger-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c LedgerConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.WithError(err).Warn("ledger-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(LedgerQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, LedgerQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := c.Handle(d.Body); err != nil {
            c.Log.WithError(err).Error("ledger-consumer: handle message failed")
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// Handle decodes one message body and appends its line to ledger.log.
func (c LedgerConsumer) Handle(body []byte) error {
    var ev LedgerEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }
    dir := c.Dir
    if dir == "" {
        dir = "logs"
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "ledger.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders an event as a single newline terminated line with
// only the fields that are set.
func FormatLine(ev LedgerEvent) string {
    parts := []string{fmt.Sprintf("[%s] %s", ev.OccurredAt, ev.Type)}
    add := func(k string, v uint64) {
        if v != 0 {
            parts = append(parts, fmt.Sprintf("%s=%d", k, v))
        }
    }
    add("user_id", ev.UserID)
    add("actor_id", ev.ActorID)
    add("order_id", ev.OrderID)
    add("team_id", ev.TeamID)
    if ev.Amount != 0 {
        parts = append(parts, fmt.Sprintf("amount=%d", ev.Amount))
    }
    if ev.Count != 0 {
        parts = append(parts, fmt.Sprintf("count=%d", ev.Count))
    }
    if ev.DeliveryDate != "" {
        parts = append(parts, "delivery_date="+ev.DeliveryDate)
    }
    return strings.Join(parts, " | ") + "\n"
}
