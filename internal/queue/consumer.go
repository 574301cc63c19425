package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// StartBookingConsumer connects to RabbitMQ, declares the
// seatbooking.confirmed queue (durable) and starts consuming.  Each
// message is appended to logs/seat-bookings.log in a single-line,
// human-friendly format.  The function runs a reconnect loop with
// exponential backoff and keeps running indefinitely; processing
// errors are logged and the offending message rejected so the server
// continues operating.
func StartBookingConsumer(url string, log zerolog.Logger) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("booking-consumer: failed to dial broker")
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, log); err != nil {
			log.Warn().Err(err).Msg("booking-consumer: consume loop ended, reconnecting")
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, log zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("booking-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			log.Warn().Err(err).Msg("booking-consumer: handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "seat-bookings.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	seats := make([]string, 0, len(ev.Seats))
	for _, s := range ev.Seats {
		seats = append(seats, fmt.Sprint(s))
	}
	user := "guest"
	if ev.UserName != nil && *ev.UserName != "" {
		user = *ev.UserName
	}

	line := fmt.Sprintf("[%s] Booking confirmed | order_id=%s | user=%q | method=%s | seats=[%s] | expires_at=%s\n",
		ev.ConfirmedAt, ev.OrderID, user, ev.PaymentMethod, strings.Join(seats, ","), ev.ExpiresAt)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
