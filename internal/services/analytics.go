package services

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// AnalyticsPublisher pushes settlement events to the analytics pipeline.
// Callers treat every publish as best-effort.
type AnalyticsPublisher interface {
	Publish(event string, payload interface{}) error
	Close() error
}

// NoopAnalytics is used when no AMQP broker is configured.
type NoopAnalytics struct{}

func (NoopAnalytics) Publish(string, interface{}) error { return nil }
func (NoopAnalytics) Close() error                      { return nil }

const analyticsExchange = "casino.events"

// AMQPAnalytics publishes JSON events to a topic exchange.
type AMQPAnalytics struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logrus.Logger
}

func NewAMQPAnalytics(url string, logger *logrus.Logger) (*AMQPAnalytics, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp: %v", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %v", err)
	}

	if err := channel.ExchangeDeclare(analyticsExchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %v", err)
	}

	return &AMQPAnalytics{
		conn:    conn,
		channel: channel,
		logger:  logger,
	}, nil
}

func (a *AMQPAnalytics) Publish(event string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics event: %v", err)
	}

	return a.channel.Publish(analyticsExchange, event, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (a *AMQPAnalytics) Close() error {
	if a.channel != nil {
		a.channel.Close()
	}
	return a.conn.Close()
}
