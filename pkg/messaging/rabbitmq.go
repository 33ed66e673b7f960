package messaging

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tddproof/tddproof-backend/pkg/config"
	"github.com/tddproof/tddproof-backend/pkg/logger"
)

// maxReconnectDelay caps the doubling delay between reconnect attempts
const maxReconnectDelay = 30 * time.Second

// QueueBinding is a durable queue and the routing keys it receives
type QueueBinding struct {
	Queue       string
	RoutingKeys []string
}

// Topology is everything the service expects to exist on the broker. It is
// declared on connect and again after every reconnect, so a broker that lost
// its definitions comes back usable.
type Topology struct {
	Exchange        string
	DeadLetter      string
	DeadLetterQueue string
	Queues          []QueueBinding
}

// TwoDDocTopology is the twoddoc.events topic exchange, the twoddoc.dlx
// dead-letter exchange with dlq.<service>, and the given queues.
func TwoDDocTopology(serviceName string, queues ...QueueBinding) Topology {
	return Topology{
		Exchange:        ExchangeTwoDDocEvents,
		DeadLetter:      DeadLetterExchange,
		DeadLetterQueue: "dlq." + serviceName,
		Queues:          queues,
	}
}

// HasQueue reports whether name is one of the topology's queues
func (t Topology) HasQueue(name string) bool {
	for _, q := range t.Queues {
		if q.Queue == name {
			return true
		}
	}
	return false
}

// declarer is the part of *amqp.Channel that declares topology
type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

func (t Topology) declare(ch declarer) error {
	for _, ex := range []string{t.Exchange, t.DeadLetter} {
		if ex == "" {
			continue
		}
		if err := ch.ExchangeDeclare(ex, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", ex, err)
		}
	}

	if t.DeadLetter != "" && t.DeadLetterQueue != "" {
		if _, err := ch.QueueDeclare(t.DeadLetterQueue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", t.DeadLetterQueue, err)
		}
		if err := ch.QueueBind(t.DeadLetterQueue, "#", t.DeadLetter, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s: %w", t.DeadLetterQueue, err)
		}
	}

	for _, q := range t.Queues {
		var args amqp.Table
		if t.DeadLetter != "" {
			args = amqp.Table{"x-dead-letter-exchange": t.DeadLetter}
		}
		if _, err := ch.QueueDeclare(q.Queue, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.Queue, err)
		}
		for _, key := range q.RoutingKeys {
			if err := ch.QueueBind(q.Queue, key, t.Exchange, false, nil); err != nil {
				return fmt.Errorf("failed to bind %s to %s: %w", q.Queue, key, err)
			}
		}
	}
	return nil
}

// RabbitMQ owns the broker connection, its single channel and the topology
// declared on it.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	config     *config.RabbitMQConfig
	name       string
	topology   Topology
	logger     *logger.Logger
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// New connects, names the connection after the service and declares topology
func New(cfg *config.RabbitMQConfig, serviceName string, topology Topology, log *logger.Logger) (*RabbitMQ, error) {
	rmq := &RabbitMQ{
		config:   cfg,
		name:     serviceName,
		topology: topology,
		logger:   log.WithComponent("rabbitmq"),
	}

	if err := rmq.connect(); err != nil {
		return nil, err
	}

	return rmq, nil
}

func (r *RabbitMQ) connect() error {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(r.name)

	conn, err := amqp.DialConfig(r.config.URL, amqp.Config{Properties: props})
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(r.config.PrefetchCount, 0, false); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := r.topology.declare(ch); err != nil {
		conn.Close()
		return err
	}

	r.conn, r.channel = conn, ch
	r.logger.Info().
		Str("exchange", r.topology.Exchange).
		Int("queues", len(r.topology.Queues)).
		Msg("connected to RabbitMQ")
	return nil
}

// Channel returns the current channel
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Exchange is where events are published
func (r *RabbitMQ) Exchange() string {
	return r.topology.Exchange
}

// Topology returns what was declared on the broker
func (r *RabbitMQ) Topology() Topology {
	return r.topology
}

// Close closes the RabbitMQ connection
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close channel")
		}
	}

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}

// Health reports the connection state and how often it was re-established
func (r *RabbitMQ) Health() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := map[string]string{
		"status":     "up",
		"exchange":   r.topology.Exchange,
		"reconnects": strconv.Itoa(r.reconnects),
	}

	if r.conn == nil || r.conn.IsClosed() {
		status["status"] = "down"
		status["error"] = "connection closed"
	}

	return status
}

// Reconnect re-dials with a doubling delay and declares the topology again
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("connection is permanently closed")
	}

	if r.conn != nil && !r.conn.IsClosed() {
		r.conn.Close()
	}

	delay := r.config.ReconnectDelay
	for i := 0; i < r.config.MaxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.logger.Info().Int("attempt", i+1).Msg("attempting to reconnect to RabbitMQ")

		err := r.connect()
		if err == nil {
			r.reconnects++
			return nil
		}

		r.logger.Warn().Err(err).Dur("retry_in", delay).Msg("reconnection attempt failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = backoff(delay)
	}

	return fmt.Errorf("failed to reconnect after %d attempts", r.config.MaxRetries)
}

func backoff(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	return min(2*d, maxReconnectDelay)
}
