package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/pkg/errs"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

// Exchange is the single topic exchange shared by every service.
const Exchange = "social_events"

const handlerTimeout = 30 * time.Second

type binding struct {
	key     string
	handler Handler
}

// Client is the RabbitMQ-backed Bus. The connection is lazily established on
// first use and re-established on loss; registered bindings are replayed
// before publishes resume.
type Client struct {
	url string

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	bindings []binding
	closed   bool

	// rootCtx bounds handler execution across reconnects.
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// NewClient builds a client for the given AMQP URL without connecting.
func NewClient(url string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{url: url, rootCtx: ctx, rootCancel: cancel}
}

// Connect establishes the connection, channel and exchange. Repeated calls
// reuse the existing connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.closed {
		return errs.New(errs.KindBusUnavailable, "bus.Connect", "client closed")
	}
	if c.conn != nil && !c.conn.IsClosed() && c.ch != nil {
		return nil
	}

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return errs.Wrap(errs.KindBusUnavailable, "bus.Connect", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errs.Wrap(errs.KindBusUnavailable, "bus.Connect", err)
	}

	// Topic exchange, non-durable: events are ephemeral signals, not a log.
	if err := ch.ExchangeDeclare(Exchange, "topic", false, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return errs.Wrap(errs.KindBusUnavailable, "bus.Connect", err)
	}

	c.conn = conn
	c.ch = ch

	// Replay every binding registered so far on the fresh channel.
	for _, b := range c.bindings {
		if err := c.bindLocked(b); err != nil {
			logger.Error("rebind subscription failed",
				zap.String("routing_key", b.key), zap.Error(err))
		}
	}

	go c.watch(conn)

	logger.Info("connected to rabbitmq", zap.String("exchange", Exchange))
	return nil
}

// watch re-establishes the connection when the broker drops it.
func (c *Client) watch(conn *amqp.Connection) {
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))
	reason, ok := <-closeCh
	if !ok {
		return // clean shutdown
	}
	logger.Warn("rabbitmq connection lost", zap.String("reason", reason.Error()))

	backoff := time.Second
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.conn = nil
		c.ch = nil
		err := c.connectLocked(context.Background())
		c.mu.Unlock()

		if err == nil {
			return
		}
		logger.Warn("rabbitmq reconnect failed", zap.Error(err))
		time.Sleep(backoff)
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// Publish sends one JSON-serialized event. A failure is returned to the
// caller; the surrounding request decides how to degrade.
func (c *Client) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(errs.KindValidation, "bus.Publish", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(ctx); err != nil {
		return err
	}

	err = c.ch.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		return errs.Wrap(errs.KindBusUnavailable, "bus.Publish", err)
	}
	logger.Info("event published", zap.String("routing_key", routingKey))
	return nil
}

// Subscribe registers a handler for a routing key. The binding survives
// reconnects. Deliveries are consumed one at a time per subscription.
func (c *Client) Subscribe(routingKey string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(context.Background()); err != nil {
		return err
	}

	// Bind first, record after: a fresh dial above replays only previously
	// recorded bindings, so this subscription is bound exactly once.
	b := binding{key: routingKey, handler: handler}
	if err := c.bindLocked(b); err != nil {
		return err
	}
	c.bindings = append(c.bindings, b)
	return nil
}

func (c *Client) bindLocked(b binding) error {
	// Exclusive anonymous auto-delete queue, one per subscription.
	q, err := c.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return errs.Wrap(errs.KindBusUnavailable, "bus.Subscribe", err)
	}
	if err := c.ch.QueueBind(q.Name, b.key, Exchange, false, nil); err != nil {
		return errs.Wrap(errs.KindBusUnavailable, "bus.Subscribe", err)
	}
	deliveries, err := c.ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return errs.Wrap(errs.KindBusUnavailable, "bus.Subscribe", err)
	}

	go c.consume(b, deliveries)

	logger.Info("subscribed to event",
		zap.String("routing_key", b.key), zap.String("queue", q.Name))
	return nil
}

// consume runs the delivery loop for one subscription. Handler failures are
// contained here and the message is acknowledged regardless, so a bad event
// cannot wedge the queue.
func (c *Client) consume(b binding, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		c.dispatch(b, d)
	}
}

func (c *Client) dispatch(b binding, d amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panic",
				zap.String("routing_key", b.key), zap.Any("panic", r))
		}
		if err := d.Ack(false); err != nil {
			logger.Error("ack failed", zap.String("routing_key", b.key), zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(c.rootCtx, handlerTimeout)
	defer cancel()

	if err := b.handler(ctx, d.Body); err != nil {
		logger.Error("event handler failed",
			zap.String("routing_key", b.key), zap.Error(err))
	}
}

// Close tears down the connection. Registered handlers stop receiving.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.rootCancel()

	var err error
	if c.ch != nil {
		err = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		if cerr := c.conn.Close(); err == nil {
			err = cerr
		}
		c.conn = nil
	}
	return err
}
