package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"talentvault/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageQueue is the broker surface used by the webhook, the outbox relay,
// and the consumers.
type MessageQueue interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
	EnsureExchange(exchangeName, exchangeType string, durable bool) error
	EnsureQueue(queueName string, durable bool) error
	BindQueue(queueName, exchangeName, routingKey string) error
	Close() error
}

var _ MessageQueue = (*RabbitMQ)(nil)

// RabbitMQ provides message queue functionality over a pooled channel set.
type RabbitMQ struct {
	conn         *amqp.Connection
	channelPool  sync.Pool
	exchangeMap  map[string]bool
	queueMap     map[string]bool
	bindingMap   map[string]bool // key format "exchange:queue:routingKey"
	publishMutex sync.Mutex
	cfg          *config.RabbitMQConfig
}

// NewRabbitMQ connects to the broker and primes the channel pool.
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rabbitmq config cannot be nil")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq URL is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq (%s): %w", cfg.URL, err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		exchangeMap: make(map[string]bool),
		queueMap:    make(map[string]bool),
		bindingMap:  make(map[string]bool),
		cfg:         cfg,
	}

	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, errPool := conn.Channel()
			if errPool != nil {
				log.Printf("creating rabbitmq channel failed: %v", errPool)
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("cannot create rabbitmq channel")
	}
	mq.putChannel(testCh)

	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			log.Printf("creating new rabbitmq channel failed: %v", err)
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close closes the broker connection.
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// SetupTopology declares the intake and CRM exchanges, the work queues, and
// their bindings. Safe to call on every startup.
func (r *RabbitMQ) SetupTopology() error {
	if err := r.EnsureExchange(r.cfg.IntakeEventsExchange, "topic", true); err != nil {
		return err
	}
	if err := r.EnsureExchange(r.cfg.CRMEventsExchange, "topic", true); err != nil {
		return err
	}
	if err := r.EnsureQueue(r.cfg.EmailIntakeQueue, true); err != nil {
		return err
	}
	if err := r.EnsureQueue(r.cfg.CRMSyncQueue, true); err != nil {
		return err
	}
	if err := r.BindQueue(r.cfg.EmailIntakeQueue, r.cfg.IntakeEventsExchange, r.cfg.EmailReceivedKey); err != nil {
		return err
	}
	// The CRM sync queue takes every event on the CRM exchange.
	if err := r.BindQueue(r.cfg.CRMSyncQueue, r.cfg.CRMEventsExchange, "crm.#"); err != nil {
		return err
	}
	return nil
}

// EnsureExchange declares an exchange once per process.
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange name cannot be empty")
	}
	if exchangeName == "amq.default" || exchangeName == "default" {
		return fmt.Errorf("cannot declare default exchange %q", exchangeName)
	}

	if _, exists := r.exchangeMap[exchangeName]; exists {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot acquire rabbitmq channel")
	}
	defer r.putChannel(ch)

	err := ch.ExchangeDeclare(
		exchangeName,
		exchangeType,
		durable,
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declaring exchange: %w", err)
	}

	r.exchangeMap[exchangeName] = true
	log.Printf("exchange ensured: %q", exchangeName)
	return nil
}

// EnsureQueue declares a queue, verifying cached entries passively.
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	if _, exists := r.queueMap[queueName]; exists {
		ch := r.getChannel()
		if ch == nil {
			return fmt.Errorf("cannot acquire rabbitmq channel")
		}
		defer r.putChannel(ch)

		_, err := ch.QueueDeclarePassive(
			queueName,
			durable,
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			// The queue vanished or its arguments changed; drop the cache
			// entry so the next call re-declares it.
			delete(r.queueMap, queueName)
			return fmt.Errorf("passive declare of queue %q failed: %w", queueName, err)
		}
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot acquire rabbitmq channel")
	}
	defer r.putChannel(ch)

	_, err := ch.QueueDeclare(
		queueName,
		durable,
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declaring queue: %w", err)
	}

	r.queueMap[queueName] = true
	log.Printf("queue ensured: %s", queueName)
	return nil
}

// BindQueue binds a queue to an exchange once per process.
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	bindingKey := fmt.Sprintf("%s:%s:%s", exchangeName, queueName, routingKey)
	if _, exists := r.bindingMap[bindingKey]; exists {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot acquire rabbitmq channel")
	}
	defer r.putChannel(ch)

	err := ch.QueueBind(
		queueName,
		routingKey,
		exchangeName,
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("binding queue to exchange: %w", err)
	}

	r.bindingMap[bindingKey] = true
	log.Printf("queue %s bound to exchange %s with key %s", queueName, exchangeName, routingKey)
	return nil
}

// PublishMessage publishes raw bytes to an exchange.
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("cannot acquire rabbitmq channel")
	}
	defer r.putChannel(ch)

	var deliveryMode uint8 = 1
	if persistent {
		deliveryMode = 2
	}

	return ch.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: deliveryMode,
			ContentType:  "application/json",
			Body:         message,
			Timestamp:    time.Now(),
		},
	)
}

// PublishJSON serializes data and publishes it.
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("serializing message: %w", err)
	}
	return r.PublishMessage(ctx, exchangeName, routingKey, jsonData, persistent)
}

// StartConsumer consumes queueName with manual acks. The handler returns
// true to ack, false to nack-and-requeue. Close the returned channel to
// stop.
func (r *RabbitMQ) StartConsumer(queueName string, prefetchCount int, handler func([]byte) bool) (chan struct{}, error) {
	stopCh := make(chan struct{})

	ch := r.getChannel()
	if ch == nil {
		return nil, fmt.Errorf("cannot acquire rabbitmq channel")
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		r.putChannel(ch)
		return nil, fmt.Errorf("setting QoS: %w", err)
	}

	deliveries, err := ch.Consume(
		queueName,
		"",    // consumer tag, server-generated
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		r.putChannel(ch)
		return nil, fmt.Errorf("registering consumer: %w", err)
	}

	go func() {
		defer r.putChannel(ch)
		defer log.Printf("rabbitmq consumer stopped: %s", queueName)

		log.Printf("rabbitmq consumer started, queue: %s, prefetch: %d", queueName, prefetchCount)

		for {
			select {
			case <-stopCh:
				return
			case delivery, ok := <-deliveries:
				if !ok {
					log.Println("rabbitmq channel closed")
					return
				}

				if handler(delivery.Body) {
					if err := delivery.Ack(false); err != nil {
						log.Printf("acking message failed: %v", err)
					}
				} else {
					if err := delivery.Nack(false, true); err != nil {
						log.Printf("nacking message failed: %v", err)
					}
				}
			}
		}
	}()

	return stopCh, nil
}
