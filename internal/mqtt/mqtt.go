package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"weatherstation-server/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

var errStopped = errors.New("subscriber stopped")

// MessageHandler receives the raw payload of every message on the topic.
type MessageHandler func(payload []byte) error

// MQTTSubscriber lets feature modules attach their message handler.
type MQTTSubscriber interface {
	SetMessageHandler(handler MessageHandler)
}

type Subscriber struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	handler   MessageHandler

	stopCh   chan struct{}
	stopOnce sync.Once
}

func (s *Subscriber) SetMessageHandler(handler MessageHandler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Subscriber{
		cfg:    cfg,
		logger: logger.With("component", "mqtt"),
		stopCh: make(chan struct{}),
	}

	clientID := cfg.MQTTClientID
	if clientID == "" {
		clientID = "weatherstation-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		s.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort, "client_id", clientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		s.logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

func brokerURL(cfg config.Config) string {
	return fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort)
}

// Connect establishes the broker connection and subscribes to the configured
// topic. It returns when subscribed, when ctx is done, or on Disconnect.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return errStopped
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return errStopped
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *Subscriber) subscribe() error {
	if !s.IsConnected() {
		return errors.New("mqtt client not connected")
	}

	topic := s.cfg.MQTTTopic
	qos := byte(1) // at least once

	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	if handler == nil {
		s.logger.Warn("no handler for mqtt message", "topic", topic)
		return
	}

	if err := handler(payload); err != nil {
		s.logger.Warn("mqtt message rejected", "topic", topic, "error", err)
	}
}

func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the broker connection. Safe to
// call more than once.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	}
	s.client.Disconnect(250)

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
