package mqtt

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"weatherstation-server/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		MQTTBroker: "127.0.0.1",
		MQTTPort:   1,
		MQTTTopic:  "weather/measurements",
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := config.Config{MQTTBroker: "mosquitto", MQTTPort: 1884}
	if got := brokerURL(cfg); got != "tcp://mosquitto:1884" {
		t.Errorf("brokerURL = %q", got)
	}
}

func TestHandleMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewSubscriber(testConfig(), logger)

	t.Run("without handler", func(t *testing.T) {
		s.handleMessage("weather/measurements", []byte(`{}`))
		if !strings.Contains(buf.String(), "no handler for mqtt message") {
			t.Errorf("log = %q; want missing handler warning", buf.String())
		}
	})

	t.Run("passes payload through", func(t *testing.T) {
		var got []byte
		s.SetMessageHandler(func(payload []byte) error {
			got = payload
			return nil
		})
		s.handleMessage("weather/measurements", []byte(`{"timestamp":"t"}`))
		if string(got) != `{"timestamp":"t"}` {
			t.Errorf("payload = %q", got)
		}
	})

	t.Run("logs handler errors", func(t *testing.T) {
		buf.Reset()
		s.SetMessageHandler(func([]byte) error { return errors.New("Missing required field: humidity") })
		s.handleMessage("weather/measurements", []byte(`{}`))
		if !strings.Contains(buf.String(), "Missing required field: humidity") {
			t.Errorf("log = %q; want handler error", buf.String())
		}
	})
}

func TestConnect_AfterDisconnect(t *testing.T) {
	s := NewSubscriber(testConfig(), nil)
	s.Disconnect()
	s.Disconnect()

	if err := s.Connect(context.Background()); !errors.Is(err, errStopped) {
		t.Errorf("Connect after Disconnect = %v; want errStopped", err)
	}
}

func TestConnect_ContextCancelled(t *testing.T) {
	s := NewSubscriber(testConfig(), nil)
	t.Cleanup(s.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// Connect retry keeps the token pending while nothing listens on port 1.
	err := s.Connect(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Connect = %v; want deadline exceeded", err)
	}
	if s.IsConnected() {
		t.Error("IsConnected = true; want false")
	}
}
