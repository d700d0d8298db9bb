package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/pawl-core/internal/infrastructure/config"
	"github.com/nerrad567/pawl-core/internal/notify"
)

// =============================================================================
// Client Tests (no broker required)
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}
	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "pawl/epoch", []byte("x"), 3, ErrInvalidQoS},
		{"payload too large", "pawl/epoch", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "pawl/epoch", []byte("1"), 1, ErrNotConnected},
		{"nil payload not connected", "pawl/epoch", nil, 0, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
			if err := client.PublishAsync(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("PublishAsync() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Changes", Topics{}.Changes("device"), "pawl/changes/device"},
		{"AllChanges", Topics{}.AllChanges(), "pawl/changes/#"},
		{"Epoch", Topics{}.Epoch(), "pawl/epoch"},
		{"SystemStatus", Topics{}.SystemStatus(), "pawl/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    []byte
		wantStatus string
		wantReason string
	}{
		{"online", buildOnlinePayload("pawl-core"), statusOnline, ""},
		{"offline", buildOfflinePayload("pawl-core"), statusOffline, reasonShutdown},
		{"will", statusPayload(statusOffline, "pawl-core", reasonUnexpected), statusOffline, reasonUnexpected},
		{"quoted client id", buildOnlinePayload(`pawl "core"`), statusOnline, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg statusMessage
			if err := json.Unmarshal(tt.payload, &msg); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if msg.Status != tt.wantStatus || msg.Reason != tt.wantReason || msg.Timestamp == "" {
				t.Errorf("payload = %+v", msg)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 8883, TLS: true, ClientID: "pawl-core"},
		Auth:   config.MQTTAuthConfig{Username: "pawl", Password: "pw"},
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("Servers = %v, want ssl://broker.local:8883", opts.Servers)
	}
	if opts.ClientID != "pawl-core" || opts.Username != "pawl" {
		t.Errorf("ClientID = %q, Username = %q", opts.ClientID, opts.Username)
	}
	if !opts.CleanSession || opts.ResumeSubs {
		t.Error("publish-only client should use a clean session without resumed subscriptions")
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tls.VersionTLS12 {
		t.Error("TLS config should require TLS 1.2")
	}
	if !opts.WillEnabled || opts.WillTopic != "pawl/system/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}

func TestBrokerURL_Plain(t *testing.T) {
	cfg := config.MQTTConfig{Broker: config.MQTTBrokerConfig{Host: "localhost", Port: 1883}}
	if got := brokerURL(cfg); got != "tcp://localhost:1883" {
		t.Errorf("brokerURL() = %q, want tcp://localhost:1883", got)
	}
}

// =============================================================================
// ChangeFeed Tests
// =============================================================================

type published struct {
	topic    string
	payload  string
	qos      byte
	retained bool
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) PublishAsync(topic string, payload []byte, qos byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic, string(payload), qos, retained})
	return nil
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Error(msg string, _ ...any) { l.Warn(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestChangeFeed_PublishesEventAndEpoch(t *testing.T) {
	pub := &fakePublisher{}
	feed := &ChangeFeed{pub: pub, qos: 1}

	feed.Handle(notify.Event{Epoch: 7, Kind: "device", Op: "add", Timestamp: time.Now()})

	if len(pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.msgs))
	}

	change := pub.msgs[0]
	if change.topic != "pawl/changes/device" || change.retained || change.qos != 1 {
		t.Errorf("change message = %+v", change)
	}
	var msg ChangeMessage
	if err := json.Unmarshal([]byte(change.payload), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Epoch != 7 || msg.Kind != "device" || msg.Op != "add" || msg.Timestamp == "" {
		t.Errorf("payload = %+v", msg)
	}

	epoch := pub.msgs[1]
	if epoch.topic != "pawl/epoch" || !epoch.retained || epoch.payload != "7" {
		t.Errorf("epoch message = %+v", epoch)
	}
}

func TestChangeFeed_NoSecretsInPayload(t *testing.T) {
	pub := &fakePublisher{}
	feed := &ChangeFeed{pub: pub, qos: 0}

	feed.Handle(notify.Event{Epoch: 1, Kind: "user", Op: "edit", Timestamp: time.Now()})

	for _, m := range pub.msgs {
		if strings.Contains(m.payload, "passhash") || strings.Contains(m.payload, "key\"") {
			t.Errorf("payload leaks record fields: %s", m.payload)
		}
	}
}

func TestChangeFeed_DisconnectedLogsAndSkipsEpoch(t *testing.T) {
	pub := &fakePublisher{err: ErrNotConnected}
	logger := &recordingLogger{}
	feed := &ChangeFeed{pub: pub, qos: 1}
	feed.SetLogger(logger)

	feed.Handle(notify.Event{Epoch: 3, Kind: "policy", Op: "put", Timestamp: time.Now()})

	if len(logger.warns) != 1 {
		t.Errorf("warnings = %v, want exactly one", logger.warns)
	}
}

func TestChangeFeed_AsBusListener(t *testing.T) {
	pub := &fakePublisher{}
	feed := &ChangeFeed{pub: pub, qos: 1}

	bus := notify.New()
	bus.Subscribe(feed.Handle)
	bus.Notify("user", "add")
	bus.Notify("user", "remove")

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.msgs) != 4 {
		t.Fatalf("published %d messages, want 4", len(pub.msgs))
	}
	if pub.msgs[3].payload != "2" {
		t.Errorf("last retained epoch = %q, want 2", pub.msgs[3].payload)
	}
}
