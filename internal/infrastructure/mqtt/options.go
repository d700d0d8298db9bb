package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/pawl-core/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout bounds both acknowledgement waits and socket
	// writes, so a stalled broker cannot back up change publishing.
	defaultPublishTimeout = 5 * time.Second

	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second

	maxQoS = 2
)

// Status values published on pawl/system/status.
const (
	statusOnline  = "online"
	statusOffline = "offline"

	reasonUnexpected = "unexpected_disconnect"
	reasonShutdown   = "graceful_shutdown"
)

// statusMessage is the retained presence record watchers read to tell
// whether the change feed is live.
type statusMessage struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func statusPayload(status, clientID, reason string) []byte {
	payload, _ := json.Marshal(statusMessage{ //nolint:errcheck // string fields only
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return payload
}

func buildOnlinePayload(clientID string) []byte {
	return statusPayload(statusOnline, clientID, "")
}

func buildOfflinePayload(clientID string) []byte {
	return statusPayload(statusOffline, clientID, reasonShutdown)
}

// brokerURL renders the broker address, ssl:// when TLS is on.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// buildClientOptions configures paho for a publish-only change feed.
//
// Pawl never subscribes, so there is nothing to resume after a reconnect and
// a clean session is always used. Ordering stays on: a change message must
// reach the broker before the retained epoch that follows it.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetResumeSubs(false)
	opts.SetOrderMatters(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWriteTimeout(defaultPublishTimeout)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	return opts
}

// configureLWT registers the retained offline status the broker publishes
// if Pawl drops off without a clean Close.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetBinaryWill(Topics{}.SystemStatus(), statusPayload(statusOffline, clientID, reasonUnexpected), 1, true)
}
