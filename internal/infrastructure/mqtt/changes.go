package mqtt

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/nerrad567/pawl-core/internal/notify"
)

// asyncPublisher is the part of Client the feed needs.
type asyncPublisher interface {
	PublishAsync(topic string, payload []byte, qos byte, retained bool) error
}

// ChangeMessage is published on pawl/changes/{kind}.
type ChangeMessage struct {
	Epoch     uint64 `json:"epoch"`
	Kind      string `json:"kind"`
	Op        string `json:"op"`
	Timestamp string `json:"timestamp"`
}

// ChangeFeed forwards bus events to the broker.
//
// Handle runs on the goroutine committing the mutation, so it never waits
// for the broker.
type ChangeFeed struct {
	pub    asyncPublisher
	qos    byte
	logger Logger
}

// NewChangeFeed creates a feed publishing through client at qos.
func NewChangeFeed(client *Client, qos byte) *ChangeFeed {
	f := &ChangeFeed{pub: client, qos: qos}
	f.logger = client.getLogger()
	return f
}

// SetLogger sets the logger for dropped events.
func (f *ChangeFeed) SetLogger(logger Logger) {
	f.logger = logger
}

// Handle is a notify.Listener.
func (f *ChangeFeed) Handle(ev notify.Event) {
	msg := ChangeMessage{
		Epoch:     ev.Epoch,
		Kind:      ev.Kind,
		Op:        ev.Op,
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		f.warn("encoding change event failed", "error", err)
		return
	}

	if err := f.pub.PublishAsync(Topics{}.Changes(ev.Kind), payload, f.qos, false); err != nil {
		f.warn("change event not published", "kind", ev.Kind, "epoch", ev.Epoch, "error", err)
		return
	}
	f.PublishEpoch(ev.Epoch)
}

// PublishEpoch replaces the retained epoch. It is also called on reconnect
// so the retained value catches up with events dropped while offline.
func (f *ChangeFeed) PublishEpoch(epoch uint64) {
	err := f.pub.PublishAsync(Topics{}.Epoch(), []byte(strconv.FormatUint(epoch, 10)), f.qos, true)
	if err != nil {
		f.warn("epoch not published", "epoch", epoch, "error", err)
	}
}

func (f *ChangeFeed) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
