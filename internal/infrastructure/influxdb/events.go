package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/pawl-core/internal/notify"
)

// Measurement names.
const (
	MeasurementLogins    = "pawl_logins"
	MeasurementMutations = "pawl_mutations"
)

// RecordLogin writes one login attempt. The username is tagged only on
// success.
func (c *Client) RecordLogin(username string, success bool) {
	tags := map[string]string{"outcome": "failure"}
	if success {
		tags["outcome"] = "success"
		tags["username"] = username
	}
	c.writePoint(MeasurementLogins, tags, map[string]any{"count": 1}, time.Now())
}

// RecordMutation is a notify.Listener writing one point per mutation.
func (c *Client) RecordMutation(ev notify.Event) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	c.writePoint(MeasurementMutations,
		map[string]string{"kind": ev.Kind, "op": ev.Op},
		// #nosec G115 -- epochs stay far below MaxInt64
		map[string]any{"epoch": int64(ev.Epoch)},
		ts,
	)
}

// writePoint queues a point on the batched write API. It never blocks on
// the network.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
