// Package influxdb records Pawl Core audit telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched non-blocking writes and health monitoring.
//
// # Measurements
//
//   - pawl_logins: one point per login attempt, tagged by outcome. The
//     username tag is only set on success so failed guesses cannot inflate
//     series cardinality.
//   - pawl_mutations: one point per committed record mutation, tagged by
//     kind and operation, with the resulting epoch as a field.
//
// No credential, hash or record body is ever written.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	bus.Subscribe(client.RecordMutation)
//	authService.SetLoginRecorder(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package influxdb
