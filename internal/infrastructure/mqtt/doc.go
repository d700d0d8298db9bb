// Package mqtt mirrors Pawl Core record changes onto an MQTT broker.
//
// Ratchet nodes that cannot hold a long poll open subscribe here instead:
// every committed mutation is published to pawl/changes/{kind}, and the
// current epoch is kept retained on pawl/epoch so a node that reconnects
// can tell whether it missed anything. Payloads carry kinds, operations and
// epochs only; nodes fetch records over HTTPS with the API key.
//
// The broker is optional. When it is disabled or unreachable the HTTP
// long poll and WebSocket push are unaffected.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	feed := mqtt.NewChangeFeed(client, byte(cfg.MQTT.QoS))
//	bus.Subscribe(feed.Handle)
//
// # Security Considerations
//
//   - TLS should be enabled outside local development (cfg.Broker.TLS=true)
//   - No credential or record body is ever published
package mqtt
