// Package notify implements the change notification bus.
//
// The bus is an epoch counter plus a set of parked long-poll waiters. Every
// committed mutation calls Notify, which bumps the epoch by exactly one,
// hands the new epoch to every parked waiter and then informs push
// subscribers (WebSocket hub, MQTT publisher, telemetry).
//
// A client that polls with an epoch older than the current one gets the
// current epoch back at once, so updates missed while disconnected are
// never lost; the client simply refetches.
package notify
