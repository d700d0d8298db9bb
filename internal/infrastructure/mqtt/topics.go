package mqtt

import "fmt"

// Topic prefixes.
const (
	// TopicPrefix is the base for all Pawl topics.
	TopicPrefix = "pawl"

	// TopicPrefixChanges is the base for per-kind change events.
	TopicPrefixChanges = TopicPrefix + "/changes"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for Pawl MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Changes("device") // "pawl/changes/device"
type Topics struct{}

// Changes returns the event topic for one record kind.
//
// Example: pawl/changes/device
func (Topics) Changes(kind string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixChanges, kind)
}

// AllChanges returns the wildcard matching every kind's change topic.
func (Topics) AllChanges() string {
	return TopicPrefixChanges + "/#"
}

// Epoch returns the retained topic holding the latest epoch.
func (Topics) Epoch() string {
	return TopicPrefix + "/epoch"
}

// SystemStatus returns the topic for Core online/offline status, also used
// for the Last Will message.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
