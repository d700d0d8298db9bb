package registry

// Record kinds, as reported to the notifier.
const (
	KindUser   = "user"
	KindDevice = "device"
	KindAPIKey = "api_key"
	KindPolicy = "policy"
)

// Mutation operations, as reported to the notifier.
const (
	OpAdd    = "add"
	OpEdit   = "edit"
	OpPut    = "put"
	OpRemove = "remove"
)

// Fixed table keys for the singleton kinds. The API key value itself is
// never used as a row key so it cannot be looked up on disk.
const (
	APIKeyRowKey = "api_key"
	PolicyRowKey = "policy"
)

// Record is implemented by every mirrored record type.
type Record interface {
	// RecordKey is the mirror and table key for the record.
	RecordKey() string
}

// User is an operator account.
type User struct {
	Username string `json:"username"`
	Passhash string `json:"passhash"`
}

// RecordKey implements Record.
func (u User) RecordKey() string { return u.Username }

// Public returns the listing projection, which omits the hash.
func (u User) Public() PublicUser { return PublicUser{Username: u.Username} }

// PublicUser is what operators see when listing users.
type PublicUser struct {
	Username string `json:"username"`
}

// Device is a registered Ratchet device and its shared secret.
type Device struct {
	NetworkID string `json:"network_id"`
	Key       string `json:"key"`
}

// RecordKey implements Record.
func (d Device) RecordKey() string { return d.NetworkID }

// Public returns the listing projection, which omits the shared secret.
func (d Device) Public() PublicDevice { return PublicDevice{NetworkID: d.NetworkID} }

// PublicDevice is what operators see when listing devices.
type PublicDevice struct {
	NetworkID string `json:"network_id"`
}

// APIKey is the single key Ratchet nodes present to fetch configuration.
type APIKey struct {
	Key string `json:"api_key"`
}

// RecordKey implements Record. Always APIKeyRowKey.
func (APIKey) RecordKey() string { return APIKeyRowKey }

// Policy is the free-form command policy pushed to Ratchet nodes.
type Policy struct {
	Body string `json:"body"`
}

// RecordKey implements Record. Always PolicyRowKey.
func (Policy) RecordKey() string { return PolicyRowKey }
