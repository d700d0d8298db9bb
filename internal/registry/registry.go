package registry

import (
	"context"

	"github.com/nerrad567/pawl-core/internal/store"
)

// Registry bundles the four record mirrors.
type Registry struct {
	Users   *Mirror[User]
	Devices *Mirror[Device]
	APIKeys *Mirror[APIKey]
	Policy  *Mirror[Policy]
}

// New creates empty mirrors over durable. A nil notifier discards events.
// Call LoadAll before serving.
func New(durable Durable, notifier Notifier) *Registry {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Registry{
		Users:   newMirror[User](KindUser, store.TableUsers, durable, notifier),
		Devices: newMirror[Device](KindDevice, store.TableDevices, durable, notifier),
		APIKeys: newMirror[APIKey](KindAPIKey, store.TableAPIKeys, durable, notifier),
		Policy:  newMirror[Policy](KindPolicy, store.TablePolicy, durable, notifier),
	}
}

// SetLogger sets the logger for every mirror. Call before LoadAll.
func (r *Registry) SetLogger(logger Logger) {
	r.Users.logger = logger
	r.Devices.logger = logger
	r.APIKeys.logger = logger
	r.Policy.logger = logger
}

// LoadAll populates every mirror from its table. Any failure is fatal to
// startup: the process must not serve from a partially loaded registry.
func (r *Registry) LoadAll(ctx context.Context) error {
	if err := r.Users.Load(ctx); err != nil {
		return err
	}
	if err := r.Devices.Load(ctx); err != nil {
		return err
	}
	if err := r.APIKeys.Load(ctx); err != nil {
		return err
	}
	return r.Policy.Load(ctx)
}

// CurrentPolicy returns the policy body, or "" when none has been set.
func (r *Registry) CurrentPolicy() string {
	p, _ := r.Policy.Get(PolicyRowKey)
	return p.Body
}
