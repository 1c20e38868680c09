package flux

import (
	"context"

	"github.com/goliatone/go-fluxmodels/pkg/activity"
)

// activityListeners forwards lifecycle events of every state to the activity
// emitter. Emission failures are logged, never returned to the writer.
func (r *Runtime) activityListeners() []Registration {
	if !r.emitter.Enabled() {
		return nil
	}
	return []Registration{
		OnChange.Handler(func(_ any, args ChangeArgs) error {
			input := stateEventInput(Instance(args.State))
			input.Property = args.PropName
			input.OldValue = args.PrevValue
			input.NewValue = args.NewValue
			r.emitActivity(activity.BuildStateChangedEvent(input))
			return nil
		}),
		OnError.Handler(func(_ any, args ErrorArgs) error {
			input := stateEventInput(Instance(args.State))
			input.Property = args.PropName
			input.Place = string(args.Place)
			input.Err = args.Err
			r.emitActivity(activity.BuildStateFailedEvent(input))
			return nil
		}),
		OnMount.Handler(func(_ any, proxy *Proxy) error {
			r.emitActivity(activity.BuildProxyMountedEvent(stateEventInput(Instance(proxy))))
			return nil
		}),
		OnUnmount.Handler(func(_ any, proxy *Proxy) error {
			r.emitActivity(activity.BuildProxyUnmountedEvent(stateEventInput(Instance(proxy))))
			return nil
		}),
	}
}

func (r *Runtime) attachActivity(m *StateManager) {
	for _, registration := range r.listeners {
		registration.Register(m.events)
	}
}

func (r *Runtime) emitStateCreated(m *StateManager) {
	if !r.emitter.Emits(activity.VerbStateCreated) {
		return
	}
	r.emitActivity(activity.BuildStateCreatedEvent(stateEventInput(m)))
}

func (r *Runtime) emitActivity(event activity.Event) {
	if err := r.emitter.Emit(context.Background(), event); err != nil {
		r.logger.Warn("flux: activity emission failed", "verb", event.Verb, "object_id", event.ObjectID, "error", err)
	}
}

func stateEventInput(m *StateManager) activity.StateEventInput {
	if m == nil {
		return activity.StateEventInput{}
	}
	input := activity.StateEventInput{
		Handle: m.state.handle.String(),
		Model:  m.model.Name(),
	}
	if _, ok := m.key.(defaultKey); !ok {
		input.Key = formatKey(m.key)
	}
	return input
}
