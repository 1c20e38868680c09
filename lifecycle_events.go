package flux

import "github.com/goliatone/go-fluxmodels/schema"

// ChangeArgs describes a field change observed on a state.
type ChangeArgs struct {
	State     *State
	Target    any
	PropName  string
	PrevValue any
	NewValue  any
	Action    schema.Action
}

// ErrorArgs describes a field error reported by a state.
type ErrorArgs struct {
	State    *State
	Target   any
	PropName string
	Err      error
	Place    schema.Place
}

var (
	// OnInit fires once a state is registered in its store.
	OnInit = NewEvent[*State]("OnInit")
	// OnMount fires after a proxy and its injected proxies are mounted.
	OnMount = NewEvent[*Proxy]("OnMount")
	// OnUnmount fires after a proxy and its injected proxies are unmounted.
	OnUnmount = NewEvent[*Proxy]("OnUnmount")
	// OnChange fires when a set or deserialize changes a field's identity.
	OnChange = NewEvent[ChangeArgs]("OnChange")
	// OnError fires before a field error is returned to the caller.
	OnError = NewEvent[ErrorArgs]("OnError")
)
