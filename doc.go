// Package flux keeps long-lived model states, tracks which of their fields a
// consumer reads and reports changes to those fields.
//
// A Runtime owns the default Store and creates states from models:
//
//	rt := flux.New()
//	counter := flux.NewModel("Counter", flux.Value("count", 0))
//	state, _, err := rt.GetOrCreateState(counter)
//
// A Proxy wraps a state for one consumer. Reads made through it mark fields
// as observed; once mounted, writes to observed fields invoke the mount
// callback. Fields declared with Inject or InjectArray resolve to other
// states, and to nested proxies when read through a proxy, so models can
// reference each other, circularly included. Snapshots freeze a proxy graph
// for rendering.
//
// States, proxies and stores are meant to be driven from a single goroutine.
package flux
