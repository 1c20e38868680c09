package flux

import (
	"errors"
	"testing"

	"github.com/goliatone/go-fluxmodels/schema"
)

func newCounterProxy(t *testing.T, opts ...ProxyOption) (*Runtime, *State, *Proxy) {
	t.Helper()
	rt := New()
	model := NewModel("Counter",
		Value("count", 0),
		Value("label", ""),
		WithMethod("increment", func(self Accessor, _ ...any) (any, error) {
			current, err := self.Get("count")
			if err != nil {
				return nil, err
			}
			return nil, self.Set("count", current.(int)+1)
		}),
	)
	state, err := rt.CreateState(model)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	proxy, err := CreateProxy(state, opts...)
	if err != nil {
		t.Fatalf("create proxy: %v", err)
	}
	return rt, state, proxy
}

func TestProxyInfersObservedPropertiesFromReads(t *testing.T) {
	_, state, proxy := newCounterProxy(t)

	calls := 0
	if err := proxy.Manager().Mount(func(ChangeArgs) { calls++ }); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if _, err := proxy.Get("count"); err != nil {
		t.Fatalf("get: %v", err)
	}

	if err := proxy.Set("count", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one callback for observed field, got %d", calls)
	}

	if err := state.Set("label", "ignored"); err != nil {
		t.Fatalf("set label: %v", err)
	}
	if calls != 1 {
		t.Fatalf("unread field must not trigger callback, got %d", calls)
	}
}

func TestProxyIdenticalWriteDoesNotNotify(t *testing.T) {
	_, _, proxy := newCounterProxy(t)
	calls := 0
	if err := proxy.Manager().Mount(func(ChangeArgs) { calls++ }); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if _, err := proxy.Get("count"); err != nil {
		t.Fatalf("get: %v", err)
	}
	for range 3 {
		if err := proxy.Set("count", 4); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single callback, got %d", calls)
	}
}

func TestProxyCreationDoesNotObserve(t *testing.T) {
	_, _, proxy := newCounterProxy(t)
	if len(proxy.Manager().ObservableProps()) != 0 {
		t.Fatalf("initial reads must not mark fields observed, got %v", proxy.Manager().ObservableProps())
	}
}

func TestProxyMethodsTrackThroughProxy(t *testing.T) {
	_, state, proxy := newCounterProxy(t)
	if _, err := proxy.Call("increment"); err != nil {
		t.Fatalf("call: %v", err)
	}
	if !proxy.Manager().IsObservable("count") {
		t.Fatalf("method reads through the proxy should mark count observed")
	}
	if value, _ := state.Get("count"); value != 1 {
		t.Fatalf("expected count 1, got %v", value)
	}
}

func TestProxyWithoutAutoResolve(t *testing.T) {
	_, _, proxy := newCounterProxy(t, WithoutAutoResolve())
	if _, err := proxy.Get("count"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if proxy.Manager().IsObservable("count") {
		t.Fatalf("auto resolution disabled, count should not be observed")
	}
	proxy.Manager().SetAutoResolve(true)
	if _, err := proxy.Get("count"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !proxy.Manager().IsObservable("count") {
		t.Fatalf("expected count observed after enabling auto resolution")
	}
}

func TestProxyObserveConfigurations(t *testing.T) {
	tests := []struct {
		name       string
		observe    Observe
		read       string
		observed   []string
		unobserved []string
	}{
		{name: "all", observe: ObserveAll(), observed: []string{"count", "label"}},
		{name: "none", observe: ObserveNone(), read: "count", unobserved: []string{"count", "label"}},
		{name: "names", observe: ObserveNames("label"), observed: []string{"label"}, unobserved: []string{"count"}},
		{name: "explicit false wins", observe: ObserveTree(map[string]any{"count": false}), read: "count", unobserved: []string{"count"}},
		{name: "names plus reads", observe: ObserveNames("label"), read: "count", observed: []string{"label", "count"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, proxy := newCounterProxy(t, Observing(tt.observe))
			if tt.read != "" {
				if _, err := proxy.Get(tt.read); err != nil {
					t.Fatalf("get: %v", err)
				}
			}
			for _, name := range tt.observed {
				if !proxy.Manager().IsObservable(name) {
					t.Fatalf("expected %s observed", name)
				}
			}
			for _, name := range tt.unobserved {
				if proxy.Manager().IsObservable(name) {
					t.Fatalf("expected %s not observed", name)
				}
			}
		})
	}
}

func TestProxyMountLifecycle(t *testing.T) {
	rt := New()
	var mounted, unmounted []*Proxy
	model := NewModel("Widget",
		Value("size", 1),
		Listen(
			OnMount.Handler(func(_ any, p *Proxy) error {
				mounted = append(mounted, p)
				return nil
			}),
			OnUnmount.Handler(func(_ any, p *Proxy) error {
				unmounted = append(unmounted, p)
				return nil
			}),
		),
	)
	state, err := rt.CreateState(model)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	first, err := CreateProxy(state)
	if err != nil {
		t.Fatalf("create proxy: %v", err)
	}
	second, err := CreateProxy(state)
	if err != nil {
		t.Fatalf("create proxy: %v", err)
	}

	for range 2 {
		if err := first.Manager().Mount(nil); err != nil {
			t.Fatalf("mount: %v", err)
		}
	}
	if err := second.Manager().Mount(nil); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if len(mounted) != 2 {
		t.Fatalf("expected two mount events, got %d", len(mounted))
	}
	if got := MountedProxies(state); len(got) != 2 || got[0] != first || got[1] != second {
		t.Fatalf("unexpected mounted proxies %v", got)
	}

	if err := first.Manager().Unmount(); err != nil {
		t.Fatalf("unmount: %v", err)
	}
	if err := first.Manager().Unmount(); err != nil {
		t.Fatalf("unmount: %v", err)
	}
	if len(unmounted) != 1 || unmounted[0] != first {
		t.Fatalf("expected a single unmount event, got %v", unmounted)
	}
	if got := MountedProxies(second); len(got) != 1 || got[0] != second {
		t.Fatalf("unexpected mounted proxies after unmount %v", got)
	}
	if first.Manager().IsMounted() || !second.Manager().IsMounted() {
		t.Fatalf("mounted flags out of sync")
	}
}

func TestUnmountedProxyStopsNotifying(t *testing.T) {
	_, _, proxy := newCounterProxy(t, Observing(ObserveAll()))
	calls := 0
	if err := proxy.Manager().Mount(func(ChangeArgs) { calls++ }); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := proxy.Set("count", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := proxy.Manager().Unmount(); err != nil {
		t.Fatalf("unmount: %v", err)
	}
	if err := proxy.Set("count", 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one callback before unmount, got %d", calls)
	}
}

func TestCreateProxyRejectsUnmanagedState(t *testing.T) {
	if _, err := CreateProxy(&State{}); !errors.Is(err, ErrNotState) {
		t.Fatalf("expected ErrNotState, got %v", err)
	}
	if _, err := CreateProxy(nil); !errors.Is(err, ErrNotState) {
		t.Fatalf("expected ErrNotState for nil, got %v", err)
	}
}

func TestProxyPrivateReadsAreNotObserved(t *testing.T) {
	_, state, proxy := newCounterProxy(t)
	if err := state.Set("_meta", "x"); err != nil {
		t.Fatalf("set private: %v", err)
	}
	if value, err := proxy.Get("_meta"); err != nil || value != "x" {
		t.Fatalf("get private: value=%v err=%v", value, err)
	}
	if proxy.Manager().IsObservable("_meta") {
		t.Fatalf("private fields must not be observed")
	}
}

func TestProxyInitInjectedHook(t *testing.T) {
	seen := 0
	_, _, proxy := newCounterProxy(t, WithInitInjected(func(p *Proxy) error {
		seen++
		_, err := p.Get("count")
		return err
	}))
	if seen != 1 {
		t.Fatalf("expected init hook to run once, got %d", seen)
	}
	if proxy.Manager().IsObservable("count") {
		t.Fatalf("reads during init must not observe")
	}

	errInit := errors.New("init failed")
	rt := New()
	state, err := rt.CreateState(NewModel("Broken", Value("x", 0)))
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	if _, err := CreateProxy(state, WithInitInjected(func(*Proxy) error { return errInit })); !errors.Is(err, errInit) {
		t.Fatalf("expected init error, got %v", err)
	}
}

func TestProxyHelpers(t *testing.T) {
	_, state, proxy := newCounterProxy(t)
	if !IsProxy(proxy) || IsProxy(state) {
		t.Fatalf("IsProxy mismatch")
	}
	if ProxyInstance(proxy) != proxy.Manager() || ProxyInstance(state) != nil {
		t.Fatalf("ProxyInstance mismatch")
	}
	if Instance(proxy) != state.Manager() {
		t.Fatalf("Instance should resolve the proxy's state manager")
	}
	if proxy.State() != state {
		t.Fatalf("expected wrapped state")
	}
	if proxy.String() != "StateProxy(model: Counter)" {
		t.Fatalf("unexpected string %q", proxy.String())
	}
	if err := proxy.Set("count", "bad"); !errors.Is(err, schema.ErrInvalidValue) {
		t.Fatalf("expected validation error through proxy, got %v", err)
	}
}
