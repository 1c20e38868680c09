package flux

import (
	"encoding/json"
	"slices"

	"github.com/goliatone/go-fluxmodels/schema"
)

// Proxy wraps a state and records which properties its consumer reads. Once
// mounted, changes to those properties are reported to a callback. Injected
// fields read through a proxy resolve to proxies sharing one cache, so a
// circular injection returns the proxy already created for that state.
type Proxy struct {
	state   *State
	manager *ProxyManager
}

// ChangeFunc receives the changes reported by a mounted proxy.
type ChangeFunc func(ChangeArgs)

// ProxyOption configures CreateProxy.
type ProxyOption func(*proxyConfig)

type proxyConfig struct {
	observable  *observableProps
	autoResolve bool
	init        func(*Proxy) error
	cache       *proxyCache
}

// Observing sets the initial observation configuration.
func Observing(observe Observe) ProxyOption {
	return func(cfg *proxyConfig) {
		cfg.observable = observe.build()
	}
}

// WithoutAutoResolve stops reads from adding observed properties.
func WithoutAutoResolve() ProxyOption {
	return func(cfg *proxyConfig) {
		cfg.autoResolve = false
	}
}

// WithInitInjected replaces the routine run when a proxy is created. The
// default reads every field so injected proxies exist before mount. Reads
// made by init never mark properties as observed.
func WithInitInjected(init func(*Proxy) error) ProxyOption {
	return func(cfg *proxyConfig) {
		if init != nil {
			cfg.init = init
		}
	}
}

// CreateProxy builds a proxy over state.
func CreateProxy(state *State, opts ...ProxyOption) (*Proxy, error) {
	cfg := proxyConfig{autoResolve: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return newProxy(state, cfg)
}

func newProxy(state *State, cfg proxyConfig) (*Proxy, error) {
	if !state.valid() {
		return nil, ErrNotState
	}
	if cfg.observable == nil {
		cfg.observable = Observe{}.build()
	}
	if cfg.cache == nil {
		cfg.cache = newProxyCache()
	}
	if cfg.init == nil {
		cfg.init = readAllFields
	}

	p := &Proxy{state: state}
	p.manager = &ProxyManager{
		proxy:        p,
		state:        state,
		observable:   cfg.observable,
		autoResolve:  cfg.autoResolve,
		initInjected: cfg.init,
		injected:     cfg.cache,
		context:      map[string]any{},
	}
	cfg.cache.set(state, p)

	p.manager.initializing = true
	err := cfg.init(p)
	p.manager.initializing = false
	if err != nil {
		cfg.cache.remove(state, p)
		return nil, err
	}
	return p, nil
}

func readAllFields(p *Proxy) error {
	for _, name := range p.Keys() {
		if _, err := p.Get(name); err != nil {
			return err
		}
	}
	return nil
}

// Get reads a field. Reads made while auto resolution is on mark the field
// as observed, except for injected fields.
func (p *Proxy) Get(name string) (any, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	m := p.manager
	value, err := p.state.object.Get(p, name)
	if err != nil {
		return nil, err
	}
	if schema.IsPrivate(name) || m.initializing {
		return value, nil
	}
	switch value.(type) {
	case *Proxy, []*Proxy:
	default:
		if m.autoResolve {
			m.observable.infer(name)
		}
	}
	return value, nil
}

// Set writes a field on the underlying state with the proxy as target.
func (p *Proxy) Set(name string, value any) error {
	if err := p.check(); err != nil {
		return err
	}
	return p.state.object.Set(p, name, value)
}

// Define declares a field on the underlying state.
func (p *Proxy) Define(name string, t schema.Type, value any) error {
	if err := p.check(); err != nil {
		return err
	}
	return p.state.object.Define(p, name, t, value)
}

// Delete removes a field from the underlying state.
func (p *Proxy) Delete(name string) error {
	if err := p.check(); err != nil {
		return err
	}
	return p.state.object.Delete(p, name)
}

// Deserialize writes payload through the proxy.
func (p *Proxy) Deserialize(payload map[string]any) error {
	if err := p.check(); err != nil {
		return err
	}
	return p.state.object.Deserialize(p, payload)
}

// Call invokes a model method with the proxy as receiver, so the method's
// reads are tracked.
func (p *Proxy) Call(name string, args ...any) (any, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return callMethod(p, p.state.manager.model, name, args)
}

// Bind returns a model method bound to the proxy.
func (p *Proxy) Bind(name string) (func(args ...any) (any, error), error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return bindMethod(p, p.state.manager.model, name)
}

// Keys lists the field names of the wrapped state.
func (p *Proxy) Keys() []string {
	if p == nil {
		return nil
	}
	return p.state.Keys()
}

// State returns the wrapped state.
func (p *Proxy) State() *State {
	if p == nil {
		return nil
	}
	return p.state
}

// Manager returns the proxy bookkeeping.
func (p *Proxy) Manager() *ProxyManager {
	if p == nil {
		return nil
	}
	return p.manager
}

// Snapshot is shorthand for Manager().CreateSnapshot().
func (p *Proxy) Snapshot() (*Snapshot, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return p.manager.CreateSnapshot()
}

// Serialize delegates to the state serialization. It does not mark fields
// as observed.
func (p *Proxy) Serialize() (map[string]any, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return p.state.Serialize()
}

func (p *Proxy) MarshalJSON() ([]byte, error) {
	out, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (p *Proxy) String() string {
	if p == nil || !p.state.valid() {
		return "StateProxy(<invalid>)"
	}
	return describeState("StateProxy", p.state.manager)
}

func (p *Proxy) check() error {
	if p == nil || p.manager == nil {
		return ErrNotState
	}
	return p.state.check()
}

// ProxyManager holds observation and mount bookkeeping for one proxy.
type ProxyManager struct {
	proxy        *Proxy
	state        *State
	observable   *observableProps
	autoResolve  bool
	initializing bool
	initInjected func(*Proxy) error
	injected     *proxyCache
	context      map[string]any

	mounted  bool
	callback ChangeFunc
	listener *Listener[ChangeArgs]
}

// Proxy returns the managed proxy.
func (m *ProxyManager) Proxy() *Proxy {
	return m.proxy
}

// State returns the wrapped state.
func (m *ProxyManager) State() *State {
	return m.state
}

// Context is a free-form bag for integrations built on top of the proxy.
func (m *ProxyManager) Context() map[string]any {
	return m.context
}

// AutoResolve reports whether reads add observed properties.
func (m *ProxyManager) AutoResolve() bool {
	return m.autoResolve
}

// SetAutoResolve toggles read inference of observed fields.
func (m *ProxyManager) SetAutoResolve(enabled bool) {
	m.autoResolve = enabled
}

// IsObservable reports whether changes to name are reported.
func (m *ProxyManager) IsObservable(name string) bool {
	return m.observable.observes(name)
}

// ObservableProps renders the observed properties: true or false per name,
// or a nested map for injected fields configured explicitly.
func (m *ProxyManager) ObservableProps() map[string]any {
	return m.observable.export()
}

// InjectedProxies lists the other proxies of this proxy tree.
func (m *ProxyManager) InjectedProxies() []*Proxy {
	return slices.DeleteFunc(m.injected.values(), func(p *Proxy) bool { return p == m.proxy })
}

// IsMounted reports whether Mount is in effect.
func (m *ProxyManager) IsMounted() bool {
	return m.mounted
}

// Mount subscribes the proxy and every proxy of its tree. onChange receives
// changes to observed properties; it may be nil. Mounting twice is a no-op.
func (m *ProxyManager) Mount(onChange ChangeFunc) error {
	if m.mounted {
		return nil
	}
	m.mounted = true
	m.callback = onChange
	m.listener = OnChange.Handler(func(_ any, args ChangeArgs) error {
		if m.callback != nil && m.IsObservable(args.PropName) {
			m.callback(args)
		}
		return nil
	})

	manager := m.state.manager
	manager.events.Subscribe(OnChange, m.listener)
	manager.addMounted(m.proxy)

	for _, child := range m.InjectedProxies() {
		if err := child.manager.Mount(onChange); err != nil {
			return err
		}
	}
	manager.logger().Debug("flux: proxy mounted", "proxy", m.proxy.String())
	return manager.events.Emit(OnMount, m.proxy, m.proxy)
}

// Unmount reverses Mount for the proxy and its tree. Unmounting an unmounted
// proxy is a no-op.
func (m *ProxyManager) Unmount() error {
	if !m.mounted {
		return nil
	}
	m.mounted = false

	manager := m.state.manager
	manager.events.Unsubscribe(OnChange, m.listener)
	manager.removeMounted(m.proxy)
	m.listener = nil
	m.callback = nil

	for _, child := range m.InjectedProxies() {
		if err := child.manager.Unmount(); err != nil {
			return err
		}
	}
	manager.logger().Debug("flux: proxy unmounted", "proxy", m.proxy.String())
	return manager.events.Emit(OnUnmount, m.proxy, m.proxy)
}

func (m *ProxyManager) String() string {
	return m.proxy.String()
}

// injectedProxy returns the proxy for an injected state, building it on the
// first read. A proxy built while the tree is mounted is mounted with the
// tree's callback.
func (m *ProxyManager) injectedProxy(state *State, created bool, propName string, args InjectArgs) (*Proxy, error) {
	if !created {
		if cached := m.injected.get(state); cached != nil {
			return cached, nil
		}
	}
	child, err := newProxy(state, proxyConfig{
		observable:  m.observable.child(propName),
		autoResolve: !args.NoAutoResolve,
		init:        m.initInjected,
		cache:       m.injected,
	})
	if err != nil {
		return nil, err
	}
	if m.mounted {
		if err := child.manager.Mount(m.callback); err != nil {
			return nil, err
		}
	}
	return child, nil
}

// proxyCache maps injected states to their proxies within one proxy tree.
type proxyCache struct {
	proxies map[*State]*Proxy
	order   []*State
}

func newProxyCache() *proxyCache {
	return &proxyCache{proxies: map[*State]*Proxy{}}
}

func (c *proxyCache) get(state *State) *Proxy {
	return c.proxies[state]
}

func (c *proxyCache) set(state *State, p *Proxy) {
	if _, exists := c.proxies[state]; !exists {
		c.order = append(c.order, state)
	}
	c.proxies[state] = p
}

func (c *proxyCache) remove(state *State, p *Proxy) {
	if c.proxies[state] != p {
		return
	}
	delete(c.proxies, state)
	c.order = slices.DeleteFunc(c.order, func(s *State) bool { return s == state })
}

func (c *proxyCache) values() []*Proxy {
	out := make([]*Proxy, 0, len(c.order))
	for _, state := range c.order {
		out = append(out, c.proxies[state])
	}
	return out
}

// MountedProxies lists the mounted proxies of the state behind v.
func MountedProxies(v any) []*Proxy {
	manager := Instance(v)
	if manager == nil {
		return nil
	}
	return manager.MountedProxies()
}

// IsProxy reports whether v is a proxy over a managed state.
func IsProxy(v any) bool {
	p, ok := v.(*Proxy)
	return ok && p.check() == nil
}

// ProxyInstance returns the manager of a proxy, or nil.
func ProxyInstance(v any) *ProxyManager {
	switch typed := v.(type) {
	case *Proxy:
		if typed == nil {
			return nil
		}
		return typed.manager
	case *Snapshot:
		if typed == nil || typed.proxy == nil {
			return nil
		}
		return typed.proxy.manager
	}
	return nil
}
