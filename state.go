package flux

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/goliatone/go-fluxmodels/internal/clone"
	"github.com/goliatone/go-fluxmodels/internal/compare"
	"github.com/goliatone/go-fluxmodels/schema"
	"github.com/google/uuid"
)

// State is a live instance of a model, registered in exactly one store slot.
// States are not safe for concurrent use.
type State struct {
	handle   uuid.UUID
	manager  *StateManager
	object   *schema.Object
	handlers map[EventKey][]Handler
}

// StateManager holds the bookkeeping attached to a state.
type StateManager struct {
	state         *State
	model         *Model
	key           any
	store         *Store
	runtime       *Runtime
	events        *EventsManager
	context       map[string]any
	mounted       []*Proxy
	deserializing bool
}

// StateOption configures state creation and lookup.
type StateOption func(*stateConfig)

type stateConfig struct {
	key            any
	store          *Store
	keyEqual       func(a, b any) bool
	changeHandlers []schema.ChangeHandler
	errorHandlers  []schema.ErrorHandler
}

// WithKey sets the key identifying the state within its model slot.
func WithKey(key any) StateOption {
	return func(cfg *stateConfig) {
		cfg.key = key
	}
}

// InStore targets store instead of the runtime default store.
func InStore(store *Store) StateOption {
	return func(cfg *stateConfig) {
		if store != nil {
			cfg.store = store
		}
	}
}

// WithKeyEqual replaces the deep equality used by GetOrCreateState to match
// keys. equal is called as equal(storedKey, requestedKey).
func WithKeyEqual(equal func(a, b any) bool) StateOption {
	return func(cfg *stateConfig) {
		cfg.keyEqual = equal
	}
}

// WithStateChangeHandler threads handler into the new state, after the model
// handlers and before the built-in change detection.
func WithStateChangeHandler(handler schema.ChangeHandler) StateOption {
	return func(cfg *stateConfig) {
		cfg.changeHandlers = append(cfg.changeHandlers, handler)
	}
}

// WithStateErrorHandler threads handler into the new state, after the model
// handlers and before the built-in error reporting.
func WithStateErrorHandler(handler schema.ErrorHandler) StateOption {
	return func(cfg *stateConfig) {
		cfg.errorHandlers = append(cfg.errorHandlers, handler)
	}
}

func (r *Runtime) stateConfig(opts []StateOption) stateConfig {
	cfg := stateConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.store == nil {
		cfg.store = r.store
	}
	if cfg.keyEqual == nil {
		cfg.keyEqual = compare.Equal
	}
	cfg.key = normalizeKey(cfg.key)
	return cfg
}

// CreateState builds a new state from model, registers it in the target store
// and emits OnInit. When an OnInit handler fails the state stays registered
// and is returned together with the error.
func (r *Runtime) CreateState(model *Model, opts ...StateOption) (*State, error) {
	return r.createState(model, r.stateConfig(opts))
}

// GetOrCreateState returns the state registered for (model, key), creating it
// when missing. created reports whether a new state was built.
func (r *Runtime) GetOrCreateState(model *Model, opts ...StateOption) (state *State, created bool, err error) {
	if model == nil {
		return nil, false, ErrNilModel
	}
	cfg := r.stateConfig(opts)
	found := cfg.store.FindState(model, func(key any) bool {
		return cfg.keyEqual(key, cfg.key)
	})
	if found != nil {
		return found, false, nil
	}
	state, err = r.createState(model, cfg)
	return state, state != nil, err
}

func (r *Runtime) createState(model *Model, cfg stateConfig) (*State, error) {
	if model == nil {
		return nil, ErrNilModel
	}

	state := &State{handle: uuid.New()}
	manager := &StateManager{
		state:   state,
		model:   model,
		key:     cfg.key,
		store:   cfg.store,
		runtime: r,
		context: map[string]any{},
	}
	state.manager = manager
	manager.events = NewEventsManager(state)
	for _, registration := range model.registrations {
		registration.Register(manager.events)
	}
	r.attachActivity(manager)

	changeHandlers := slices.Concat(model.changeHandlers, cfg.changeHandlers, []schema.ChangeHandler{manager.changeHandler()})
	errorHandlers := slices.Concat(model.errorHandlers, cfg.errorHandlers, []schema.ErrorHandler{manager.errorHandler()})

	object, err := schema.New(state, schema.Config{
		Fields:         model.fields,
		ChangeHandlers: changeHandlers,
		ErrorHandlers:  errorHandlers,
		Dynamic:        model.dynamic,
	})
	if err != nil {
		r.logger.Error("flux: create state failed", "model", model.name, "key", formatKey(cfg.key), "error", err)
		return nil, fmt.Errorf("flux: create %s: %w", model.name, err)
	}
	state.object = object

	cfg.store.AddState(model, state, cfg.key)
	r.logger.Debug("flux: state created", "model", model.name, "key", formatKey(cfg.key), "handle", state.handle.String())
	r.emitStateCreated(manager)

	if err := manager.events.Emit(OnInit, state, state); err != nil {
		return state, err
	}
	return state, nil
}

// changeHandler re-emits set and deserialize writes as OnChange when the
// value identity changed.
func (m *StateManager) changeHandler() schema.ChangeHandler {
	return schema.ChangeHandler{
		Actions: []schema.Action{schema.ActionSet, schema.ActionDeserialize},
		Handle: func(info schema.ChangeInfo) error {
			if compare.Same(info.Prev.Value, info.Next.Value) {
				return nil
			}
			return m.events.Emit(OnChange, ChangeArgs{
				State:     m.state,
				Target:    info.Target,
				PropName:  info.Field,
				PrevValue: info.Prev.Value,
				NewValue:  info.Next.Value,
				Action:    info.Action,
			}, nil)
		},
	}
}

func (m *StateManager) errorHandler() schema.ErrorHandler {
	return schema.ErrorHandler{
		Places: schema.Places(),
		Handle: func(info schema.ErrorInfo) error {
			return m.events.Emit(OnError, ErrorArgs{
				State:    m.state,
				Target:   info.Target,
				PropName: info.Field,
				Err:      info.Err,
				Place:    info.Place,
			}, nil)
		},
	}
}

// Instance returns the manager of a state, proxy or snapshot, or nil.
func Instance(v any) *StateManager {
	switch typed := v.(type) {
	case *State:
		if typed == nil {
			return nil
		}
		return typed.manager
	case *Proxy:
		if typed == nil || typed.state == nil {
			return nil
		}
		return typed.state.manager
	case *Snapshot:
		if typed == nil || typed.proxy == nil {
			return nil
		}
		return Instance(typed.proxy)
	case *StateManager:
		return typed
	}
	return nil
}

// IsState reports whether v is a managed state.
func IsState(v any) bool {
	s, ok := v.(*State)
	return ok && s.valid()
}

// State returns the managed state.
func (m *StateManager) State() *State {
	return m.state
}

// Model returns the model the state was built from.
func (m *StateManager) Model() *Model {
	return m.model
}

// Key returns the key the state was registered under.
func (m *StateManager) Key() any {
	return m.key
}

// Store returns the store the state is registered in.
func (m *StateManager) Store() *Store {
	return m.store
}

// Runtime returns the runtime that created the state.
func (m *StateManager) Runtime() *Runtime {
	return m.runtime
}

// Events returns the events manager bound to the state.
func (m *StateManager) Events() *EventsManager {
	return m.events
}

// Context is a free-form bag for integrations built on top of the state.
func (m *StateManager) Context() map[string]any {
	return m.context
}

// MountedProxies lists the proxies of this state that are currently mounted.
func (m *StateManager) MountedProxies() []*Proxy {
	return slices.Clone(m.mounted)
}

func (m *StateManager) addMounted(p *Proxy) {
	if !slices.Contains(m.mounted, p) {
		m.mounted = append(m.mounted, p)
	}
}

func (m *StateManager) removeMounted(p *Proxy) {
	m.mounted = slices.DeleteFunc(m.mounted, func(candidate *Proxy) bool { return candidate == p })
}

func (m *StateManager) String() string {
	return describeState("State", m)
}

func (m *StateManager) logger() *slog.Logger {
	return m.runtime.logger
}

func describeState(kind string, m *StateManager) string {
	if m == nil {
		return kind + "(<invalid>)"
	}
	if _, ok := m.key.(defaultKey); ok {
		return fmt.Sprintf("%s(model: %s)", kind, m.model.Name())
	}
	return fmt.Sprintf("%s(key: %s, model: %s)", kind, formatKey(m.key), m.model.Name())
}

func formatKey(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return fmt.Sprint(key)
}

func (s *State) valid() bool {
	return s != nil && s.manager != nil && s.object != nil
}

func (s *State) check() error {
	if !s.valid() {
		return ErrNotState
	}
	return nil
}

// Handle is a unique identifier for the state instance.
func (s *State) Handle() uuid.UUID {
	if s == nil {
		return uuid.Nil
	}
	return s.handle
}

// State returns s, satisfying Accessor.
func (s *State) State() *State {
	return s
}

// Manager returns the state's manager.
func (s *State) Manager() *StateManager {
	if s == nil {
		return nil
	}
	return s.manager
}

// Keys lists the declared and defined field names.
func (s *State) Keys() []string {
	if !s.valid() {
		return nil
	}
	return s.object.Keys()
}

// Get reads a field. Injected fields resolve to *State or []*State.
func (s *State) Get(name string) (any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.object.Get(s, name)
}

// Set writes a field through the schema engine. OnChange fires when the
// value changed by identity.
func (s *State) Set(name string, value any) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.object.Set(s, name, value)
}

// Define declares a new field on the state only. A nil type is inferred.
func (s *State) Define(name string, t schema.Type, value any) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.object.Define(s, name, t, value)
}

// Delete removes a field from the state.
func (s *State) Delete(name string) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.object.Delete(s, name)
}

// Deserialize writes every known field present in payload.
func (s *State) Deserialize(payload map[string]any) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.object.Deserialize(s, payload)
}

// Call invokes the model method name with the state as receiver.
func (s *State) Call(name string, args ...any) (any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return callMethod(s, s.manager.model, name, args)
}

// Bind returns the model method name bound to the state.
func (s *State) Bind(name string) (func(args ...any) (any, error), error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return bindMethod(s, s.manager.model, name)
}

// Raw returns the stored field values without running serializers, so
// injected fields are not resolved.
func (s *State) Raw() map[string]any {
	if !s.valid() {
		return nil
	}
	return s.object.Raw()
}

// Serialize reads every field into a plain map. Injected states become
// nested maps; a state already being serialized higher up is omitted.
func (s *State) Serialize() (map[string]any, error) {
	return serializeState(s, map[*State]bool{})
}

func (s *State) MarshalJSON() ([]byte, error) {
	out, err := s.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (s *State) String() string {
	if !s.valid() {
		return "State(<invalid>)"
	}
	return s.manager.String()
}

func serializeState(s *State, visiting map[*State]bool) (map[string]any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	visiting[s] = true
	defer delete(visiting, s)

	out := make(map[string]any, len(s.Keys()))
	for _, name := range s.Keys() {
		value, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		switch typed := value.(type) {
		case *State:
			if typed == nil || visiting[typed] {
				continue
			}
			nested, err := serializeState(typed, visiting)
			if err != nil {
				return nil, err
			}
			out[name] = nested
		case []*State:
			items := make([]any, 0, len(typed))
			for _, item := range typed {
				if item == nil || visiting[item] {
					items = append(items, nil)
					continue
				}
				nested, err := serializeState(item, visiting)
				if err != nil {
					return nil, err
				}
				items = append(items, nested)
			}
			out[name] = items
		default:
			out[name] = clone.Any(value)
		}
	}
	return out, nil
}

func callMethod(self Accessor, model *Model, name string, args []any) (any, error) {
	method, ok := model.Method(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, model.Name(), name)
	}
	return method(self, args...)
}

func bindMethod(self Accessor, model *Model, name string) (func(args ...any) (any, error), error) {
	method, ok := model.Method(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, model.Name(), name)
	}
	return func(args ...any) (any, error) {
		return method(self, args...)
	}, nil
}
