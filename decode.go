package flux

import (
	"github.com/goliatone/go-fluxmodels/internal/hydrate"
)

// DecodeError reports which decode step failed and for which state.
type DecodeError = hydrate.Error

// DecodeOption customizes Decode.
type DecodeOption[T any] = hydrate.DecoderOption[T]

// DecodeStrict rejects payload fields missing from T.
func DecodeStrict[T any]() DecodeOption[T] {
	return hydrate.WithDisallowUnknownFields[T]()
}

// DecodeUseNumber decodes numbers as json.Number.
func DecodeUseNumber[T any]() DecodeOption[T] {
	return hydrate.WithUseNumber[T]()
}

// DecodeCheck runs check on the decoded value.
func DecodeCheck[T any](check func(*T) error) DecodeOption[T] {
	return hydrate.WithPostHook[T](func(_ hydrate.Context, value *T) error {
		return check(value)
	})
}

// DecodePrepare rewrites the payload before it is decoded, for renamed or
// derived fields. prepare receives a private copy.
func DecodePrepare[T any](prepare func(payload map[string]any) (map[string]any, error)) DecodeOption[T] {
	return hydrate.WithPreHook[T](func(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
		return prepare(payload)
	})
}

// DecodeWith replaces JSON decoding with decode. Checks still run after it.
func DecodeWith[T any](decode func(payload map[string]any) (T, error)) DecodeOption[T] {
	return hydrate.WithCustomDecoder[T](func(_ hydrate.Context, payload map[string]any) (T, error) {
		return decode(payload)
	})
}

// Decode converts a snapshot into T using the snapshot's JSON shape.
func Decode[T any](snap *Snapshot, opts ...DecodeOption[T]) (T, error) {
	var zero T
	manager := Instance(snap)
	if manager == nil {
		return zero, ErrNotState
	}
	return hydrate.NewDecoder[T](opts...).Decode(decodeContext(manager), snap.Map())
}

// DecodeState converts the serialized form of a state into T.
func DecodeState[T any](state *State, opts ...DecodeOption[T]) (T, error) {
	var zero T
	payload, err := state.Serialize()
	if err != nil {
		return zero, err
	}
	return hydrate.NewDecoder[T](opts...).Decode(decodeContext(state.manager), payload)
}

// Hydrate deserializes value, a struct or map, into target.
func Hydrate(target interface{ Deserialize(map[string]any) error }, value any) error {
	payload, err := hydrate.Encode(value)
	if err != nil {
		return err
	}
	return target.Deserialize(payload)
}

func decodeContext(m *StateManager) hydrate.Context {
	ctx := hydrate.Context{Model: m.model.Name()}
	if _, ok := m.key.(defaultKey); !ok {
		ctx.Key = formatKey(m.key)
	}
	return ctx
}
