// Package hydrate converts state payloads to and from strongly typed structs.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Context identifies the state a payload belongs to.
type Context struct {
	Model string
	Key   string
}

func (c Context) label() string {
	if c.Key == "" {
		return fmt.Sprintf("model %q", c.Model)
	}
	return fmt.Sprintf("model %q (key %s)", c.Model, c.Key)
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated struct after decoding.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts state payloads into strongly typed structs.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields invokes json.Decoder.DisallowUnknownFields.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

// NewDecoder builds a decoder for T.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Stage names the step of Decode that failed.
type Stage string

const (
	StagePayload  Stage = "payload"
	StageClone    Stage = "clone"
	StagePreHook  Stage = "pre-hook"
	StageCustom   Stage = "custom decoder"
	StageDecode   Stage = "decode"
	StagePostHook Stage = "post-hook"
)

// ErrNilPayload reports a Decode call without a payload.
var ErrNilPayload = errors.New("payload is nil")

// Error ties a decode failure to the state it was decoding.
type Error struct {
	Stage   Stage
	Context Context
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("hydrate: %s for %s failed: %v", e.Stage, e.Context.label(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Decode converts payload into the target struct T applying configured hooks.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	fail := func(stage Stage, err error) (T, error) {
		return zero, &Error{Stage: stage, Context: ctx, Err: err}
	}

	if payload == nil {
		return fail(StagePayload, ErrNilPayload)
	}

	current, err := clonePayload(payload)
	if err != nil {
		return fail(StageClone, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return fail(StagePreHook, err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if d.custom != nil {
		if result, err = d.custom(ctx, current); err != nil {
			return fail(StageCustom, err)
		}
	} else if result, err = d.decodeJSON(current); err != nil {
		return fail(StageDecode, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return fail(StagePostHook, err)
		}
	}

	return result, nil
}

func (d *Decoder[T]) decodeJSON(payload map[string]any) (T, error) {
	var result T
	buffer, err := json.Marshal(payload)
	if err != nil {
		return result, err
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	err = decoder.Decode(&result)
	return result, err
}

// Encode converts a struct (or any JSON-encodable value) into a payload map
// suitable for deserializing into a state.
func Encode(value any) (map[string]any, error) {
	if value == nil {
		return nil, fmt.Errorf("hydrate: value is nil")
	}
	if payload, ok := value.(map[string]any); ok {
		return payload, nil
	}
	buffer, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("hydrate: marshal value: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, fmt.Errorf("hydrate: value of type %T is not an object: %w", value, err)
	}
	return out, nil
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}
