package activity

import (
	"context"
	"slices"
	"strings"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "flux"

// Config controls lifecycle emission. An empty Verbs list emits every
// lifecycle verb.
type Config struct {
	Enabled bool     `yaml:"enabled"`
	Channel string   `yaml:"channel"`
	Verbs   []string `yaml:"verbs"`
}

// Emitter delivers lifecycle events of states and proxies to hooks.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	verbs   []string
}

// NewEmitter builds an emitter. Nil hooks are dropped; an emitter without
// hooks stays disabled.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	compacted := compactHooks(hooks)
	var verbs []string
	for _, verb := range cfg.Verbs {
		if verb = strings.TrimSpace(verb); verb != "" {
			verbs = append(verbs, verb)
		}
	}
	return &Emitter{
		hooks:   compacted,
		enabled: cfg.Enabled && len(compacted) > 0,
		channel: channel,
		verbs:   verbs,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled && len(e.hooks) > 0
}

// Emits reports whether events with verb are delivered.
func (e *Emitter) Emits(verb string) bool {
	return e.Enabled() && MatchesVerb(Event{Verb: verb}, e.verbs)
}

// Emit delivers event unless its verb is filtered out. A missing channel
// gets the emitter channel, and a missing definition code is derived from
// the model recorded in the metadata.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Emits(event.Verb) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.DefinitionCode) == "" {
		if model, ok := event.Metadata["model"].(string); ok && model != "" {
			event.DefinitionCode = DefinitionCodeModel + ":" + model
		}
	}
	return e.hooks.Notify(ctx, event)
}

// Channel returns the default channel applied to emitted events.
func (e *Emitter) Channel() string {
	if e == nil {
		return ""
	}
	return e.channel
}

// Hooks returns a copy of the configured hooks.
func (e *Emitter) Hooks() Hooks {
	if e == nil {
		return nil
	}
	return slices.Clone(e.hooks)
}

func compactHooks(hooks Hooks) Hooks {
	var out Hooks
	for _, hook := range hooks {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}
