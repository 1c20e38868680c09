// Package activity turns state lifecycle occurrences into audit events and
// fans them out to pluggable hooks.
package activity

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"
)

// Event is a normalized lifecycle record. ObjectID carries the state handle;
// identity fields stay strings so hooks decide how to parse them.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Routable reports whether the event names a verb and an object.
func (e Event) Routable() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// OnlyVerbs forwards to hook only events whose verb is listed. An empty list
// forwards everything.
func OnlyVerbs(hook ActivityHook, verbs ...string) ActivityHook {
	if len(verbs) == 0 || hook == nil {
		return hook
	}
	allowed := slices.Clone(verbs)
	return HookFunc(func(ctx context.Context, event Event) error {
		if !MatchesVerb(event, allowed) {
			return nil
		}
		return hook.Notify(ctx, event)
	})
}

// MatchesVerb reports whether event carries one of verbs; an empty list
// matches every event.
func MatchesVerb(event Event, verbs []string) bool {
	return len(verbs) == 0 || slices.Contains(verbs, strings.TrimSpace(event.Verb))
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes the event and delivers it to every hook. Events that are
// not routable are dropped. Hook errors are joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	normalized := NormalizeEvent(event)
	if !normalized.Routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent returns a trimmed copy of event with its own metadata and
// recipients and a timestamp.
func NormalizeEvent(event Event) Event {
	out := event
	for _, field := range []*string{
		&out.Verb, &out.ActorID, &out.UserID, &out.TenantID,
		&out.ObjectType, &out.ObjectID, &out.Channel, &out.DefinitionCode,
	} {
		*field = strings.TrimSpace(*field)
	}
	out.Metadata = cloneMetadata(event.Metadata)
	out.Recipients = nil
	if len(event.Recipients) > 0 {
		out.Recipients = slices.Clone(event.Recipients)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}

func cloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
