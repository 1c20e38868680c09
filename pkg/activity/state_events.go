package activity

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	VerbStateCreated    = "state.created"
	VerbStateChanged    = "state.changed"
	VerbStateFailed     = "state.failed"
	VerbProxyMounted    = "state.proxy.mounted"
	VerbProxyUnmounted  = "state.proxy.unmounted"
	ObjectTypeState     = "state"
	ObjectTypeProxy     = "state.proxy"
	DefinitionCodeModel = "model"
)

// StateEventInput describes the common fields for state lifecycle events.
// Handle uniquely identifies the state instance and becomes the object ID.
type StateEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Recipients []string
	Metadata   map[string]any
	Handle     string
	Model      string
	Key        string
	Property   string
	OldValue   any
	NewValue   any
	Place      string
	Err        error
	OccurredAt time.Time
}

// BuildStateCreatedEvent constructs an event for a newly registered state.
func BuildStateCreatedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbStateCreated, ObjectTypeState, input)
}

// BuildStateChangedEvent constructs an event for a field change.
func BuildStateChangedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbStateChanged, ObjectTypeState, input)
}

// BuildStateFailedEvent constructs an event for a reported field error.
func BuildStateFailedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbStateFailed, ObjectTypeState, input)
}

// BuildProxyMountedEvent constructs an event for a proxy mount.
func BuildProxyMountedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbProxyMounted, ObjectTypeProxy, input)
}

// BuildProxyUnmountedEvent constructs an event for a proxy unmount.
func BuildProxyUnmountedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbProxyUnmounted, ObjectTypeProxy, input)
}

func buildStateEvent(verb, objectType string, input StateEventInput) Event {
	metadata := cloneMetadata(input.Metadata)
	if input.Model != "" {
		metadata = ensureMetadata(metadata)
		metadata["model"] = input.Model
	}
	if input.Key != "" {
		metadata = ensureMetadata(metadata)
		metadata["key"] = input.Key
	}
	if input.Property != "" {
		metadata = ensureMetadata(metadata)
		metadata["property"] = input.Property
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}
	if input.Place != "" {
		metadata = ensureMetadata(metadata)
		metadata["place"] = input.Place
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	var recipients []string
	if len(input.Recipients) > 0 {
		recipients = slices.Clone(input.Recipients)
	}

	objectID := strings.TrimSpace(input.Handle)
	if objectID == "" && input.Model != "" {
		objectID = strings.TrimSpace(input.Model)
		if input.Key != "" {
			objectID = fmt.Sprintf("%s:%s", objectID, strings.TrimSpace(input.Key))
		}
	}
	if objectID == "" {
		objectID = objectType
	}

	definitionCode := ""
	if model := strings.TrimSpace(input.Model); model != "" {
		definitionCode = DefinitionCodeModel + ":" + model
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: definitionCode,
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
