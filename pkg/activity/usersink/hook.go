// Package usersink forwards state activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-fluxmodels/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Redacted replaces the values of redacted state properties.
const Redacted = "[redacted]"

// Hook adapts activity events to a go-users ActivitySink. When Verbs is not
// empty only events with a listed verb are forwarded. Changes to a property
// named in Redact are logged without their old and new values.
type Hook struct {
	Sink   usertypes.ActivitySink
	Verbs  []string
	Redact []string
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if !normalized.Routable() || !activity.MatchesVerb(normalized, h.Verbs) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     parseUUID(normalized.UserID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       normalized.Metadata,
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	if h.redacts(record.Data) {
		record.Data = redactValues(record.Data)
	}
	if normalized.DefinitionCode != "" {
		record.Data = ensureData(record.Data)
		record.Data["definition_code"] = normalized.DefinitionCode
	}
	if len(normalized.Recipients) > 0 {
		record.Data = ensureData(record.Data)
		record.Data["recipients"] = append([]string{}, normalized.Recipients...)
	}

	return h.Sink.Log(ctx, record)
}

func (h Hook) redacts(data map[string]any) bool {
	property, _ := data["property"].(string)
	return property != "" && slices.Contains(h.Redact, property)
}

func redactValues(data map[string]any) map[string]any {
	out := maps.Clone(data)
	for _, key := range []string{"old_value", "new_value"} {
		if _, ok := out[key]; ok {
			out[key] = Redacted
		}
	}
	return out
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func ensureData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}
