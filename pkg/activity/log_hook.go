package activity

import (
	"context"
	"log/slog"
)

// LogHook returns a hook that writes every event to logger at level.
func LogHook(logger *slog.Logger, level slog.Level) ActivityHook {
	if logger == nil {
		return HookFunc(nil)
	}
	return HookFunc(func(ctx context.Context, event Event) error {
		attrs := []slog.Attr{
			slog.String("verb", event.Verb),
			slog.String("object_type", event.ObjectType),
			slog.String("object_id", event.ObjectID),
			slog.String("channel", event.Channel),
		}
		if event.DefinitionCode != "" {
			attrs = append(attrs, slog.String("definition_code", event.DefinitionCode))
		}
		if len(event.Metadata) > 0 {
			attrs = append(attrs, slog.Any("metadata", event.Metadata))
		}
		logger.LogAttrs(ctx, level, "activity", attrs...)
		return nil
	})
}
