package flux

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/goliatone/go-fluxmodels/pkg/activity"
)

func verbs(events []activity.Event) []string {
	out := make([]string, 0, len(events))
	for _, event := range events {
		out = append(out, event.Verb)
	}
	return out
}

func TestRuntimeEmitsLifecycleActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	rt := New(WithActivityHooks(activity.Hooks{capture}))
	model := NewModel("Counter", Value("count", 0))

	state, err := rt.CreateState(model, WithKey("c1"))
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	if err := state.Set("count", 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := state.Set("count", "bad"); err == nil {
		t.Fatalf("expected validation error")
	}
	proxy, err := CreateProxy(state)
	if err != nil {
		t.Fatalf("create proxy: %v", err)
	}
	if err := proxy.Manager().Mount(nil); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := proxy.Manager().Unmount(); err != nil {
		t.Fatalf("unmount: %v", err)
	}

	want := []string{
		activity.VerbStateCreated,
		activity.VerbStateChanged,
		activity.VerbStateFailed,
		activity.VerbProxyMounted,
		activity.VerbProxyUnmounted,
	}
	got := verbs(capture.Events)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected verbs %v, got %v", want, got)
	}

	changed := capture.Events[1]
	if changed.ObjectID != state.Handle().String() {
		t.Fatalf("expected state handle as object id, got %q", changed.ObjectID)
	}
	if changed.Channel != activity.DefaultChannel {
		t.Fatalf("expected default channel, got %q", changed.Channel)
	}
	if changed.DefinitionCode != "model:Counter" {
		t.Fatalf("unexpected definition code %q", changed.DefinitionCode)
	}
	if changed.Metadata["property"] != "count" || changed.Metadata["new_value"] != 2 || changed.Metadata["key"] != "c1" {
		t.Fatalf("unexpected metadata %v", changed.Metadata)
	}
	failed := capture.Events[2]
	if failed.Metadata["place"] != "validate" {
		t.Fatalf("expected validate place, got %v", failed.Metadata["place"])
	}
	if capture.Events[3].ObjectType != activity.ObjectTypeProxy {
		t.Fatalf("expected proxy object type, got %q", capture.Events[3].ObjectType)
	}
}

func TestRuntimeActivityDisabled(t *testing.T) {
	capture := &activity.CaptureHook{}
	rt := New(
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: false}),
	)
	state, err := rt.CreateState(NewModel("Quiet", Value("v", 0)))
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	if err := state.Set("v", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events, got %v", verbs(capture.Events))
	}
}

func TestRuntimeActivityFailuresAreLogged(t *testing.T) {
	var logs bytes.Buffer
	capture := &activity.CaptureHook{Err: errors.New("sink down")}
	rt := New(
		WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))),
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: true, Channel: "ui"}),
	)
	state, err := rt.CreateState(NewModel("Noisy", Value("v", 0)))
	if err != nil {
		t.Fatalf("activity failures must not fail state creation: %v", err)
	}
	if err := state.Set("v", 1); err != nil {
		t.Fatalf("activity failures must not fail writes: %v", err)
	}
	if !strings.Contains(logs.String(), "activity emission failed") || !strings.Contains(logs.String(), "sink down") {
		t.Fatalf("expected warning log, got %q", logs.String())
	}
	if len(capture.Events) == 0 || capture.Events[0].Channel != "ui" {
		t.Fatalf("expected configured channel on events")
	}
}

func TestRuntimeActivityVerbFilter(t *testing.T) {
	capture := &activity.CaptureHook{}
	rt := New(
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: true, Verbs: []string{activity.VerbStateChanged}}),
	)
	state, err := rt.CreateState(NewModel("Filtered", Value("v", 0)))
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	if err := state.Set("v", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	got := verbs(capture.Events)
	if len(got) != 1 || got[0] != activity.VerbStateChanged {
		t.Fatalf("expected only the changed verb, got %v", got)
	}
}
