package activity

import "testing"

func TestBuildStateChangedEventIncludesMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := StateEventInput{
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		Handle:     " 5b0f ",
		Model:      "Counter",
		Key:        "main",
		Property:   "count",
		OldValue:   1,
		NewValue:   2,
		Metadata:   meta,
		Recipients: []string{"ops@example.com"},
		Channel:    " flux ",
	}

	event := BuildStateChangedEvent(input)

	if event.Verb != VerbStateChanged || event.ObjectType != ObjectTypeState || event.ObjectID != "5b0f" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.UserID != "user" || event.TenantID != "tenant" || event.Channel != "flux" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.DefinitionCode != "model:Counter" {
		t.Fatalf("expected definition code, got %q", event.DefinitionCode)
	}
	if event.Metadata["model"] != "Counter" || event.Metadata["key"] != "main" || event.Metadata["property"] != "count" {
		t.Fatalf("unexpected metadata %+v", event.Metadata)
	}
	if event.Metadata["old_value"] != 1 || event.Metadata["new_value"] != 2 || event.Metadata["custom"] != "value" {
		t.Fatalf("unexpected values metadata %+v", event.Metadata)
	}
	event.Recipients[0] = "changed"
	if input.Recipients[0] != "ops@example.com" {
		t.Fatalf("expected input recipients untouched")
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildStateFailedEventRecordsPlaceAndError(t *testing.T) {
	event := BuildStateFailedEvent(StateEventInput{
		Handle: "h",
		Place:  "validate",
		Err:    errString("bad value"),
	})
	if event.Verb != VerbStateFailed {
		t.Fatalf("unexpected verb %q", event.Verb)
	}
	if event.Metadata["place"] != "validate" || event.Metadata["error"] != "bad value" {
		t.Fatalf("unexpected metadata %+v", event.Metadata)
	}
	if event.DefinitionCode != "" {
		t.Fatalf("expected empty definition code without model, got %q", event.DefinitionCode)
	}
}

func TestBuildStateEventObjectIDFallbacks(t *testing.T) {
	if got := BuildStateCreatedEvent(StateEventInput{Model: "Counter", Key: "k"}).ObjectID; got != "Counter:k" {
		t.Fatalf("expected model:key fallback, got %q", got)
	}
	if got := BuildStateCreatedEvent(StateEventInput{Model: "Counter"}).ObjectID; got != "Counter" {
		t.Fatalf("expected model fallback, got %q", got)
	}
	if got := BuildProxyMountedEvent(StateEventInput{}).ObjectID; got != ObjectTypeProxy {
		t.Fatalf("expected object type fallback, got %q", got)
	}
	if got := BuildProxyUnmountedEvent(StateEventInput{Handle: "x"}); got.Verb != VerbProxyUnmounted || got.ObjectType != ObjectTypeProxy {
		t.Fatalf("unexpected unmount event %+v", got)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
