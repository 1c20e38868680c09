package flux

import (
	"errors"
	"testing"

	"github.com/goliatone/go-fluxmodels/schema"
)

func TestModelDescribeExpandsInjections(t *testing.T) {
	a, b := newCircularModels()
	hub := NewModel("Hub",
		Value("modelName", "A"),
		Field("state", Inject(Switch(func(InjectContext) (string, error) { return "A", nil }, Cases{"A": a}))),
		Field("pair", Inject(Lazy(func() *Model { return b }))),
	)

	got := hub.Describe()
	want := []FieldDescriptor{
		{Path: "modelName", Type: "string"},
		{Path: "state", Type: "inject:dynamic"},
		{Path: "pair", Type: "inject:B"},
		{Path: "pair.x", Type: "integer"},
		{Path: "pair.y", Type: "integer"},
		{Path: "pair.a", Type: "inject:A"},
		{Path: "pair.a.name", Type: "string"},
		{Path: "pair.a.b", Type: "inject:B"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d descriptors, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("descriptor %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestModelFieldsAreSorted(t *testing.T) {
	model := NewModel("Sorted", Fields(map[string]any{"b": 1, "a": "x", "c": true}))
	var names []string
	for _, field := range model.Fields() {
		names = append(names, field.Name)
	}
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Fatalf("unexpected field order %v", names)
	}
}

func TestModelFieldRedeclarationKeepsPosition(t *testing.T) {
	model := NewModel("Redeclared", Value("a", 1), Value("b", 2))
	model.Extend(Field("a", schema.String()))
	fields := model.Fields()
	if fields[0].Name != "a" || fields[0].Type.Name() != "string" {
		t.Fatalf("expected redeclared field in place, got %+v", fields[0])
	}
}

type profileTemplate struct {
	Name    string      `json:"name"`
	Age     int         `json:"age,omitempty"`
	Email   schema.Type `json:"email"`
	Greet   Method      `json:"greet"`
	Ignored string      `json:"-"`
	Plain   bool
	hidden  int
}

func TestModelFromStruct(t *testing.T) {
	model, err := ModelFromStruct("Profile", &profileTemplate{
		Name:  "anon",
		Age:   18,
		Email: schema.String(schema.WithValidator(func(args schema.ValidateArgs) error {
			if s, _ := args.Value.(string); s != "" && len(s) < 3 {
				return errors.New("email too short")
			}
			return nil
		})),
		Greet: func(self Accessor, _ ...any) (any, error) {
			name, err := self.Get("name")
			return "hello " + name.(string), err
		},
	})
	if err != nil {
		t.Fatalf("model from struct: %v", err)
	}

	var names []string
	for _, field := range model.Fields() {
		names = append(names, field.Name)
	}
	if len(names) != 4 || names[0] != "name" || names[1] != "age" || names[2] != "email" || names[3] != "Plain" {
		t.Fatalf("unexpected fields %v", names)
	}

	state, err := New().CreateState(model)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	if age, _ := state.Get("age"); age != 18 {
		t.Fatalf("expected default age, got %v", age)
	}
	if err := state.Set("email", "x"); err == nil {
		t.Fatalf("expected custom validator to reject short email")
	}
	greeting, err := state.Call("greet")
	if err != nil || greeting != "hello anon" {
		t.Fatalf("unexpected greeting %v err=%v", greeting, err)
	}

	if _, err := ModelFromStruct("Bad", 3); err == nil {
		t.Fatalf("expected error for non-struct template")
	}
	if _, err := ModelFromStruct("Nil", (*profileTemplate)(nil)); err == nil {
		t.Fatalf("expected error for nil template")
	}
	if _, err := ModelFromStruct("NilType", profileTemplate{}); err == nil {
		t.Fatalf("expected error for nil schema type")
	}
}
