package schema

import (
	"errors"
	"testing"
)

type label string

func TestBuiltinTypesCoerceOnDeserialize(t *testing.T) {
	cases := []struct {
		name  string
		typ   Type
		input any
		want  any
	}{
		{"number from int", Number(), 3, 3.0},
		{"number from uint8", Number(), uint8(7), 7.0},
		{"integer from float", Integer(), 4.0, 4},
		{"integer from int64", Integer(), int64(-2), -2},
		{"string from named type", String(), label("x"), "x"},
		{"boolean", Boolean(), true, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.typ.Deserialize(DeserializeArgs{Value: tc.input, Action: ActionSet})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != tc.want {
				t.Fatalf("expected %#v, got %#v", tc.want, out)
			}
			if err := tc.typ.Validate(ValidateArgs{Value: out}); err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestBuiltinTypesRejectWrongKinds(t *testing.T) {
	cases := []struct {
		name  string
		typ   Type
		input any
	}{
		{"number rejects string", Number(), "1"},
		{"integer rejects fraction", Integer(), 1.5},
		{"string rejects int", String(), 1},
		{"boolean rejects string", Boolean(), "true"},
		{"map rejects slice", Map(), []any{}},
		{"slice rejects map", Slice(), map[string]any{}},
		{"number rejects nil", Number(), nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.typ.Deserialize(DeserializeArgs{Value: tc.input, Action: ActionSet})
			if err != nil {
				t.Fatalf("unexpected deserialize error: %v", err)
			}
			if err := tc.typ.Validate(ValidateArgs{Value: out}); err == nil {
				t.Fatalf("expected validation error for %#v", tc.input)
			}
		})
	}
}

func TestNullableTypesAcceptNil(t *testing.T) {
	for _, typ := range []Type{Any(), Map(), Slice(), Number(Nullable())} {
		if err := typ.Validate(ValidateArgs{}); err != nil {
			t.Fatalf("expected %s to accept nil, got %v", typ.Name(), err)
		}
	}
}

func TestMapAndSliceConversion(t *testing.T) {
	out, err := Map().Deserialize(DeserializeArgs{Value: map[string]int{"a": 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m := out.(map[string]any); m["a"] != 1 {
		t.Fatalf("expected converted map, got %#v", out)
	}

	out, err = Slice().Deserialize(DeserializeArgs{Value: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := out.([]any); len(s) != 2 || s[1] != "b" {
		t.Fatalf("expected converted slice, got %#v", out)
	}
}

func TestDefaultsAreCopied(t *testing.T) {
	typ := Map(Default(map[string]any{"a": 1}))
	first := typ.Default().(map[string]any)
	first["a"] = 2
	second := typ.Default().(map[string]any)
	if second["a"] != 1 {
		t.Fatalf("expected default to be copied per call, got %#v", second)
	}
}

func TestHookChains(t *testing.T) {
	positive := WithValidator(func(args ValidateArgs) error {
		if args.Value.(int) < 0 {
			return errors.New("must be positive")
		}
		return nil
	})
	double := WithDeserializer(func(args DeserializeArgs) (any, error) {
		if n, ok := args.Value.(int); ok {
			return n * 2, nil
		}
		return args.Value, nil
	})
	masked := WithSerializer(func(args SerializeArgs) (any, error) {
		return args.Value.(int) + 100, nil
	})

	typ := Integer(positive, double, masked)

	out, err := typ.Deserialize(DeserializeArgs{Value: 3})
	if err != nil || out != 6 {
		t.Fatalf("expected doubled value, got %#v (%v)", out, err)
	}
	if err := typ.Validate(ValidateArgs{Value: -1}); err == nil || err.Error() != "must be positive" {
		t.Fatalf("expected custom validator error, got %v", err)
	}
	read, err := typ.Serialize(SerializeArgs{Value: 6})
	if err != nil || read != 106 {
		t.Fatalf("expected serializer output, got %#v (%v)", read, err)
	}
}

func TestInfer(t *testing.T) {
	custom := String()
	cases := []struct {
		value any
		name  string
	}{
		{nil, "any"},
		{true, "boolean"},
		{1, "integer"},
		{uint16(1), "integer"},
		{1.5, "number"},
		{"x", "string"},
		{map[string]any{}, "map"},
		{map[int]string{}, "any"},
		{[]int{1}, "slice"},
		{struct{}{}, "any"},
		{custom, "string"},
	}
	for _, tc := range cases {
		typ := Infer(tc.value)
		if typ.Name() != tc.name {
			t.Fatalf("expected %T to infer %q, got %q", tc.value, tc.name, typ.Name())
		}
	}
	if Infer(custom) != custom {
		t.Fatalf("expected Infer to return types unchanged")
	}
	if got := Infer(5).Default(); got != 5 {
		t.Fatalf("expected inferred default 5, got %#v", got)
	}
}
