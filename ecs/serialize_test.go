package ecs

import (
	"reflect"
	"testing"
)

type plainComp struct {
	Name    string
	Hits    int
	Ratio   float64
	Scores  []int
	Lookup  map[string]float64
	hidden  int
	Channel chan int
}

func TestDefaultSerializeKeepsPlainFields(t *testing.T) {
	c := &plainComp{
		Name:   "boss",
		Hits:   3,
		Ratio:  0.5,
		Scores: []int{1, 2},
		Lookup: map[string]float64{"a": 1.5},
		hidden: 9,
	}

	data, dropped, err := defaultSerialize(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped field (Channel), got %d", dropped)
	}
	if data["Name"] != "boss" || data["Hits"] != 3 {
		t.Errorf("unexpected payload: %v", data)
	}
	if _, ok := data["Channel"]; ok {
		t.Error("non-plain field must not appear in the payload")
	}
	if _, ok := data["hidden"]; ok {
		t.Error("unexported field must not appear in the payload")
	}
}

func TestDefaultDeserializeRoundTrip(t *testing.T) {
	src := &plainComp{
		Name:   "boss",
		Hits:   3,
		Ratio:  0.5,
		Scores: []int{1, 2, 3},
		Lookup: map[string]float64{"a": 1.5},
	}
	data, _, err := defaultSerialize(src)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	dst := &plainComp{}
	if err := defaultDeserialize(dst, data); err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if dst.Name != src.Name || dst.Hits != src.Hits || dst.Ratio != src.Ratio {
		t.Errorf("scalar fields did not round-trip: %+v", dst)
	}
	if !reflect.DeepEqual(dst.Scores, src.Scores) {
		t.Errorf("slice field did not round-trip: %v", dst.Scores)
	}
	if !reflect.DeepEqual(dst.Lookup, src.Lookup) {
		t.Errorf("map field did not round-trip: %v", dst.Lookup)
	}
}

func TestDefaultDeserializeJSONShapes(t *testing.T) {
	// JSON decoding yields float64 numbers, []any slices and
	// map[string]any maps; assignment must convert all of them.
	data := map[string]any{
		"Hits":   float64(7),
		"Ratio":  float64(0.25),
		"Scores": []any{float64(4), float64(5)},
		"Lookup": map[string]any{"x": float64(2.5)},
	}

	dst := &plainComp{}
	if err := defaultDeserialize(dst, data); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if dst.Hits != 7 {
		t.Errorf("expected Hits 7, got %d", dst.Hits)
	}
	if dst.Ratio != 0.25 {
		t.Errorf("expected Ratio 0.25, got %f", dst.Ratio)
	}
	if !reflect.DeepEqual(dst.Scores, []int{4, 5}) {
		t.Errorf("expected Scores [4 5], got %v", dst.Scores)
	}
	if dst.Lookup["x"] != 2.5 {
		t.Errorf("expected Lookup[x] 2.5, got %v", dst.Lookup)
	}
}

func TestDefaultDeserializeIgnoresUnknownKeys(t *testing.T) {
	dst := &plainComp{Name: "keep"}
	if err := defaultDeserialize(dst, map[string]any{"Bogus": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Name != "keep" {
		t.Error("unknown keys must not disturb existing fields")
	}
}

func TestSerializePrefersCapability(t *testing.T) {
	c := &capComp{V: 11}
	data, dropped, err := serializeComponent(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 0 {
		t.Errorf("capability path must not drop fields, got %d", dropped)
	}
	if data["custom"] != 11 {
		t.Errorf("expected custom payload, got %v", data)
	}
}

type capComp struct{ V int }

func (c *capComp) Serialize() (map[string]any, error) {
	return map[string]any{"custom": c.V}, nil
}

func (c *capComp) Deserialize(data map[string]any) error {
	if v, ok := data["custom"].(int); ok {
		c.V = v
	}
	return nil
}

func TestPlainType(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{int(0), true},
		{"s", true},
		{3.14, true},
		{[]string{}, true},
		{[2]int{}, true},
		{map[string]int{}, true},
		{map[int]int{}, false},
		{&plainComp{}, false},
		{make(chan int), false},
		{func() {}, false},
	}

	for _, tt := range tests {
		if got := plainType(reflect.TypeOf(tt.value)); got != tt.want {
			t.Errorf("plainType(%T): expected %v, got %v", tt.value, tt.want, got)
		}
	}
}

func TestDefaultSerializeNonStruct(t *testing.T) {
	score := 42
	data, _, err := defaultSerialize(&score)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data[valueKey] != 42 {
		t.Errorf("expected value payload 42, got %v", data)
	}

	out := 0
	if err := defaultDeserialize(&out, data); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if out != 42 {
		t.Errorf("expected 42, got %d", out)
	}
}
