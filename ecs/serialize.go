package ecs

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Serializable is the capability a component implements to control its own
// snapshot payload. Payloads are plain data: values that survive a JSON
// round-trip unchanged in meaning.
type Serializable interface {
	Serialize() (map[string]any, error)
	Deserialize(data map[string]any) error
}

// ChangeDetector is the capability incremental capture consults. base is
// the component's payload in the base snapshot. Components without this
// capability are conservatively treated as always changed.
type ChangeDetector interface {
	HasChanged(base map[string]any) bool
}

// Enableable is the capability for components that carry their own enabled
// flag. Snapshots record it and restore puts it back; components without
// the capability are captured as enabled.
type Enableable interface {
	Enabled() bool
	SetEnabled(enabled bool)
}

func componentEnabled(instance any) bool {
	if en, ok := instance.(Enableable); ok {
		return en.Enabled()
	}
	return true
}

func applyEnabled(instance any, enabled bool) {
	if en, ok := instance.(Enableable); ok {
		en.SetEnabled(enabled)
	}
}

// errNotPlainData marks a component whose value cannot be expressed as
// plain data at all (and so contributes nothing to a snapshot).
var errNotPlainData = errors.New("component value is not plain data")

// valueKey holds a non-struct component's payload in its data map, so
// primitive component types round-trip through the same map-shaped payload
// as struct components.
const valueKey = "value"

type fieldInfo struct {
	name  string
	index int
}

// fieldCache memoizes the exported-field tables the default serializer
// walks. Shared across scenes; reads dominate.
type fieldCache struct {
	mu     sync.RWMutex
	fields map[reflect.Type][]fieldInfo
}

var serializeFields = &fieldCache{fields: make(map[reflect.Type][]fieldInfo)}

func (fc *fieldCache) get(t reflect.Type) []fieldInfo {
	fc.mu.RLock()
	cached, ok := fc.fields[t]
	fc.mu.RUnlock()
	if ok {
		return cached
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if cached, ok := fc.fields[t]; ok {
		return cached
	}

	var fields []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		fields = append(fields, fieldInfo{name: field.Name, index: i})
	}
	fc.fields[t] = fields
	return fields
}

// serializeComponent produces a component's snapshot payload, preferring the
// Serializable capability and falling back to the restricted field walk.
// dropped counts fields the fallback skipped as non-plain-data.
func serializeComponent(instance any) (data map[string]any, dropped int, err error) {
	if s, ok := instance.(Serializable); ok {
		data, err = s.Serialize()
		return data, 0, err
	}
	return defaultSerialize(instance)
}

// deserializeComponent applies a snapshot payload onto an existing component
// instance.
func deserializeComponent(instance any, data map[string]any) error {
	if s, ok := instance.(Serializable); ok {
		return s.Deserialize(data)
	}
	return defaultDeserialize(instance, data)
}

// defaultSerialize walks exported fields and keeps only those whose values
// are plain data: primitives, and slices/arrays/string-keyed maps thereof.
// Anything else (pointers, nested structs, funcs, interfaces) is dropped
// from the payload, never an error; arbitrary object graphs are out of
// bounds for the default path.
func defaultSerialize(instance any) (map[string]any, int, error) {
	v := reflect.ValueOf(instance)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, 0, errNotPlainData
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		if !plainType(v.Type()) {
			return nil, 0, errNotPlainData
		}
		return map[string]any{valueKey: v.Interface()}, 0, nil
	}

	data := make(map[string]any)
	dropped := 0
	for _, f := range serializeFields.get(v.Type()) {
		fv := v.Field(f.index)
		if !plainType(fv.Type()) {
			dropped++
			continue
		}
		data[f.name] = fv.Interface()
	}
	return data, dropped, nil
}

// defaultDeserialize assigns payload entries back onto exported fields.
// Unknown keys are ignored; numeric values are converted (JSON decoding
// yields float64 for every number).
func defaultDeserialize(instance any, data map[string]any) error {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("deserialize target must be a non-nil pointer, got %T", instance)
	}
	v = v.Elem()

	if v.Kind() != reflect.Struct {
		raw, ok := data[valueKey]
		if !ok {
			return nil
		}
		if !assignPlain(v, raw) {
			return fmt.Errorf("cannot assign %T to %s", raw, v.Type())
		}
		return nil
	}

	for _, f := range serializeFields.get(v.Type()) {
		raw, ok := data[f.name]
		if !ok {
			continue
		}
		fv := v.Field(f.index)
		if !fv.CanSet() {
			continue
		}
		if !assignPlain(fv, raw) {
			return fmt.Errorf("cannot assign %T to field %s.%s", raw, v.Type(), f.name)
		}
	}
	return nil
}

// plainType reports whether every value of t survives a plain-data encoding.
func plainType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice, reflect.Array:
		return plainType(t.Elem())
	case reflect.Map:
		return t.Key().Kind() == reflect.String && plainType(t.Elem())
	default:
		return false
	}
}

// assignPlain sets dst from a plain-data value, converting between numeric
// representations and rebuilding slices and maps element by element when the
// source arrives as the generic []any / map[string]any shapes JSON decoding
// produces.
func assignPlain(dst reflect.Value, src any) bool {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return true
	}

	sv := reflect.ValueOf(src)
	if sv.Type() == dst.Type() {
		dst.Set(sv)
		return true
	}

	switch dst.Kind() {
	case reflect.Bool:
		if sv.Kind() == reflect.Bool {
			dst.SetBool(sv.Bool())
			return true
		}
	case reflect.String:
		if sv.Kind() == reflect.String {
			dst.SetString(sv.String())
			return true
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if numericKind(sv.Kind()) && sv.Type().ConvertibleTo(dst.Type()) {
			dst.Set(sv.Convert(dst.Type()))
			return true
		}
	case reflect.Slice:
		if sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array {
			return false
		}
		out := reflect.MakeSlice(dst.Type(), sv.Len(), sv.Len())
		for i := 0; i < sv.Len(); i++ {
			if !assignPlain(out.Index(i), sv.Index(i).Interface()) {
				return false
			}
		}
		dst.Set(out)
		return true
	case reflect.Array:
		if sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array {
			return false
		}
		if sv.Len() != dst.Len() {
			return false
		}
		for i := 0; i < sv.Len(); i++ {
			if !assignPlain(dst.Index(i), sv.Index(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Map:
		if sv.Kind() != reflect.Map || sv.Type().Key().Kind() != reflect.String {
			return false
		}
		out := reflect.MakeMapWithSize(dst.Type(), sv.Len())
		iter := sv.MapRange()
		for iter.Next() {
			elem := reflect.New(dst.Type().Elem()).Elem()
			if !assignPlain(elem, iter.Value().Interface()) {
				return false
			}
			out.SetMapIndex(iter.Key().Convert(dst.Type().Key()), elem)
		}
		dst.Set(out)
		return true
	}
	return false
}

func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
