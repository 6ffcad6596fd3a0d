package debug

import (
	"reflect"
	"sync"
)

type fieldInfo struct {
	Name      string
	Type      reflect.Type
	Index     int
	IsPointer bool
}

type reflectionCache struct {
	mu     sync.RWMutex
	fields map[reflect.Type][]fieldInfo
}

func newReflectionCache() *reflectionCache {
	return &reflectionCache{
		fields: make(map[reflect.Type][]fieldInfo),
	}
}

// Fields returns the exported fields of a struct type, computed once per
// type and cached for subsequent expansions.
func (rc *reflectionCache) Fields(t reflect.Type) []fieldInfo {
	rc.mu.RLock()
	cached, ok := rc.fields[t]
	rc.mu.RUnlock()
	if ok {
		return cached
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if cached, ok := rc.fields[t]; ok {
		return cached
	}

	var fields []fieldInfo
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}

			fieldType := field.Type
			isPointer := fieldType.Kind() == reflect.Ptr
			if isPointer {
				fieldType = fieldType.Elem()
			}

			fields = append(fields, fieldInfo{
				Name:      field.Name,
				Type:      fieldType,
				Index:     i,
				IsPointer: isPointer,
			})
		}
	}

	rc.fields[t] = fields
	return fields
}

// Field looks up a single cached field by name.
func (rc *reflectionCache) Field(t reflect.Type, name string) (fieldInfo, bool) {
	for _, f := range rc.Fields(t) {
		if f.Name == name {
			return f, true
		}
	}
	return fieldInfo{}, false
}
