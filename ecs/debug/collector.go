// Package debug exposes read-only, JSON-serializable views of a scene for
// remote inspection tooling. The collector only reads through the public
// container and storage APIs, so inspecting a scene never invalidates
// query caches or touches component pools.
package debug

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/plus3/stagehand/ecs"
)

var (
	ErrEntityNotFound    = errors.New("debug: entity not found")
	ErrComponentNotFound = errors.New("debug: component not found")
)

// ComponentSummary is the shallow per-component entry in an entity summary.
type ComponentSummary struct {
	Type           string `json:"type"`
	EstimatedBytes int    `json:"estimatedBytes"`
}

// EntitySummary is the shallow per-entity view served to a debugger
// frontend. Component payloads are not included; Expand serves those on
// demand one subtree at a time.
type EntitySummary struct {
	Id             ecs.EntityId       `json:"id"`
	Name           string             `json:"name"`
	Enabled        bool               `json:"enabled"`
	Active         bool               `json:"active"`
	Tag            int                `json:"tag"`
	UpdateOrder    int                `json:"updateOrder"`
	Parent         ecs.EntityId       `json:"parent,omitempty"`
	Children       []ecs.EntityId     `json:"children,omitempty"`
	Components     []ComponentSummary `json:"components"`
	EstimatedBytes int                `json:"estimatedBytes"`
}

// Node is one level of a lazily expanded component subtree. Scalar leaves
// carry their value inline; composite children are listed by name so the
// frontend can request the next level with a longer path.
type Node struct {
	Path     []string   `json:"path,omitempty"`
	Kind     string     `json:"kind"`
	Value    any        `json:"value,omitempty"`
	Children []ChildRef `json:"children,omitempty"`
}

// ChildRef names one child of a Node: a struct field, a slice index, or a
// map key.
type ChildRef struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value any    `json:"value,omitempty"`
}

// Collector walks a scene's entities and components to build summaries
// for the remote debugger boundary.
type Collector struct {
	container *ecs.EntityContainer
	storage   *ecs.Storage
	cache     *reflectionCache
}

func NewCollector(scene *ecs.Scene) *Collector {
	return &Collector{
		container: scene.Container(),
		storage:   scene.Storage(),
		cache:     newReflectionCache(),
	}
}

// Summaries returns one summary per live entity, sorted by name then id.
func (c *Collector) Summaries() []EntitySummary {
	summaries := make([]EntitySummary, 0, c.container.Len())
	c.container.Each(func(e *ecs.Entity) bool {
		summaries = append(summaries, c.summarize(e))
		return true
	})

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Name != summaries[j].Name {
			return summaries[i].Name < summaries[j].Name
		}
		return summaries[i].Id < summaries[j].Id
	})
	return summaries
}

// Summary returns the summary for a single entity.
func (c *Collector) Summary(id ecs.EntityId) (EntitySummary, error) {
	e := c.container.FindById(id)
	if e == nil {
		return EntitySummary{}, fmt.Errorf("%w: id %d", ErrEntityNotFound, id)
	}
	return c.summarize(e), nil
}

func (c *Collector) summarize(e *ecs.Entity) EntitySummary {
	registry := c.storage.Registry()
	types := registry.TypesFor(e.Signature())

	components := make([]ComponentSummary, 0, len(types))
	total := 0
	for _, t := range types {
		opts, _ := registry.Options(t)
		components = append(components, ComponentSummary{
			Type:           t.String(),
			EstimatedBytes: opts.SizeEstimate,
		})
		total += opts.SizeEstimate
	}

	var children []ecs.EntityId
	if len(e.Children) > 0 {
		children = append(children, e.Children...)
	}

	return EntitySummary{
		Id:             e.Id,
		Name:           e.Name,
		Enabled:        e.Enabled,
		Active:         e.Active,
		Tag:            e.Tag,
		UpdateOrder:    e.UpdateOrder,
		Parent:         e.Parent,
		Children:       children,
		Components:     components,
		EstimatedBytes: total,
	}
}

// Expand resolves one subtree of a single component: it walks path (struct
// field names, slice indices, or map keys) from the component root and
// returns that node with one level of children. The walk reads the live
// instance directly and descends only along the requested path.
func (c *Collector) Expand(id ecs.EntityId, componentType string, path ...string) (*Node, error) {
	e := c.container.FindById(id)
	if e == nil {
		return nil, fmt.Errorf("%w: id %d", ErrEntityNotFound, id)
	}

	registry := c.storage.Registry()
	t, ok := registry.TypeByName(componentType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrComponentNotFound, componentType)
	}

	instance := c.storage.GetComponent(id, t)
	if instance == nil {
		return nil, fmt.Errorf("%w: entity %d has no %s", ErrComponentNotFound, id, componentType)
	}

	val := reflect.ValueOf(instance)
	for i, step := range path {
		next, err := c.step(val, step)
		if err != nil {
			return nil, fmt.Errorf("at %v: %w", path[:i+1], err)
		}
		val = next
	}

	node := c.render(val)
	node.Path = path
	return node, nil
}

// step descends one path segment from val.
func (c *Collector) step(val reflect.Value, segment string) (reflect.Value, error) {
	val = deref(val)
	if !val.IsValid() {
		return reflect.Value{}, errors.New("nil value")
	}

	switch val.Kind() {
	case reflect.Struct:
		field, ok := c.cache.Field(val.Type(), segment)
		if !ok {
			return reflect.Value{}, fmt.Errorf("no field %q on %s", segment, val.Type())
		}
		return val.Field(field.Index), nil

	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= val.Len() {
			return reflect.Value{}, fmt.Errorf("index %q out of range 0..%d", segment, val.Len()-1)
		}
		return val.Index(idx), nil

	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("cannot index %s by string key", val.Type())
		}
		entry := val.MapIndex(reflect.ValueOf(segment).Convert(val.Type().Key()))
		if !entry.IsValid() {
			return reflect.Value{}, fmt.Errorf("no key %q", segment)
		}
		return entry, nil

	default:
		return reflect.Value{}, fmt.Errorf("cannot descend into %s", val.Kind())
	}
}

// render builds a Node for val with exactly one level of children.
func (c *Collector) render(val reflect.Value) *Node {
	val = deref(val)
	if !val.IsValid() {
		return &Node{Kind: "nil"}
	}

	switch val.Kind() {
	case reflect.Struct:
		fields := c.cache.Fields(val.Type())
		node := &Node{Kind: "struct", Children: make([]ChildRef, 0, len(fields))}
		for _, f := range fields {
			node.Children = append(node.Children, c.childRef(f.Name, val.Field(f.Index)))
		}
		return node

	case reflect.Slice, reflect.Array:
		node := &Node{Kind: "slice", Children: make([]ChildRef, 0, val.Len())}
		for i := 0; i < val.Len(); i++ {
			node.Children = append(node.Children, c.childRef(strconv.Itoa(i), val.Index(i)))
		}
		return node

	case reflect.Map:
		keys := make([]string, 0, val.Len())
		for _, k := range val.MapKeys() {
			keys = append(keys, fmt.Sprint(k.Interface()))
		}
		sort.Strings(keys)

		node := &Node{Kind: "map", Children: make([]ChildRef, 0, len(keys))}
		for _, k := range keys {
			entry := val.MapIndex(reflect.ValueOf(k).Convert(val.Type().Key()))
			if !entry.IsValid() {
				continue
			}
			node.Children = append(node.Children, c.childRef(k, entry))
		}
		return node

	default:
		return &Node{Kind: "value", Value: val.Interface()}
	}
}

func (c *Collector) childRef(name string, val reflect.Value) ChildRef {
	val = deref(val)
	if !val.IsValid() {
		return ChildRef{Name: name, Kind: "nil"}
	}

	switch val.Kind() {
	case reflect.Struct:
		return ChildRef{Name: name, Kind: "struct"}
	case reflect.Slice, reflect.Array:
		return ChildRef{Name: name, Kind: "slice"}
	case reflect.Map:
		return ChildRef{Name: name, Kind: "map"}
	default:
		return ChildRef{Name: name, Kind: "value", Value: val.Interface()}
	}
}

func deref(val reflect.Value) reflect.Value {
	for val.IsValid() && (val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface) {
		if val.IsNil() {
			return reflect.Value{}
		}
		val = val.Elem()
	}
	return val
}
