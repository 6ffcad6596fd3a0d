package ecs

import (
	"encoding/json"
	"time"
)

// SnapshotVersion is the format version stamped on every capture. Snapshots
// are not compatible across versions; consumers should refuse mismatches.
const SnapshotVersion = 1

// SnapshotType distinguishes full captures from incremental diffs.
type SnapshotType string

const (
	SnapshotFull        SnapshotType = "full"
	SnapshotIncremental SnapshotType = "incremental"
)

// ComponentSnapshotConfig carries the per-type snapshot declaration so a
// consumer can honor sync ordering and compression without access to the
// originating registry. Emitted only when any value is non-default.
type ComponentSnapshotConfig struct {
	SyncPriority int    `json:"syncPriority,omitempty"`
	Compression  string `json:"compression,omitempty"`
	Incremental  bool   `json:"incremental,omitempty"`
}

// ComponentSnapshot is one component's serialized contribution: the registry
// type name used to resolve it on restore, the signature bit as component
// id, and an opaque plain-data payload.
type ComponentSnapshot struct {
	Type    string                   `json:"type"`
	Id      int                      `json:"id"`
	Data    map[string]any           `json:"data"`
	Enabled bool                     `json:"enabled"`
	Config  *ComponentSnapshotConfig `json:"config,omitempty"`
}

// EntitySnapshot embeds entity identity and flags plus the component
// snapshots captured for it. In incremental snapshots only the changed
// components appear.
type EntitySnapshot struct {
	Id          EntityId            `json:"id"`
	Name        string              `json:"name"`
	Enabled     bool                `json:"enabled"`
	Active      bool                `json:"active"`
	Tag         int                 `json:"tag"`
	UpdateOrder int                 `json:"updateOrder"`
	Components  []ComponentSnapshot `json:"components"`
	Children    []EntityId          `json:"children,omitempty"`
	Parent      EntityId            `json:"parent,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// component returns the embedded snapshot for the given type name, or nil.
func (es *EntitySnapshot) component(typeName string) *ComponentSnapshot {
	for i := range es.Components {
		if es.Components[i].Type == typeName {
			return &es.Components[i]
		}
	}
	return nil
}

// Snapshot is an immutable, timestamped record of scene state. It holds no
// references to live entities and outlives the entities it was taken from.
// Entity snapshots are ordered by ascending id for determinism.
type Snapshot struct {
	Entities       []EntitySnapshot `json:"entities"`
	Timestamp      time.Time        `json:"timestamp"`
	Version        int              `json:"version"`
	Type           SnapshotType     `json:"type"`
	BaseSnapshotId string           `json:"baseSnapshotId,omitempty"`
}

// EntityById returns the embedded entity snapshot with the given id, or nil.
// Entities are sorted by id, so this is a binary search.
func (s *Snapshot) EntityById(id EntityId) *EntitySnapshot {
	lo, hi := 0, len(s.Entities)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case s.Entities[mid].Id < id:
			lo = mid + 1
		case s.Entities[mid].Id > id:
			hi = mid
		default:
			return &s.Entities[mid]
		}
	}
	return nil
}

// Encode serializes the snapshot to its on-the-wire JSON form. Any I/O on
// the encoded bytes is the caller's responsibility.
func (s *Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses a snapshot from its on-the-wire JSON form.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
