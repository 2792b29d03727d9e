package model

import "fmt"

// SnapshotVersion is bumped when the persisted layout changes incompatibly.
const SnapshotVersion = 1

// Snapshot is the persistable form of a graph. It carries pinned positions
// but never viewport or selection state.
type Snapshot struct {
	Version  int    `json:"version"`
	Revision uint64 `json:"revision,omitempty"`
	Nodes    []Node `json:"nodes"`
	Edges    []Edge `json:"edges"`
}

// Clone creates a deep copy of the snapshot
func (s Snapshot) Clone() Snapshot {
	clone := s
	if s.Nodes != nil {
		clone.Nodes = make([]Node, len(s.Nodes))
		for i, n := range s.Nodes {
			clone.Nodes[i] = n.Clone()
		}
	}
	if s.Edges != nil {
		clone.Edges = make([]Edge, len(s.Edges))
		copy(clone.Edges, s.Edges)
	}
	return clone
}

// Validate checks ids are unique and every edge references a known node.
func (s *Snapshot) Validate() error {
	if s.Version > SnapshotVersion {
		return fmt.Errorf("snapshot version %d is newer than supported version %d", s.Version, SnapshotVersion)
	}
	seen := make(map[string]bool, len(s.Nodes))
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if err := n.Validate(); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate node ID: %s", n.ID)
		}
		seen[n.ID] = true
	}
	edgeSeen := make(map[string]bool, len(s.Edges))
	for i := range s.Edges {
		e := &s.Edges[i]
		if err := e.Validate(); err != nil {
			return fmt.Errorf("edge %d: %w", i, err)
		}
		if edgeSeen[e.ID] || seen[e.ID] {
			return fmt.Errorf("duplicate edge ID: %s", e.ID)
		}
		edgeSeen[e.ID] = true
		if !seen[e.Source] {
			return fmt.Errorf("edge %s: unknown source %s", e.ID, e.Source)
		}
		if !seen[e.Target] {
			return fmt.Errorf("edge %s: unknown target %s", e.ID, e.Target)
		}
	}
	return nil
}
