package model

import (
	"fmt"
	"sort"
)

// KindInfo describes a registered node kind
type KindInfo struct {
	Kind  NodeKind
	Label string
	Order int // Sort order among siblings, lower first
}

// Kinds is the host-configured set of node and relation kinds.
// The zero value accepts any non-empty kind.
type Kinds struct {
	nodes     map[NodeKind]KindInfo
	relations map[RelationKind]bool
}

// DefaultKinds returns a registry with the built-in topic/claim kinds.
func DefaultKinds() *Kinds {
	k := &Kinds{}
	for i, kind := range []NodeKind{KindTopic, KindProblem, KindSolution, KindEffect, KindCriterion, KindClaim} {
		k.RegisterNode(KindInfo{Kind: kind, Label: string(kind), Order: i})
	}
	for _, rel := range []RelationKind{RelSupports, RelOpposes, RelRelatesTo, RelCauses, RelAddresses, RelCriterionFor} {
		k.RegisterRelation(rel)
	}
	return k
}

// RegisterNode adds or replaces a node kind
func (k *Kinds) RegisterNode(info KindInfo) {
	if k.nodes == nil {
		k.nodes = make(map[NodeKind]KindInfo)
	}
	if info.Label == "" {
		info.Label = string(info.Kind)
	}
	k.nodes[info.Kind] = info
}

// RegisterRelation adds a relation kind
func (k *Kinds) RegisterRelation(rel RelationKind) {
	if k.relations == nil {
		k.relations = make(map[RelationKind]bool)
	}
	k.relations[rel] = true
}

// CheckNode returns an error if kind is not acceptable
func (k *Kinds) CheckNode(kind NodeKind) error {
	if !kind.IsValid() {
		return fmt.Errorf("node kind cannot be empty")
	}
	if k == nil || len(k.nodes) == 0 {
		return nil
	}
	if _, ok := k.nodes[kind]; !ok {
		return fmt.Errorf("unregistered node kind: %q", kind)
	}
	return nil
}

// CheckRelation returns an error if rel is not acceptable
func (k *Kinds) CheckRelation(rel RelationKind) error {
	if !rel.IsValid() {
		return fmt.Errorf("relation kind cannot be empty")
	}
	if k == nil || len(k.relations) == 0 {
		return nil
	}
	if !k.relations[rel] {
		return fmt.Errorf("unregistered relation kind: %q", rel)
	}
	return nil
}

// Order returns the sort rank of kind. Unregistered kinds sort last.
func (k *Kinds) Order(kind NodeKind) int {
	if k != nil {
		if info, ok := k.nodes[kind]; ok {
			return info.Order
		}
	}
	return 1 << 20
}

// NodeKinds lists the registered node kinds in sort order
func (k *Kinds) NodeKinds() []KindInfo {
	if k == nil {
		return nil
	}
	out := make([]KindInfo, 0, len(k.nodes))
	for _, info := range k.nodes {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// RelationKinds lists the registered relations alphabetically
func (k *Kinds) RelationKinds() []RelationKind {
	if k == nil {
		return nil
	}
	out := make([]RelationKind, 0, len(k.relations))
	for rel := range k.relations {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
