// Package layout computes graph-space positions for diagram nodes.
//
// Layout is a pure function of (graph revision, Config): the same View and
// Config always produce the same positions. Nodes are split into groups by
// kind, each group is placed by its own Strategy, and groups are then laid
// side by side. Pinned nodes keep their pinned position verbatim.
package layout

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// Strategy names shipped with the engine.
const (
	StrategyTree    = "tree"
	StrategyLayered = "layered"
	StrategyForce   = "force"
	StrategyGrid    = "grid"
)

// Group assigns node kinds to a strategy.
type Group struct {
	Name     string           `yaml:"name" toml:"name" json:"name"`
	Strategy string           `yaml:"strategy" toml:"strategy" json:"strategy" validate:"required"`
	Kinds    []model.NodeKind `yaml:"kinds" toml:"kinds" json:"kinds" validate:"required,min=1"`
}

// Config controls node sizing, spacing and strategy selection.
type Config struct {
	NodeWidth       float64 `yaml:"node_width" toml:"node_width" json:"node_width" validate:"gt=0"`
	NodeHeight      float64 `yaml:"node_height" toml:"node_height" json:"node_height" validate:"gt=0"`
	HSpacing        float64 `yaml:"h_spacing" toml:"h_spacing" json:"h_spacing" validate:"gte=0"`
	VSpacing        float64 `yaml:"v_spacing" toml:"v_spacing" json:"v_spacing" validate:"gte=0"`
	GroupGap        float64 `yaml:"group_gap" toml:"group_gap" json:"group_gap" validate:"gte=0"`
	Groups          []Group `yaml:"groups" toml:"groups" json:"groups" validate:"dive"`
	DefaultStrategy string  `yaml:"default_strategy" toml:"default_strategy" json:"default_strategy" validate:"required"`
	ForceIterations int     `yaml:"force_iterations" toml:"force_iterations" json:"force_iterations" validate:"gte=1,lte=5000"`
	Seed            int64   `yaml:"seed" toml:"seed" json:"seed"`
}

// DefaultConfig lays argument trees out hierarchically and topic maps with
// the force-directed strategy.
func DefaultConfig() Config {
	return Config{
		NodeWidth:  160,
		NodeHeight: 48,
		HSpacing:   32,
		VSpacing:   64,
		GroupGap:   120,
		Groups: []Group{
			{Name: "topics", Strategy: StrategyForce, Kinds: []model.NodeKind{model.KindTopic, model.KindProblem, model.KindSolution, model.KindEffect}},
			{Name: "arguments", Strategy: StrategyTree, Kinds: []model.NodeKind{model.KindClaim, model.KindCriterion}},
		},
		DefaultStrategy: StrategyGrid,
		ForceIterations: 200,
		Seed:            1,
	}
}

// Key identifies the configuration for memoization. Two configs with the
// same Key produce the same layout for the same graph revision.
func (c Config) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%g/%g/%g/%g/%g/%s/%d/%d",
		c.NodeWidth, c.NodeHeight, c.HSpacing, c.VSpacing, c.GroupGap,
		c.DefaultStrategy, c.ForceIterations, c.Seed)
	for _, g := range c.Groups {
		kinds := make([]string, len(g.Kinds))
		for i, k := range g.Kinds {
			kinds[i] = string(k)
		}
		sort.Strings(kinds)
		fmt.Fprintf(&b, "|%s:%s:%s", g.Name, g.Strategy, strings.Join(kinds, ","))
	}
	h := fnv.New64a()
	h.Write([]byte(b.String()))
	return fmt.Sprintf("%016x", h.Sum64())
}

// StrategyFor returns the strategy name and group index for a kind.
// Kinds not listed in any group fall into index len(Groups).
func (c Config) StrategyFor(kind model.NodeKind) (string, int) {
	for i, g := range c.Groups {
		for _, k := range g.Kinds {
			if k == kind {
				return g.Strategy, i
			}
		}
	}
	return c.DefaultStrategy, len(c.Groups)
}

func (c Config) cellW() float64 { return c.NodeWidth + c.HSpacing }
func (c Config) cellH() float64 { return c.NodeHeight + c.VSpacing }
