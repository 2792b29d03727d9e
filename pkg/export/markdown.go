package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

// Markdown renders the map as an outline: a summary, a Mermaid diagram,
// then every topic tree with its claims nested under what they argue.
func Markdown(v *graph.View, title string) string {
	var sb strings.Builder

	if title == "" {
		title = "Topic map"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format(time.RFC1123)))

	// Summary
	sb.WriteString("## Summary\n\n")
	counts := make(map[model.NodeKind]int)
	for _, n := range v.Nodes() {
		counts[n.Kind]++
	}
	sb.WriteString(fmt.Sprintf("- **Nodes**: %d\n", v.NodeCount()))
	sb.WriteString(fmt.Sprintf("- **Edges**: %d\n", v.EdgeCount()))
	listed := make(map[model.NodeKind]bool)
	for _, k := range v.Kinds().NodeKinds() {
		listed[k.Kind] = true
		if c := counts[k.Kind]; c > 0 {
			sb.WriteString(fmt.Sprintf("- **%s**: %d\n", k.Label, c))
		}
	}
	var extra []string
	for k := range counts {
		if !listed[k] {
			extra = append(extra, string(k))
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		sb.WriteString(fmt.Sprintf("- **%s**: %d\n", k, counts[model.NodeKind(k)]))
	}
	sb.WriteString("\n")

	// Diagram (Mermaid)
	sb.WriteString("## Diagram\n\n")
	sb.WriteString("```mermaid\ngraph TD\n")
	ids := make(map[string]string, v.NodeCount())
	for i, n := range v.Nodes() {
		ids[n.ID] = fmt.Sprintf("n%d", i)
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", ids[n.ID], mermaidLabel(n.Summary())))
	}
	for _, e := range v.Edges() {
		arrow := "-->"
		switch e.Relation {
		case model.RelOpposes:
			arrow = "-.->"
		case model.RelSupports:
			arrow = "==>"
		}
		sb.WriteString(fmt.Sprintf("    %s %s|%s| %s\n", ids[e.Source], arrow, e.Relation, ids[e.Target]))
	}
	if v.NodeCount() == 0 {
		sb.WriteString("    Empty[No nodes]\n")
	}
	sb.WriteString("```\n\n")

	// Outline
	sb.WriteString("## Outline\n\n")
	for _, root := range v.Forest(nil) {
		root.Walk(func(t *graph.TreeNode) {
			indent := strings.Repeat("  ", t.Depth)
			rel := ""
			if t.Relation != "" {
				rel = fmt.Sprintf("_%s_ ", t.Relation)
			}
			pin := ""
			if t.Node.IsPinned() {
				pin = " (pinned)"
			}
			sb.WriteString(fmt.Sprintf("%s- %s**%s** %s%s <a id=\"%s\"></a>\n",
				indent, rel, t.Node.Kind, t.Node.Summary(), pin, anchor(t.Node)))
		})
	}
	sb.WriteString("\n")

	// Details for nodes carrying more than a one-line summary
	var detailed []*model.Node
	for _, n := range v.Nodes() {
		if strings.Contains(strings.TrimSpace(n.Text), "\n") || len(n.Metadata) > 0 {
			detailed = append(detailed, n)
		}
	}
	if len(detailed) > 0 {
		sb.WriteString("---\n\n")
		for _, n := range detailed {
			sb.WriteString(fmt.Sprintf("### [%s](#%s)\n\n", n.Summary(), anchor(n)))
			sb.WriteString(strings.TrimSpace(n.Text) + "\n\n")
			if len(n.Metadata) > 0 {
				sb.WriteString("| Key | Value |\n|---|---|\n")
				for _, k := range sortedKeys(n.Metadata) {
					sb.WriteString(fmt.Sprintf("| %s | %s |\n", k, n.Metadata[k]))
				}
				sb.WriteString("\n")
			}
		}
	}

	return sb.String()
}

func anchor(n *model.Node) string {
	a := model.KebabCase(n.Summary())
	if a == "" {
		return model.KebabCase(n.ID)
	}
	return a
}

func mermaidLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.NewReplacer("[", "", "]", "", "(", "", ")", "", "|", "/").Replace(s)
	if r := []rune(s); len(r) > 30 {
		s = string(r[:27]) + "..."
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
