package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

// DetailModel is the side panel describing the selected node.
type DetailModel struct {
	viewport viewport.Model
	renderer *glamour.TermRenderer
	nodeID   string
	revision uint64
	width    int
	theme    Theme
}

// NewDetailModel creates an empty panel.
func NewDetailModel(theme Theme) DetailModel {
	return DetailModel{viewport: viewport.New(0, 0), theme: theme}
}

// SetSize resizes the panel and re-wraps its content.
func (d *DetailModel) SetSize(width, height int) {
	if width == d.width && height == d.viewport.Height {
		return
	}
	d.width = width
	d.viewport.Width = width
	d.viewport.Height = height
	d.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	d.revision = 0
}

// NodeID returns the node currently shown.
func (d *DetailModel) NodeID() string { return d.nodeID }

// Show renders node id from v. It is a no-op when neither the node nor the
// revision changed.
func (d *DetailModel) Show(v *graph.View, id string) {
	if id == d.nodeID && v.Revision() == d.revision && d.revision != 0 {
		return
	}
	if id != d.nodeID {
		d.viewport.GotoTop()
	}
	d.nodeID, d.revision = id, v.Revision()

	n, ok := v.Node(id)
	if !ok {
		d.viewport.SetContent("No node selected")
		return
	}
	md := NodeMarkdown(v, n)
	if d.renderer == nil {
		d.viewport.SetContent(md)
		return
	}
	rendered, err := d.renderer.Render(md)
	if err != nil {
		d.viewport.SetContent(fmt.Sprintf("Error rendering markdown: %v", err))
		return
	}
	d.viewport.SetContent(rendered)
}

// Update scrolls the panel.
func (d DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd
}

// View renders the panel.
func (d DetailModel) View() string {
	return d.viewport.View()
}

// NodeMarkdown describes a node and its links as markdown.
func NodeMarkdown(v *graph.View, n *model.Node) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", n.Summary()))

	pinned := "no"
	if n.IsPinned() {
		pinned = fmt.Sprintf("at %.0f, %.0f", n.Pinned.X, n.Pinned.Y)
	}
	sb.WriteString("| Kind | ID | Pinned |\n|---|---|---|\n")
	sb.WriteString(fmt.Sprintf("| **%s** | `%s` | %s |\n\n", n.Kind, n.ID, pinned))

	if p, ok := v.ParentOf(n.ID); ok {
		sb.WriteString(fmt.Sprintf("Parent: **%s** %s\n\n", p.Kind, p.Summary()))
	}

	if body := strings.TrimSpace(n.Text); strings.Contains(body, "\n") {
		sb.WriteString("### Text\n")
		sb.WriteString(body + "\n\n")
	}

	if kids := v.Children(n.ID); len(kids) > 0 {
		sb.WriteString(fmt.Sprintf("### Children (%d)\n", len(kids)))
		for _, c := range kids {
			sb.WriteString(fmt.Sprintf("- **%s** %s\n", c.Kind, c.Summary()))
		}
		sb.WriteString("\n")
	}

	if edges := v.Incident(n.ID); len(edges) > 0 {
		sb.WriteString(fmt.Sprintf("### Links (%d)\n", len(edges)))
		for _, e := range edges {
			otherID, dir := e.Target, "→"
			if e.Target == n.ID {
				otherID, dir = e.Source, "←"
			}
			other := otherID
			if o, ok := v.Node(otherID); ok {
				other = o.Summary()
			}
			sb.WriteString(fmt.Sprintf("- %s _%s_ %s\n", dir, e.Relation, other))
		}
		sb.WriteString("\n")
	}

	if tree, err := v.ClaimTree(n.ID); err == nil && hasArgument(tree) {
		sb.WriteString(fmt.Sprintf("### Argument (%d)\n", tree.Size()-1))
		shown := 0
		for _, c := range tree.Children {
			c.Walk(func(t *graph.TreeNode) {
				if shown == argumentLines {
					sb.WriteString("- …\n")
				}
				shown++
				if shown > argumentLines {
					return
				}
				rel := "under"
				if t.Relation != "" {
					rel = string(t.Relation)
				}
				sb.WriteString(fmt.Sprintf("%s- _%s_ %s\n", strings.Repeat("  ", t.Depth-1), rel, t.Node.Summary()))
			})
		}
		sb.WriteString("\n")
	}

	if len(n.Metadata) > 0 {
		keys := make([]string, 0, len(n.Metadata))
		for k := range n.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("### Metadata\n| Key | Value |\n|---|---|\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", k, n.Metadata[k]))
		}
	}
	return sb.String()
}

// argumentLines caps the argument tree listed in the detail panel.
const argumentLines = 30

// hasArgument reports whether any supports or opposes link hangs below t.
func hasArgument(t *graph.TreeNode) bool {
	found := false
	for _, c := range t.Children {
		c.Walk(func(n *graph.TreeNode) {
			if n.Relation != "" {
				found = true
			}
		})
	}
	return found
}
