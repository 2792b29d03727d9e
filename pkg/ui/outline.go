package ui

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/config"
	"github.com/vanderheijden86/topicmap/pkg/graph"
)

// OutlineState is the persisted expand/collapse state of the outline,
// saved to .tmap/outline-state.json.
//
//	{
//	  "version": 1,
//	  "expanded": {"n-12": true, "n-40": false}
//	}
//
// Only explicit user changes are stored; other nodes are expanded above
// depth 2. A missing or corrupt file means defaults.
type OutlineState struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"`
}

// OutlineStateVersion is the current schema version.
const OutlineStateVersion = 1

const outlineStateFileName = "outline-state.json"

// OutlineStatePath returns the state file inside dir, or inside .tmap in
// the working directory when dir is empty.
func OutlineStatePath(dir string) string {
	if dir == "" {
		dir = config.DirName
	}
	return filepath.Join(dir, outlineStateFileName)
}

type outlineRow struct {
	tree     *graph.TreeNode
	expanded bool
}

// OutlineModel shows the map as topic trees with claims nested under what
// they argue.
type OutlineModel struct {
	roots    []*graph.TreeNode
	rows     map[string]*outlineRow
	flatList []*graph.TreeNode
	explicit map[string]bool

	cursor         int
	viewportOffset int
	width          int
	height         int
	stateDir       string
	log            *zap.Logger
	theme          Theme
}

// NewOutlineModel creates an empty outline. stateDir is where the
// expand/collapse state is kept; "" disables persistence.
func NewOutlineModel(theme Theme, stateDir string, log *zap.Logger) OutlineModel {
	if log == nil {
		log = zap.NewNop()
	}
	m := OutlineModel{
		rows:     make(map[string]*outlineRow),
		explicit: make(map[string]bool),
		stateDir: stateDir,
		log:      log,
		theme:    theme,
	}
	m.loadState()
	return m
}

// SetSize updates the panel dimensions.
func (m *OutlineModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.clampOffset()
}

// Build rebuilds the trees from a view, keeping the cursor on the same
// node when it still exists.
func (m *OutlineModel) Build(v *graph.View) {
	keep := m.SelectedID()
	m.roots = v.Forest(nil)
	m.rows = make(map[string]*outlineRow)
	for _, root := range m.roots {
		root.Walk(func(t *graph.TreeNode) {
			expanded := t.Depth < 2
			if e, ok := m.explicit[t.Node.ID]; ok {
				expanded = e
			}
			m.rows[t.Node.ID] = &outlineRow{tree: t, expanded: expanded}
		})
	}
	m.rebuildFlatList()
	if keep != "" {
		m.SelectByID(keep)
	}
}

func (m *OutlineModel) saveState() {
	if m.stateDir == "" {
		return
	}
	state := OutlineState{Version: OutlineStateVersion, Expanded: m.explicit}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		m.log.Warn("marshal outline state", zap.Error(err))
		return
	}
	path := OutlineStatePath(m.stateDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		m.log.Warn("create state directory", zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.log.Warn("write outline state", zap.String("path", path), zap.Error(err))
	}
}

func (m *OutlineModel) loadState() {
	if m.stateDir == "" {
		return
	}
	data, err := os.ReadFile(OutlineStatePath(m.stateDir))
	if err != nil {
		return
	}
	var state OutlineState
	if err := json.Unmarshal(data, &state); err != nil {
		m.log.Warn("invalid outline state file, using defaults", zap.Error(err))
		return
	}
	for id, e := range state.Expanded {
		m.explicit[id] = e
	}
}

func (m *OutlineModel) setExpanded(t *graph.TreeNode, expanded bool) {
	row := m.rows[t.Node.ID]
	if row == nil || row.expanded == expanded {
		return
	}
	row.expanded = expanded
	if expanded == (t.Depth < 2) {
		delete(m.explicit, t.Node.ID)
	} else {
		m.explicit[t.Node.ID] = expanded
	}
}

func (m *OutlineModel) isExpanded(t *graph.TreeNode) bool {
	row := m.rows[t.Node.ID]
	return row != nil && row.expanded
}

// View renders the visible rows.
func (m *OutlineModel) View() string {
	if len(m.flatList) == 0 {
		r := m.theme.Renderer
		return r.NewStyle().Foreground(m.theme.Primary).Bold(true).Render("Outline") + "\n\n" +
			r.NewStyle().Foreground(m.theme.Muted).Render("No nodes yet. Press n to add one.")
	}

	start, end := m.visibleRange()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		line := m.renderNode(m.flatList[i])
		if i == m.cursor {
			line = m.theme.Selected.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *OutlineModel) renderNode(t *graph.TreeNode) string {
	r := m.theme.Renderer
	var sb strings.Builder

	prefix := m.buildTreePrefix(t)
	sb.WriteString(prefix)
	sb.WriteString(r.NewStyle().Foreground(m.theme.Secondary).Render(m.expandIndicator(t)))
	sb.WriteString(" ")

	icon, color := m.theme.KindIcon(t.Node.Kind)
	sb.WriteString(r.NewStyle().Foreground(color).Render(icon))
	sb.WriteString(" ")

	used := lipgloss.Width(prefix) + 4
	if t.Relation != "" {
		rel := string(t.Relation) + " "
		sb.WriteString(r.NewStyle().Foreground(m.theme.RelationColor(t.Relation)).Italic(true).Render(rel))
		used += lipgloss.Width(rel)
	}

	maxLen := m.width - used
	if t.Node.IsPinned() {
		maxLen -= 2
	}
	sb.WriteString(truncateTitle(t.Node.Summary(), maxLen))
	if t.Node.IsPinned() {
		sb.WriteString(r.NewStyle().Foreground(m.theme.Muted).Render(" ⊙"))
	}
	return sb.String()
}

func (m *OutlineModel) buildTreePrefix(t *graph.TreeNode) string {
	if t.Depth == 0 {
		return ""
	}
	var parts []string
	var ancestors []*graph.TreeNode
	for cur := t.Parent; cur != nil; cur = cur.Parent {
		ancestors = append([]*graph.TreeNode{cur}, ancestors...)
	}
	for _, a := range ancestors[1:] {
		if m.hasSiblingsBelow(a) {
			parts = append(parts, "│ ")
		} else {
			parts = append(parts, "  ")
		}
	}
	if m.hasSiblingsBelow(t) {
		parts = append(parts, "├─")
	} else {
		parts = append(parts, "└─")
	}
	return m.theme.Renderer.NewStyle().Foreground(m.theme.Muted).Render(strings.Join(parts, ""))
}

func (m *OutlineModel) hasSiblingsBelow(t *graph.TreeNode) bool {
	siblings := m.roots
	if t.Parent != nil {
		siblings = t.Parent.Children
	}
	for i, s := range siblings {
		if s == t {
			return i < len(siblings)-1
		}
	}
	return false
}

func (m *OutlineModel) expandIndicator(t *graph.TreeNode) string {
	if len(t.Children) == 0 {
		return "•"
	}
	if m.isExpanded(t) {
		return "▾"
	}
	return "▸"
}

func truncateTitle(title string, maxLen int) string {
	if maxLen <= 3 {
		maxLen = 3
	}
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen-1]) + "…"
}

// SelectedNode returns the tree node under the cursor, or nil.
func (m *OutlineModel) SelectedNode() *graph.TreeNode {
	if m.cursor >= 0 && m.cursor < len(m.flatList) {
		return m.flatList[m.cursor]
	}
	return nil
}

// SelectedID returns the node id under the cursor, or "".
func (m *OutlineModel) SelectedID() string {
	if t := m.SelectedNode(); t != nil {
		return t.Node.ID
	}
	return ""
}

// MoveDown moves the cursor down.
func (m *OutlineModel) MoveDown() {
	if m.cursor < len(m.flatList)-1 {
		m.cursor++
		m.clampOffset()
	}
}

// MoveUp moves the cursor up.
func (m *OutlineModel) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
		m.clampOffset()
	}
}

// ToggleExpand expands or collapses the node under the cursor.
func (m *OutlineModel) ToggleExpand() {
	t := m.SelectedNode()
	if t == nil || len(t.Children) == 0 {
		return
	}
	m.setExpanded(t, !m.isExpanded(t))
	m.rebuildFlatList()
	m.saveState()
}

// ExpandOrMoveToChild expands a collapsed node, or steps into an expanded one.
func (m *OutlineModel) ExpandOrMoveToChild() {
	t := m.SelectedNode()
	if t == nil || len(t.Children) == 0 {
		return
	}
	if !m.isExpanded(t) {
		m.setExpanded(t, true)
		m.rebuildFlatList()
		m.saveState()
		return
	}
	m.SelectByID(t.Children[0].Node.ID)
}

// CollapseOrJumpToParent collapses an expanded node, or moves to its parent.
func (m *OutlineModel) CollapseOrJumpToParent() {
	t := m.SelectedNode()
	if t == nil {
		return
	}
	if len(t.Children) > 0 && m.isExpanded(t) {
		m.setExpanded(t, false)
		m.rebuildFlatList()
		m.saveState()
		return
	}
	if t.Parent != nil {
		m.SelectByID(t.Parent.Node.ID)
	}
}

// SelectByID moves the cursor to id, expanding its ancestors. It returns
// false when id is not in the outline.
func (m *OutlineModel) SelectByID(id string) bool {
	row := m.rows[id]
	if row == nil {
		return false
	}
	opened := false
	for p := row.tree.Parent; p != nil; p = p.Parent {
		if !m.isExpanded(p) {
			m.setExpanded(p, true)
			opened = true
		}
	}
	if opened {
		m.rebuildFlatList()
	}
	for i, t := range m.flatList {
		if t.Node.ID == id {
			m.cursor = i
			m.clampOffset()
			return true
		}
	}
	return false
}

// Len returns the number of visible rows.
func (m *OutlineModel) Len() int { return len(m.flatList) }

func (m *OutlineModel) rebuildFlatList() {
	m.flatList = m.flatList[:0]
	for _, root := range m.roots {
		m.appendVisible(root)
	}
	if m.cursor >= len(m.flatList) {
		m.cursor = len(m.flatList) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampOffset()
}

func (m *OutlineModel) appendVisible(t *graph.TreeNode) {
	m.flatList = append(m.flatList, t)
	if m.isExpanded(t) {
		for _, c := range t.Children {
			m.appendVisible(c)
		}
	}
}

func (m *OutlineModel) pageSize() int {
	if m.height <= 0 {
		return 20
	}
	return m.height
}

// clampOffset keeps the cursor inside the scroll window.
func (m *OutlineModel) clampOffset() {
	size := m.pageSize()
	if m.cursor < m.viewportOffset {
		m.viewportOffset = m.cursor
	}
	if m.cursor >= m.viewportOffset+size {
		m.viewportOffset = m.cursor - size + 1
	}
	if m.viewportOffset < 0 {
		m.viewportOffset = 0
	}
}

func (m *OutlineModel) visibleRange() (int, int) {
	start := m.viewportOffset
	end := start + m.pageSize()
	if end > len(m.flatList) {
		end = len(m.flatList)
	}
	if start > end {
		start = end
	}
	return start, end
}
