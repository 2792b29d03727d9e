package graph

import (
	"sort"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// TreeNode is a node placed in a claim tree.
type TreeNode struct {
	Node     *model.Node
	Relation model.RelationKind // Edge relation to Parent; "" for parent links and roots
	Depth    int
	Parent   *TreeNode
	Children []*TreeNode
}

// Size returns the number of nodes in the subtree, including t.
func (t *TreeNode) Size() int {
	n := 1
	for _, c := range t.Children {
		n += c.Size()
	}
	return n
}

// Walk visits the subtree depth first, parents before children.
func (t *TreeNode) Walk(fn func(*TreeNode)) {
	fn(t)
	for _, c := range t.Children {
		c.Walk(fn)
	}
}

type treeLink struct {
	child    *model.Node
	relation model.RelationKind
}

// Forest arranges the nodes accepted by include (all nodes if nil) into
// trees. A node hangs under its parent, and a claim hangs under the node it
// supports or opposes. Dangling parents make a node a root; cycles are cut
// where traversal first meets them, so every accepted node appears once.
func (v *View) Forest(include func(*model.Node) bool) []*TreeNode {
	accepted := func(n *model.Node) bool { return n != nil && (include == nil || include(n)) }

	// Step 1: parent -> children index from parent links and argument edges
	childrenOf := make(map[string][]treeLink)
	hasParent := make(map[string]bool)
	var members []*model.Node
	for _, id := range v.nodeOrder {
		n := v.nodes[id]
		if !accepted(n) {
			continue
		}
		members = append(members, n)
		if p, ok := v.nodes[n.Parent]; ok && accepted(p) {
			childrenOf[p.ID] = append(childrenOf[p.ID], treeLink{child: n})
			hasParent[n.ID] = true
		}
	}
	for _, id := range v.edgeOrder {
		e := v.edges[id]
		if !e.Relation.IsArgument() {
			continue
		}
		src, tgt := v.nodes[e.Source], v.nodes[e.Target]
		if !accepted(src) || !accepted(tgt) {
			continue
		}
		childrenOf[tgt.ID] = append(childrenOf[tgt.ID], treeLink{child: src, relation: e.Relation})
		hasParent[src.ID] = true
	}
	for id := range childrenOf {
		v.sortLinks(childrenOf[id])
	}

	// Step 2: roots are members without an accepted parent, in insertion order
	visited := make(map[string]bool)
	var roots []*TreeNode
	for _, n := range members {
		if !hasParent[n.ID] {
			roots = append(roots, v.buildTree(n, "", 0, nil, childrenOf, visited))
		}
	}

	// Step 3: anything left sits on a cycle; root it at its first member
	for _, n := range members {
		if !visited[n.ID] {
			roots = append(roots, v.buildTree(n, "", 0, nil, childrenOf, visited))
		}
	}
	return roots
}

// ClaimTree returns the tree that contains rootID, re-rooted at rootID.
func (v *View) ClaimTree(rootID string) (*TreeNode, error) {
	root, ok := v.nodes[rootID]
	if !ok {
		return nil, &NotFoundError{Op: "claim_tree", ID: rootID}
	}
	for _, t := range v.Forest(nil) {
		var found *TreeNode
		t.Walk(func(n *TreeNode) {
			if found == nil && n.Node.ID == rootID {
				found = n
			}
		})
		if found != nil {
			found.Parent = nil
			found.Relation = ""
			reDepth(found, 0)
			return found, nil
		}
	}
	return &TreeNode{Node: root}, nil
}

func reDepth(t *TreeNode, depth int) {
	t.Depth = depth
	for _, c := range t.Children {
		reDepth(c, depth+1)
	}
}

func (v *View) buildTree(n *model.Node, rel model.RelationKind, depth int, parent *TreeNode,
	childrenOf map[string][]treeLink, visited map[string]bool) *TreeNode {
	visited[n.ID] = true
	node := &TreeNode{Node: n, Relation: rel, Depth: depth, Parent: parent}
	for _, link := range childrenOf[n.ID] {
		if visited[link.child.ID] {
			continue
		}
		node.Children = append(node.Children, v.buildTree(link.child, link.relation, depth+1, node, childrenOf, visited))
	}
	return node
}

// sortLinks orders siblings by kind rank, then text, then id.
func (v *View) sortLinks(links []treeLink) {
	sort.SliceStable(links, func(i, j int) bool {
		a, b := links[i].child, links[j].child
		if oa, ob := v.kinds.Order(a.Kind), v.kinds.Order(b.Kind); oa != ob {
			return oa < ob
		}
		if a.Text != b.Text {
			return a.Text < b.Text
		}
		return a.ID < b.ID
	})
}
