package section

import (
	"fmt"
	"sync/atomic"

	"git.home.luguber.info/inful/docsync/internal/markdown"
)

// Node is a render node with a session-unique identity.
type Node struct {
	ID string `json:"id"`
	markdown.Block
}

// Tree is the render tree of one revision. Trees are values: splicing produces a new
// Tree and never mutates the Nodes of an existing one.
type Tree struct {
	Revision uint64 `json:"revision"`
	Nodes    []Node `json:"nodes"`
}

// IndexOf returns the position of the node with id, or -1.
func (t Tree) IndexOf(id string) int {
	for i, n := range t.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Splice returns a new tree in which nodes[start:end] are replaced by repl.
func (t Tree) Splice(start, end int, repl []Node, revision uint64) (Tree, error) {
	if start < 0 || end < start || end > len(t.Nodes) {
		return Tree{}, fmt.Errorf("node range %d..%d out of bounds for %d nodes", start, end, len(t.Nodes))
	}
	nodes := make([]Node, 0, len(t.Nodes)-(end-start)+len(repl))
	nodes = append(nodes, t.Nodes[:start]...)
	nodes = append(nodes, repl...)
	nodes = append(nodes, t.Nodes[end:]...)
	return Tree{Revision: revision, Nodes: nodes}, nil
}

// Blocks returns the tree's blocks without identities, for structural comparison.
func (t Tree) Blocks() []markdown.Block {
	out := make([]markdown.Block, len(t.Nodes))
	for i, n := range t.Nodes {
		out[i] = n.Block
	}
	return out
}

// Sequence hands out node IDs that are unique for its lifetime.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence returns a Sequence producing IDs of the form prefix1, prefix2, ...
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns a fresh ID.
func (s *Sequence) Next() string {
	return fmt.Sprintf("%s%d", s.prefix, s.n.Add(1))
}
