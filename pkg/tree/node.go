// Package tree implements the SHV node tree: named nodes arranged in a
// path-addressable hierarchy, each carrying a sorted method table that
// dispatch walks to find a handler. Concrete node behaviors (typed values,
// files, the .app/.device convenience nodes) are plain factory functions
// that build a Node and populate its MethodTable with closures capturing
// whatever state that behavior needs - there is no node subtype to
// downcast to, matching the "handler closure per entry" alternative in the
// node-tree design notes over a tagged union or vtable.
package tree

import "fmt"

// Node is one entry in the tree. Behavior lives entirely in Methods'
// handler closures and in Destroy; Node itself carries no type-specific
// fields.
type Node struct {
	Name     string
	Methods  MethodTable
	Children *ChildSet

	// Destroy, if set, is called once during a post-order tree teardown.
	// Nodes under a static subtree are skipped (see ChildSet.Static).
	Destroy func()
}

// NewNode creates a leaf or branch node. Pass nil children for a leaf.
func NewNode(name string, methods MethodTable, children *ChildSet) *Node {
	return &Node{Name: name, Methods: methods, Children: children}
}

// ChildSet holds a node's children, sorted by name for binary-search
// lookup. A static set is built once via NewStaticChildren and rejects
// further Add calls and Destroy traversal, since statically-declared
// subtrees are never mutated or torn down at runtime.
type ChildSet struct {
	names  []string
	nodes  []*Node
	static bool
}

// NewChildren returns an empty, dynamically growable child set.
func NewChildren() *ChildSet { return &ChildSet{} }

// NewStaticChildren returns a child set frozen at construction time.
func NewStaticChildren(children ...*Node) *ChildSet {
	cs := &ChildSet{static: true}
	for _, c := range children {
		if err := cs.insert(c); err != nil {
			panic(err) // programmer error: duplicate static child name
		}
	}
	return cs
}

// Static reports whether this child set rejects Add and is skipped by
// Destroy.
func (cs *ChildSet) Static() bool { return cs.static }

// Add inserts a child, keeping names sorted. Returns an error if the set is
// static or already has a child with this name.
func (cs *ChildSet) Add(n *Node) error {
	if cs.static {
		return fmt.Errorf("tree: cannot add %q to a static child set", n.Name)
	}
	return cs.insert(n)
}

func (cs *ChildSet) insert(n *Node) error {
	i := searchStrings(cs.names, n.Name)
	if i < len(cs.names) && cs.names[i] == n.Name {
		return fmt.Errorf("tree: duplicate child name %q", n.Name)
	}
	cs.names = append(cs.names, "")
	copy(cs.names[i+1:], cs.names[i:])
	cs.names[i] = n.Name

	cs.nodes = append(cs.nodes, nil)
	copy(cs.nodes[i+1:], cs.nodes[i:])
	cs.nodes[i] = n
	return nil
}

// Get returns the child named name, or nil.
func (cs *ChildSet) Get(name string) *Node {
	if cs == nil {
		return nil
	}
	i := searchStrings(cs.names, name)
	if i < len(cs.names) && cs.names[i] == name {
		return cs.nodes[i]
	}
	return nil
}

// Names returns the children's names in sorted order.
func (cs *ChildSet) Names() []string {
	if cs == nil {
		return nil
	}
	out := make([]string, len(cs.names))
	copy(out, cs.names)
	return out
}

func searchStrings(names []string, target string) int {
	lo, hi := 0, len(names)
	for lo < hi {
		mid := (lo + hi) / 2
		if names[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Find resolves a slash-separated path against root. An empty path refers
// to root itself; a missing segment returns nil.
func Find(root *Node, path string) *Node {
	if path == "" {
		return root
	}
	node := root
	start := 0
	for start <= len(path) {
		end := start
		for end < len(path) && path[end] != '/' {
			end++
		}
		segment := path[start:end]
		if segment != "" {
			node = node.Children.Get(segment)
			if node == nil {
				return nil
			}
		}
		start = end + 1
	}
	return node
}

// Destroy walks the tree post-order, calling each node's Destroy closure.
// Static subtrees are skipped entirely, per the lifecycle rule that
// statically-declared nodes are never freed.
func Destroy(n *Node) {
	if n == nil {
		return
	}
	if n.Children != nil && !n.Children.Static() {
		for _, name := range n.Children.Names() {
			Destroy(n.Children.Get(name))
		}
	}
	if n.Destroy != nil {
		n.Destroy()
	}
}
