// ABOUTME: In-memory location hierarchy of locations, shelves and nested shelves
// ABOUTME: Lazy node creation, ordered listings and pruning of empty leaves

package location

// Node is a location or shelf. Children and barcodes keep insertion order.
type Node struct {
	name     string
	children map[string]*Node
	order    []string
	barcodes map[string]struct{}
	codes    []string
}

func newNode(name string) *Node {
	return &Node{
		name:     name,
		children: make(map[string]*Node),
		barcodes: make(map[string]struct{}),
	}
}

// Name returns the segment name of the node (empty for the root)
func (n *Node) Name() string {
	return n.name
}

// Child returns the direct child with the given segment name
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.children[name]
	return c, ok
}

// Children returns child segment names in insertion order
func (n *Node) Children() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// Barcodes returns the directly assigned barcodes in insertion order
func (n *Node) Barcodes() []string {
	out := make([]string, len(n.codes))
	copy(out, n.codes)
	return out
}

// HasBarcode reports whether the barcode is assigned directly to this node
func (n *Node) HasBarcode(code string) bool {
	_, ok := n.barcodes[code]
	return ok
}

// BarcodeCount returns the number of directly assigned barcodes
func (n *Node) BarcodeCount() int {
	return len(n.codes)
}

// IsEmpty reports whether the node holds no barcodes and no children
func (n *Node) IsEmpty() bool {
	return len(n.codes) == 0 && len(n.order) == 0
}

func (n *Node) child(name string) *Node {
	c, ok := n.children[name]
	if !ok {
		c = newNode(name)
		n.children[name] = c
		n.order = append(n.order, name)
	}
	return c
}

// childAt is child, but a newly created node is inserted at position i
// instead of appended
func (n *Node) childAt(name string, i int) *Node {
	if c, ok := n.children[name]; ok {
		return c
	}
	c := newNode(name)
	n.children[name] = c
	n.order = insertAt(n.order, i, name)
	return c
}

func insertAt(list []string, i int, s string) []string {
	if i < 0 || i > len(list) {
		i = len(list)
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func (n *Node) removeChild(name string) {
	if _, ok := n.children[name]; !ok {
		return
	}
	delete(n.children, name)
	if i := indexOf(n.order, name); i >= 0 {
		n.order = append(n.order[:i], n.order[i+1:]...)
	}
}

func (n *Node) addBarcode(code string) bool {
	if _, ok := n.barcodes[code]; ok {
		return false
	}
	n.barcodes[code] = struct{}{}
	n.codes = append(n.codes, code)
	return true
}

func (n *Node) removeBarcode(code string) bool {
	if _, ok := n.barcodes[code]; !ok {
		return false
	}
	delete(n.barcodes, code)
	if i := indexOf(n.codes, code); i >= 0 {
		n.codes = append(n.codes[:i], n.codes[i+1:]...)
	}
	return true
}

// Placement records where a barcode sits: its node's path, the position of
// every node along that path among its siblings, and the barcode's position
// within the node.
type Placement struct {
	path  Path
	slots []int
	code  int
}

// Path returns the location the placement was taken from
func (pl Placement) Path() Path {
	return pl.path.Clone()
}

// Stats summarizes the size of a tree
type Stats struct {
	Nodes    int // Nodes excluding the root
	Barcodes int // Total assigned barcodes
	Depth    int // Longest path length
}

// Tree is a rooted location hierarchy. It performs no locking and does not
// enforce barcode uniqueness across nodes; the assignment engine owns both.
type Tree struct {
	root *Node
}

// NewTree creates a tree holding only the root
func NewTree() *Tree {
	return &Tree{root: newNode("")}
}

// Root returns the root node
func (t *Tree) Root() *Node {
	return t.root
}

// EnsurePath walks from the root creating any missing nodes
func (t *Tree) EnsurePath(p Path) (*Node, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := t.root
	for _, seg := range p {
		n = n.child(seg)
	}
	return n, nil
}

// Node looks up the node at the path without creating anything.
// The empty path resolves to the root.
func (t *Tree) Node(p Path) (*Node, bool) {
	n := t.root
	for _, seg := range p {
		c, ok := n.children[seg]
		if !ok {
			return nil, false
		}
		n = c
	}
	return n, true
}

// Children lists child segment names of the node at the path in insertion
// order. Unknown paths yield nil.
func (t *Tree) Children(p Path) []string {
	n, ok := t.Node(p)
	if !ok {
		return nil
	}
	return n.Children()
}

// AddBarcode assigns the barcode to the node at the path, creating the path
// when needed. It reports false when the node already held the barcode.
func (t *Tree) AddBarcode(p Path, code string) (bool, error) {
	n, err := t.EnsurePath(p)
	if err != nil {
		return false, err
	}
	return n.addBarcode(code), nil
}

// RemoveBarcode removes the barcode from the node at the path without pruning
func (t *Tree) RemoveBarcode(p Path, code string) bool {
	n, ok := t.Node(p)
	if !ok {
		return false
	}
	return n.removeBarcode(code)
}

// PruneIfEmpty removes the node at the path when it has no barcodes and no
// children, then repeats the check on each ancestor. The root is never
// removed. It returns the number of nodes removed.
func (t *Tree) PruneIfEmpty(p Path) int {
	return t.PruneIfEmptyBelow(p, 0)
}

// PruneIfEmptyBelow is PruneIfEmpty but keeps every node whose depth is at
// most keep, so ancestors that existed before a mutation can be preserved.
func (t *Tree) PruneIfEmptyBelow(p Path, keep int) int {
	removed := 0
	for len(p) > keep {
		parent, ok := t.Node(p[:len(p)-1])
		if !ok {
			return removed
		}
		name := p[len(p)-1]
		n, ok := parent.children[name]
		if !ok || !n.IsEmpty() {
			return removed
		}
		parent.removeChild(name)
		removed++
		p = p[:len(p)-1]
	}
	return removed
}

// Locate captures the placement of code at p. It reports false when the node
// does not exist or does not hold the barcode.
func (t *Tree) Locate(p Path, code string) (Placement, bool) {
	pl := Placement{path: p.Clone(), slots: make([]int, len(p))}
	n := t.root
	for i, seg := range p {
		c, ok := n.children[seg]
		if !ok {
			return Placement{}, false
		}
		pl.slots[i] = indexOf(n.order, seg)
		n = c
	}
	pl.code = indexOf(n.codes, code)
	if pl.code < 0 {
		return Placement{}, false
	}
	return pl, true
}

// Restore puts code back where Locate found it. Nodes pruned since then are
// recreated at their former sibling positions, so listings read as before.
// It reports false when the node already holds the barcode.
func (t *Tree) Restore(pl Placement, code string) (bool, error) {
	if err := pl.path.Validate(); err != nil {
		return false, err
	}
	n := t.root
	for i, seg := range pl.path {
		n = n.childAt(seg, pl.slots[i])
	}
	if _, ok := n.barcodes[code]; ok {
		return false, nil
	}
	n.barcodes[code] = struct{}{}
	n.codes = insertAt(n.codes, pl.code, code)
	return true, nil
}

// ExistingDepth returns how many leading segments of the path already exist
func (t *Tree) ExistingDepth(p Path) int {
	n := t.root
	for i, seg := range p {
		c, ok := n.children[seg]
		if !ok {
			return i
		}
		n = c
	}
	return len(p)
}

// Walk visits every node except the root depth-first in insertion order.
// The path passed to fn is reused between calls; clone it to retain it.
// A non-nil error from fn stops the walk and is returned.
func (t *Tree) Walk(fn func(p Path, n *Node) error) error {
	return walk(t.root, make(Path, 0, 8), fn)
}

func walk(n *Node, prefix Path, fn func(Path, *Node) error) error {
	for _, name := range n.order {
		c := n.children[name]
		p := append(prefix, name)
		if err := fn(p, c); err != nil {
			return err
		}
		if err := walk(c, p, fn); err != nil {
			return err
		}
	}
	return nil
}

// Stats counts nodes and barcodes
func (t *Tree) Stats() Stats {
	var s Stats
	_ = t.Walk(func(p Path, n *Node) error {
		s.Nodes++
		s.Barcodes += n.BarcodeCount()
		if len(p) > s.Depth {
			s.Depth = len(p)
		}
		return nil
	})
	return s
}

// Reset drops every node below the root
func (t *Tree) Reset() {
	t.root = newNode("")
}

// Clone returns a deep copy of the tree
func (t *Tree) Clone() *Tree {
	return &Tree{root: cloneNode(t.root)}
}

func cloneNode(n *Node) *Node {
	c := newNode(n.name)
	for _, code := range n.codes {
		c.addBarcode(code)
	}
	for _, name := range n.order {
		c.children[name] = cloneNode(n.children[name])
		c.order = append(c.order, name)
	}
	return c
}

// Equal reports structural equality: the same paths and the same barcode set
// on every node. Ordering is not significant.
func (t *Tree) Equal(other *Tree) bool {
	if other == nil {
		return false
	}
	return equalNode(t.root, other.root)
}

func equalNode(a, b *Node) bool {
	if len(a.barcodes) != len(b.barcodes) || len(a.children) != len(b.children) {
		return false
	}
	for code := range a.barcodes {
		if _, ok := b.barcodes[code]; !ok {
			return false
		}
	}
	for name, ac := range a.children {
		bc, ok := b.children[name]
		if !ok || !equalNode(ac, bc) {
			return false
		}
	}
	return true
}
