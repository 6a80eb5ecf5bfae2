// ABOUTME: Tests for the location hierarchy
// ABOUTME: Verifies lazy creation, ordering, pruning and structural equality

package location

import (
	"errors"
	"testing"
)

func TestEnsurePathCreatesIntermediateNodes(t *testing.T) {
	tree := NewTree()

	n, err := tree.EnsurePath(Path{"WarehouseA", "ShelfB", "BinC"})
	if err != nil {
		t.Fatalf("EnsurePath failed: %v", err)
	}
	if n.Name() != "BinC" {
		t.Errorf("Expected node BinC, got %q", n.Name())
	}

	for _, p := range []Path{{"WarehouseA"}, {"WarehouseA", "ShelfB"}, {"WarehouseA", "ShelfB", "BinC"}} {
		if _, ok := tree.Node(p); !ok {
			t.Errorf("Expected node at %s", p)
		}
	}

	again, err := tree.EnsurePath(Path{"WarehouseA", "ShelfB", "BinC"})
	if err != nil {
		t.Fatalf("EnsurePath failed: %v", err)
	}
	if again != n {
		t.Errorf("EnsurePath created a duplicate node")
	}
}

func TestEnsurePathRejectsInvalidPaths(t *testing.T) {
	tree := NewTree()

	for _, p := range []Path{nil, {}, {"A", ""}, {""}, {"A", "\xffB"}} {
		if _, err := tree.EnsurePath(p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("EnsurePath(%q): expected ErrInvalidPath, got %v", []string(p), err)
		}
	}
	if s := tree.Stats(); s.Nodes != 0 {
		t.Errorf("Invalid paths must not create nodes, got %d", s.Nodes)
	}
}

func TestNodeIsPureLookup(t *testing.T) {
	tree := NewTree()

	if _, ok := tree.Node(Path{"Missing"}); ok {
		t.Errorf("Expected no node for unknown path")
	}
	if tree.Stats().Nodes != 0 {
		t.Errorf("Node must not create nodes")
	}

	root, ok := tree.Node(nil)
	if !ok || root != tree.Root() {
		t.Errorf("Empty path must resolve to the root")
	}
}

func TestChildrenPreserveInsertionOrder(t *testing.T) {
	tree := NewTree()
	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		if _, err := tree.EnsurePath(Path{"Warehouse", name}); err != nil {
			t.Fatal(err)
		}
	}

	got := tree.Children(Path{"Warehouse"})
	want := []string{"Zeta", "Alpha", "Mid"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d children, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Child %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if kids := tree.Children(Path{"Nowhere"}); kids != nil {
		t.Errorf("Expected nil children for unknown path, got %v", kids)
	}
}

func TestPruneRemovesEmptyLeafAndAncestors(t *testing.T) {
	tree := NewTree()
	p := Path{"Warehouse", "ShelfB", "Bin1"}
	if _, err := tree.AddBarcode(p, "X"); err != nil {
		t.Fatal(err)
	}

	tree.RemoveBarcode(p, "X")
	removed := tree.PruneIfEmpty(p)

	if removed != 3 {
		t.Errorf("Expected 3 nodes pruned, got %d", removed)
	}
	if _, ok := tree.Node(Path{"Warehouse"}); ok {
		t.Errorf("Expected Warehouse pruned")
	}
	if tree.Root() == nil {
		t.Errorf("Root must never be pruned")
	}
}

func TestPruneKeepsNodeWithChildren(t *testing.T) {
	tree := NewTree()
	if _, err := tree.AddBarcode(Path{"Warehouse", "ShelfB"}, "X"); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.AddBarcode(Path{"Warehouse", "ShelfB", "Bin1"}, "Y"); err != nil {
		t.Fatal(err)
	}

	tree.RemoveBarcode(Path{"Warehouse", "ShelfB"}, "X")
	if removed := tree.PruneIfEmpty(Path{"Warehouse", "ShelfB"}); removed != 0 {
		t.Errorf("Expected nothing pruned, got %d", removed)
	}

	n, ok := tree.Node(Path{"Warehouse", "ShelfB"})
	if !ok {
		t.Fatalf("Node with children must stay")
	}
	if n.BarcodeCount() != 0 {
		t.Errorf("Expected empty barcode set, got %v", n.Barcodes())
	}
}

func TestPruneStopsAtNonEmptyAncestor(t *testing.T) {
	tree := NewTree()
	tree.AddBarcode(Path{"Warehouse"}, "W")
	tree.AddBarcode(Path{"Warehouse", "ShelfB"}, "X")

	tree.RemoveBarcode(Path{"Warehouse", "ShelfB"}, "X")
	if removed := tree.PruneIfEmpty(Path{"Warehouse", "ShelfB"}); removed != 1 {
		t.Errorf("Expected 1 node pruned, got %d", removed)
	}
	if _, ok := tree.Node(Path{"Warehouse"}); !ok {
		t.Errorf("Warehouse still holds a barcode and must stay")
	}
}

func TestRestoreReturnsBarcodeToItsPlacement(t *testing.T) {
	tree := NewTree()
	tree.AddBarcode(Path{"W", "A", "1"}, "X")
	tree.AddBarcode(Path{"W", "B"}, "Y")
	tree.AddBarcode(Path{"W", "C"}, "P")
	tree.AddBarcode(Path{"W", "C"}, "Q")
	tree.AddBarcode(Path{"W", "C"}, "R")

	pl, ok := tree.Locate(Path{"W", "A", "1"}, "X")
	if !ok {
		t.Fatal("Expected to locate X")
	}
	tree.RemoveBarcode(Path{"W", "A", "1"}, "X")
	if removed := tree.PruneIfEmpty(Path{"W", "A", "1"}); removed != 2 {
		t.Fatalf("Expected 2 nodes pruned, got %d", removed)
	}

	added, err := tree.Restore(pl, "X")
	if err != nil || !added {
		t.Fatalf("Restore failed: added=%v err=%v", added, err)
	}
	if got := tree.Children(Path{"W"}); !Path(got).Equal(Path{"A", "B", "C"}) {
		t.Errorf("Expected children [A B C], got %v", got)
	}
	if !pl.Path().Equal(Path{"W", "A", "1"}) {
		t.Errorf("Unexpected placement path %s", pl.Path())
	}

	mid, ok := tree.Locate(Path{"W", "C"}, "Q")
	if !ok {
		t.Fatal("Expected to locate Q")
	}
	tree.RemoveBarcode(Path{"W", "C"}, "Q")
	tree.Restore(mid, "Q")
	n, _ := tree.Node(Path{"W", "C"})
	if got := n.Barcodes(); !Path(got).Equal(Path{"P", "Q", "R"}) {
		t.Errorf("Expected barcodes [P Q R], got %v", got)
	}

	if added, _ := tree.Restore(mid, "Q"); added {
		t.Error("Restore must not duplicate a barcode already present")
	}
	if _, ok := tree.Locate(Path{"W", "Nope"}, "Q"); ok {
		t.Error("Locate must fail for a missing node")
	}
}

func TestBarcodesKeepOrderAndIgnoreDuplicates(t *testing.T) {
	tree := NewTree()
	p := Path{"A"}
	for _, code := range []string{"3", "1", "2", "1"} {
		tree.AddBarcode(p, code)
	}

	n, _ := tree.Node(p)
	got := n.Barcodes()
	want := []string{"3", "1", "2"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Barcode %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestWalkAndStats(t *testing.T) {
	tree := NewTree()
	tree.AddBarcode(Path{"A", "B", "C"}, "1")
	tree.AddBarcode(Path{"A", "B", "C"}, "2")
	tree.AddBarcode(Path{"A", "D"}, "3")

	var visited []string
	tree.Walk(func(p Path, n *Node) error {
		visited = append(visited, p.String())
		return nil
	})

	want := []string{"A", "A/B", "A/B/C", "A/D"}
	if len(visited) != len(want) {
		t.Fatalf("Expected %v, got %v", want, visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("Visit %d: expected %s, got %s", i, want[i], visited[i])
		}
	}

	s := tree.Stats()
	if s.Nodes != 4 || s.Barcodes != 3 || s.Depth != 3 {
		t.Errorf("Unexpected stats: %+v", s)
	}
}

func TestCloneAndEqual(t *testing.T) {
	tree := NewTree()
	tree.AddBarcode(Path{"A", "B"}, "1")
	tree.AddBarcode(Path{"A", "C"}, "2")

	clone := tree.Clone()
	if !tree.Equal(clone) {
		t.Fatalf("Clone must be structurally equal")
	}

	clone.AddBarcode(Path{"A", "B"}, "3")
	if tree.Equal(clone) {
		t.Errorf("Mutating the clone must not affect equality with the original")
	}
	if n, _ := tree.Node(Path{"A", "B"}); n.HasBarcode("3") {
		t.Errorf("Clone shares state with the original")
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want Path
	}{
		{"", nil},
		{"/", nil},
		{"Warehouse", Path{"Warehouse"}},
		{"/Warehouse/ShelfB/", Path{"Warehouse", "ShelfB"}},
		{"A//B", Path{"A", "", "B"}},
	}

	for _, tt := range tests {
		got := ParsePath(tt.in)
		if !got.Equal(tt.want) {
			t.Errorf("ParsePath(%q) = %q, want %q", tt.in, []string(got), []string(tt.want))
		}
	}

	if err := ParsePath("A//B").Validate(); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Expected empty inner segment to be rejected, got %v", err)
	}
}
