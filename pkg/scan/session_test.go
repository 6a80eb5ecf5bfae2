package scan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
)

func newSession(t *testing.T, opts ...SessionOption) (*Session, *assign.Engine) {
	t.Helper()
	e, err := assign.New(location.NewTree(), nil)
	if err != nil {
		t.Fatalf("assign.New failed: %v", err)
	}
	return NewSession(e, opts...), e
}

func TestScanWithoutSelection(t *testing.T) {
	s, _ := newSession(t)

	res, err := s.Scan(context.Background(), NewEvent("123"))
	if !errors.Is(err, ErrNoSelection) || !errors.Is(err, assign.ErrInvalidPath) {
		t.Fatalf("Expected ErrNoSelection, got %v", err)
	}
	if res.Outcome != assign.InvalidPath {
		t.Errorf("Expected InvalidPath, got %s", res.Outcome)
	}
}

func TestSelectCreatesLocation(t *testing.T) {
	s, e := newSession(t)
	ctx := context.Background()

	res, err := s.Select(ctx, location.Path{"Warehouse", "ShelfB"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Outcome != assign.Created {
		t.Errorf("Expected Created, got %s", res.Outcome)
	}
	if kids, ok := e.Children(location.Path{"Warehouse"}); !ok || len(kids) != 1 {
		t.Errorf("Expected ShelfB under Warehouse, got %v", kids)
	}

	res, _ = s.Select(ctx, location.Path{"Warehouse", "ShelfB"})
	if res.Outcome != assign.AlreadyPresent {
		t.Errorf("Expected AlreadyPresent on reselect, got %s", res.Outcome)
	}

	if _, err := s.Select(ctx, nil); !errors.Is(err, assign.ErrInvalidPath) {
		t.Errorf("Expected ErrInvalidPath, got %v", err)
	}
	if !s.Selection().Equal(location.Path{"Warehouse", "ShelfB"}) {
		t.Errorf("Invalid select must keep the previous selection")
	}
}

func TestConfirmMoveWorkflow(t *testing.T) {
	s, e := newSession(t)
	ctx := context.Background()
	const code = "123456789012"

	s.Select(ctx, location.Path{"Warehouse", "ShelfB"})
	if res, err := s.Scan(ctx, NewEvent(code)); err != nil || res.Outcome != assign.Added {
		t.Fatalf("Expected Added, got %s, %v", res.Outcome, err)
	}

	s.Select(ctx, location.Path{"Warehouse", "ShelfC"})
	res, err := s.Scan(ctx, NewEvent(code))
	if err != nil || res.Outcome != assign.ConflictAt {
		t.Fatalf("Expected ConflictAt, got %s, %v", res.Outcome, err)
	}

	pm, ok := s.Pending()
	if !ok {
		t.Fatalf("Expected a pending move")
	}
	if !pm.From.Equal(location.Path{"Warehouse", "ShelfB"}) || !pm.To.Equal(location.Path{"Warehouse", "ShelfC"}) {
		t.Errorf("Unexpected pending move %+v", pm)
	}

	res, err = s.Confirm(ctx)
	if err != nil || res.Outcome != assign.Moved {
		t.Fatalf("Expected Moved, got %s, %v", res.Outcome, err)
	}

	found, _ := e.Find(code)
	if !found.Equal(location.Path{"Warehouse", "ShelfC"}) {
		t.Errorf("Expected barcode at ShelfC, got %s", found)
	}
	if _, ok := s.Pending(); ok {
		t.Errorf("Confirm must consume the pending move")
	}
	if _, err := s.Confirm(ctx); !errors.Is(err, ErrNoPendingMove) {
		t.Errorf("Expected ErrNoPendingMove, got %v", err)
	}
}

func TestCancelAndReplacePendingMove(t *testing.T) {
	s, e := newSession(t)
	ctx := context.Background()

	s.Select(ctx, location.Path{"A"})
	s.Scan(ctx, NewEvent("1"))
	s.Scan(ctx, NewEvent("2"))

	s.Select(ctx, location.Path{"B"})
	s.Scan(ctx, NewEvent("1"))
	s.Scan(ctx, NewEvent("2"))

	pm, ok := s.Pending()
	if !ok || pm.Barcode != "2" {
		t.Fatalf("Latest conflict must replace the pending move, got %+v", pm)
	}

	if !s.Cancel() {
		t.Errorf("Expected Cancel to report a pending move")
	}
	if s.Cancel() {
		t.Errorf("Second Cancel must report false")
	}

	for _, code := range []string{"1", "2"} {
		if p, _ := e.Find(code); !p.Equal(location.Path{"A"}) {
			t.Errorf("Cancelled move must not change %s, got %s", code, p)
		}
	}
}

func TestNonConflictScanClearsPendingMove(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	s.Select(ctx, location.Path{"A"})
	s.Scan(ctx, NewEvent("1"))
	s.Select(ctx, location.Path{"B"})
	s.Scan(ctx, NewEvent("1"))
	s.Scan(ctx, NewEvent("9"))

	if _, ok := s.Pending(); ok {
		t.Errorf("A new scan must replace the pending move")
	}
}

func TestUnrecognizedScanClearsPendingMove(t *testing.T) {
	s, _ := newSession(t, WithCatalog(NewCatalog("1")))
	ctx := context.Background()

	s.Select(ctx, location.Path{"A"})
	s.Scan(ctx, NewEvent("1"))
	s.Select(ctx, location.Path{"B"})
	if res, _ := s.Scan(ctx, NewEvent("1")); res.Outcome != assign.ConflictAt {
		t.Fatalf("Expected ConflictAt, got %s", res.Outcome)
	}

	res, _ := s.Scan(ctx, NewEvent("unknown"))
	if res.Outcome != assign.Unrecognized {
		t.Fatalf("Expected Unrecognized, got %s", res.Outcome)
	}
	if _, ok := s.Pending(); ok {
		t.Errorf("An unrecognized scan must replace the pending move")
	}
	if _, err := s.Confirm(ctx); !errors.Is(err, ErrNoPendingMove) {
		t.Errorf("Expected ErrNoPendingMove, got %v", err)
	}
}

func TestCatalogRejectsUnknownBarcodes(t *testing.T) {
	catalog, err := ReadCatalog(strings.NewReader("# known items\n123456789012\n\n987654321098\n"))
	if err != nil {
		t.Fatalf("ReadCatalog failed: %v", err)
	}
	if catalog.Len() != 2 {
		t.Fatalf("Expected 2 catalog entries, got %d", catalog.Len())
	}

	s, e := newSession(t, WithCatalog(catalog))
	ctx := context.Background()
	s.Select(ctx, location.Path{"A"})

	res, err := s.Scan(ctx, NewEvent("000"))
	if err != nil {
		t.Fatalf("Unrecognized is an outcome, not an error: %v", err)
	}
	if res.Outcome != assign.Unrecognized {
		t.Errorf("Expected Unrecognized, got %s", res.Outcome)
	}
	if _, err := e.Find("000"); !errors.Is(err, assign.ErrNotFound) {
		t.Errorf("Unrecognized barcode must not be assigned")
	}

	res, _ = s.Scan(ctx, NewEvent("987654321098"))
	if res.Outcome != assign.Added {
		t.Errorf("Expected Added for catalog barcode, got %s", res.Outcome)
	}
}

func TestNilCatalogAcceptsEverything(t *testing.T) {
	var c *Catalog
	if !c.Contains("anything") {
		t.Errorf("Nil catalog must accept every barcode")
	}
}

func TestEmptyScanRejected(t *testing.T) {
	s, _ := newSession(t)
	s.Select(context.Background(), location.Path{"A"})

	res, err := s.Scan(context.Background(), Event{})
	if !errors.Is(err, assign.ErrInvalidBarcode) {
		t.Errorf("Expected ErrInvalidBarcode, got %v", err)
	}
	if res.Outcome != assign.InvalidBarcode {
		t.Errorf("Expected InvalidBarcode, got %s", res.Outcome)
	}
}
