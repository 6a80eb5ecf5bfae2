// ABOUTME: Reverse index from barcode to the location path holding it
// ABOUTME: Rebuilt wholesale from the location tree, never trusted from disk

package lookup

import (
	"errors"
	"fmt"

	"github.com/nainya/shelftrack/pkg/location"
)

// ErrDuplicateBarcode indicates a barcode assigned to more than one node
var ErrDuplicateBarcode = errors.New("lookup: barcode assigned to multiple locations")

// Index maps barcodes to their current location. It performs no locking.
type Index struct {
	entries map[string]location.Path
}

// New creates an empty index
func New() *Index {
	return &Index{entries: make(map[string]location.Path)}
}

// Put records the barcode at the path, replacing any previous entry
func (ix *Index) Put(code string, p location.Path) {
	ix.entries[code] = p.Clone()
}

// Remove drops the barcode and reports whether it was present
func (ix *Index) Remove(code string) bool {
	if _, ok := ix.entries[code]; !ok {
		return false
	}
	delete(ix.entries, code)
	return true
}

// Get returns a copy of the path holding the barcode
func (ix *Index) Get(code string) (location.Path, bool) {
	p, ok := ix.entries[code]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Len returns the number of indexed barcodes
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Reset drops every entry
func (ix *Index) Reset() {
	ix.entries = make(map[string]location.Path)
}

// Rebuild replaces the index contents with the assignments found in the tree.
// On a duplicate the index is left empty and ErrDuplicateBarcode is returned.
func (ix *Index) Rebuild(tree *location.Tree) error {
	entries := make(map[string]location.Path)
	err := tree.Walk(func(p location.Path, n *location.Node) error {
		for _, code := range n.Barcodes() {
			if prev, ok := entries[code]; ok {
				return fmt.Errorf("%w: %q at %s and %s", ErrDuplicateBarcode, code, prev, p)
			}
			entries[code] = p.Clone()
		}
		return nil
	})
	if err != nil {
		ix.Reset()
		return err
	}
	ix.entries = entries
	return nil
}
