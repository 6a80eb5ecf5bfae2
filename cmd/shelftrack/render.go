package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nainya/shelftrack/internal/inventory"
	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
	"github.com/nainya/shelftrack/pkg/scan"
)

// describe turns an engine result into operator-facing text
func describe(res assign.Result) string {
	switch res.Outcome {
	case assign.Added:
		return fmt.Sprintf("Barcode %s added to %s.", res.Barcode, res.Path)
	case assign.AlreadyPresent:
		if res.Barcode == "" {
			return fmt.Sprintf("Location %s already exists.", res.Path)
		}
		return fmt.Sprintf("Barcode %s already at %s.", res.Barcode, res.Path)
	case assign.ConflictAt:
		return fmt.Sprintf("Barcode %s is at %s, not %s.", res.Barcode, res.Conflict, res.Path)
	case assign.Moved:
		return fmt.Sprintf("Barcode %s moved to %s.", res.Barcode, res.Path)
	case assign.Removed:
		return fmt.Sprintf("Barcode %s removed from %s.", res.Barcode, res.Path)
	case assign.Cleared:
		return "All locations and barcodes cleared."
	case assign.Created:
		return fmt.Sprintf("Location %s created.", res.Path)
	case assign.Unrecognized:
		return fmt.Sprintf("Barcode %s is not in the catalog.", res.Barcode)
	case assign.PersistFailed:
		if res.RolledBack {
			return fmt.Sprintf("Could not save; %s was undone.", res.Applied)
		}
		return fmt.Sprintf("Could not save; %s is kept in memory only.", res.Applied)
	}
	return res.Outcome.String()
}

// describeError explains a failed operation; the engine's wording is kept
// for anything unexpected
func describeError(res assign.Result, err error) string {
	switch {
	case errors.Is(err, assign.ErrPersistFailed):
		return describe(res)
	case errors.Is(err, assign.ErrNotFoundAtSource):
		if res.Conflict != nil {
			return fmt.Sprintf("Barcode %s is no longer there; it is now at %s.", res.Barcode, res.Conflict)
		}
		return fmt.Sprintf("Barcode %s is no longer assigned anywhere.", res.Barcode)
	case errors.Is(err, assign.ErrNotFound):
		return fmt.Sprintf("Barcode %s is not assigned.", res.Barcode)
	case errors.Is(err, scan.ErrNoSelection):
		return "Select a location first with @path."
	case errors.Is(err, scan.ErrNoPendingMove):
		return "There is no move waiting for confirmation."
	case errors.Is(err, assign.ErrInvalidBarcode):
		return "Barcode must be non-empty UTF-8 text."
	case errors.Is(err, assign.ErrInvalidPath):
		return "Location must name at least one segment, each non-empty UTF-8 text."
	}
	return err.Error()
}

func printListing(w io.Writer, l inventory.Listing) {
	name := l.Path.String()
	if len(l.Path) == 0 {
		name = location.Separator
	}
	fmt.Fprintf(w, "%s\n", name)
	for _, child := range l.Children {
		fmt.Fprintf(w, "  %s%s\n", child, location.Separator)
	}
	for _, code := range l.Barcodes {
		fmt.Fprintf(w, "  %s\n", code)
	}
	if len(l.Children) == 0 && len(l.Barcodes) == 0 {
		fmt.Fprintln(w, "  (empty)")
	}
}

// parseLocation accepts Warehouse/ShelfB or separate segment arguments
func parseLocation(args []string) location.Path {
	return location.ParsePath(strings.Join(args, location.Separator))
}
