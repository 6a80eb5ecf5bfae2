// ABOUTME: Scan events from the barcode decoder and the known-barcode catalog
// ABOUTME: The core reads only the decoded string; the rest is carried for logs

package scan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rect is the bounding box reported by the decoder, in frame pixels
type Rect struct {
	X, Y, Width, Height int
}

// Event is one decoded barcode
type Event struct {
	ID        string
	Barcode   string
	Symbology string // e.g. EAN13, QRCODE; informational only
	Bounds    *Rect
	ScannedAt time.Time
}

// NewEvent stamps a decoded barcode with an id and the current time
func NewEvent(barcode string) Event {
	return Event{
		ID:        uuid.NewString(),
		Barcode:   barcode,
		ScannedAt: time.Now(),
	}
}

// Catalog is the set of barcodes the operator expects to see. A nil
// catalog accepts everything.
type Catalog struct {
	codes map[string]struct{}
}

// NewCatalog builds a catalog from the given barcodes
func NewCatalog(codes ...string) *Catalog {
	c := &Catalog{codes: make(map[string]struct{}, len(codes))}
	for _, code := range codes {
		if code != "" {
			c.codes[code] = struct{}{}
		}
	}
	return c
}

// ReadCatalog parses one barcode per line; blank lines and lines starting
// with # are skipped
func ReadCatalog(r io.Reader) (*Catalog, error) {
	c := NewCatalog()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c.codes[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return c, nil
}

// LoadCatalog reads a catalog file
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ReadCatalog(f)
}

// Contains reports whether the barcode is known
func (c *Catalog) Contains(code string) bool {
	if c == nil {
		return true
	}
	_, ok := c.codes[code]
	return ok
}

// Len returns the number of known barcodes
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.codes)
}
