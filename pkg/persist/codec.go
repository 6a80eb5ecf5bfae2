// ABOUTME: JSON document codec for the location tree
// ABOUTME: Preserves insertion order on both encode and decode

package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nainya/shelftrack/pkg/location"
)

// Document keys
const (
	keyLocations = "locations"
	keyShelves   = "shelves"
	keyBarcodes  = "barcodes"
)

// Encode renders the tree as
//
//	{"locations": {"<name>": {"shelves": {...}, "barcodes": [...]}}}
//
// with object keys in insertion order.
func Encode(tree *location.Tree) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"` + keyLocations + `":`)
	if err := encodeChildren(&buf, tree.Root()); err != nil {
		return nil, err
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent document: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func encodeChildren(buf *bytes.Buffer, n *location.Node) error {
	buf.WriteByte('{')
	for i, name := range n.Children() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, name); err != nil {
			return err
		}
		buf.WriteByte(':')

		child, _ := n.Child(name)
		buf.WriteString(`{"` + keyShelves + `":`)
		if err := encodeChildren(buf, child); err != nil {
			return err
		}
		buf.WriteString(`,"` + keyBarcodes + `":[`)
		for j, code := range child.Barcodes() {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, code); err != nil {
				return err
			}
		}
		buf.WriteString(`]}`)
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// Decode parses a document produced by Encode or by older writers. Unknown
// keys are skipped and missing shelves or barcodes keys are accepted. Any
// syntax error, wrong value type, empty segment name or barcode held in two
// places yields ErrCorruptState.
func Decode(data []byte) (*location.Tree, error) {
	d := &decoder{
		dec:  json.NewDecoder(bytes.NewReader(data)),
		tree: location.NewTree(),
		seen: make(map[string]location.Path),
	}
	if err := d.document(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	return d.tree, nil
}

type decoder struct {
	dec  *json.Decoder
	tree *location.Tree
	seen map[string]location.Path
}

func (d *decoder) document() error {
	if err := d.expect('{'); err != nil {
		return err
	}
	for d.dec.More() {
		key, err := d.key()
		if err != nil {
			return err
		}
		if key == keyLocations {
			if err := d.shelves(nil); err != nil {
				return err
			}
			continue
		}
		if err := d.skip(); err != nil {
			return err
		}
	}
	if err := d.expect('}'); err != nil {
		return err
	}
	if _, err := d.dec.Token(); err != io.EOF {
		return errors.New("trailing data after document")
	}
	return nil
}

// shelves reads a name -> entry object; null is treated as empty
func (d *decoder) shelves(parent location.Path) error {
	open, err := d.openOrNull('{')
	if err != nil || !open {
		return err
	}
	for d.dec.More() {
		name, err := d.key()
		if err != nil {
			return err
		}
		p := parent.Child(name)
		if _, err := d.tree.EnsurePath(p); err != nil {
			return err
		}
		if err := d.entry(p); err != nil {
			return err
		}
	}
	return d.expect('}')
}

func (d *decoder) entry(p location.Path) error {
	if err := d.expect('{'); err != nil {
		return fmt.Errorf("entry %s: %w", p, err)
	}
	for d.dec.More() {
		key, err := d.key()
		if err != nil {
			return err
		}
		switch key {
		case keyShelves:
			err = d.shelves(p)
		case keyBarcodes:
			err = d.barcodes(p)
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
	return d.expect('}')
}

func (d *decoder) barcodes(p location.Path) error {
	open, err := d.openOrNull('[')
	if err != nil || !open {
		return err
	}
	for d.dec.More() {
		tok, err := d.dec.Token()
		if err != nil {
			return err
		}
		code, ok := tok.(string)
		if !ok {
			return fmt.Errorf("barcode at %s: expected string, got %T", p, tok)
		}
		if prev, dup := d.seen[code]; dup {
			return fmt.Errorf("barcode %q at both %s and %s", code, prev, p)
		}
		d.seen[code] = p.Clone()
		if _, err := d.tree.AddBarcode(p, code); err != nil {
			return err
		}
	}
	return d.expect(']')
}

func (d *decoder) key() (string, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}

func (d *decoder) expect(delim json.Delim) error {
	tok, err := d.dec.Token()
	if err != nil {
		return err
	}
	if got, ok := tok.(json.Delim); !ok || got != delim {
		return fmt.Errorf("expected %q, got %v", delim, tok)
	}
	return nil
}

// openOrNull consumes the opening delimiter, or a null which reports false
func (d *decoder) openOrNull(delim json.Delim) (bool, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return false, err
	}
	if tok == nil {
		return false, nil
	}
	if got, ok := tok.(json.Delim); !ok || got != delim {
		return false, fmt.Errorf("expected %q, got %v", delim, tok)
	}
	return true, nil
}

func (d *decoder) skip() error {
	var raw json.RawMessage
	return d.dec.Decode(&raw)
}
