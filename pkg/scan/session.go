// ABOUTME: Operator scan session implementing the move-with-confirmation flow
// ABOUTME: Conflicts are parked as a pending move until confirmed or cancelled

package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
)

var (
	// ErrNoSelection indicates a scan before any location was selected
	ErrNoSelection = fmt.Errorf("%w: no location selected", assign.ErrInvalidPath)

	// ErrNoPendingMove indicates Confirm without a parked conflict
	ErrNoPendingMove = errors.New("scan: no pending move")
)

// Assigner is the part of the engine a session drives
type Assigner interface {
	Assign(ctx context.Context, barcode string, target location.Path) (assign.Result, error)
	ResolveMove(ctx context.Context, barcode string, from, to location.Path) (assign.Result, error)
	EnsureLocation(ctx context.Context, p location.Path) (assign.Result, error)
}

// PendingMove is a conflict awaiting the operator's decision
type PendingMove struct {
	EventID string
	Barcode string
	From    location.Path
	To      location.Path
}

// Session tracks one operator's selected location and pending move
type Session struct {
	mu        sync.Mutex
	engine    Assigner
	catalog   *Catalog
	selection location.Path
	pending   *PendingMove
	log       zerolog.Logger
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithCatalog restricts scans to known barcodes
func WithCatalog(c *Catalog) SessionOption {
	return func(s *Session) { s.catalog = c }
}

// WithSessionLogger sets the session logger
func WithSessionLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession creates a session with no selection
func NewSession(engine Assigner, opts ...SessionOption) *Session {
	s := &Session{engine: engine, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select makes p the target for subsequent scans and creates it if needed.
// Any pending move is dropped.
func (s *Session) Select(ctx context.Context, p location.Path) (assign.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.engine.EnsureLocation(ctx, p)
	if err != nil && res.Outcome != assign.PersistFailed {
		return res, err
	}
	s.selection = p.Clone()
	s.pending = nil
	return res, err
}

// Selection returns the current target location
func (s *Session) Selection() location.Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Clone()
}

// Scan assigns the scanned barcode to the selected location. A ConflictAt
// result is parked as the pending move; any other non-empty scan, including
// an unrecognized one, drops the earlier pending move.
func (s *Session) Scan(ctx context.Context, ev Event) (assign.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := assign.Result{Barcode: ev.Barcode, Path: s.selection.Clone()}
	if ev.Barcode == "" {
		res.Outcome = assign.InvalidBarcode
		return res, fmt.Errorf("%w: empty scan", assign.ErrInvalidBarcode)
	}
	if !s.catalog.Contains(ev.Barcode) {
		res.Outcome = assign.Unrecognized
		s.pending = nil
		s.logScan(ev, res)
		return res, nil
	}
	if len(s.selection) == 0 {
		res.Outcome = assign.InvalidPath
		return res, ErrNoSelection
	}

	res, err := s.engine.Assign(ctx, ev.Barcode, s.selection)
	s.pending = nil
	if err == nil && res.Outcome == assign.ConflictAt {
		s.pending = &PendingMove{
			EventID: ev.ID,
			Barcode: ev.Barcode,
			From:    res.Conflict.Clone(),
			To:      s.selection.Clone(),
		}
	}
	s.logScan(ev, res)
	return res, err
}

// Pending returns the parked move, if any
func (s *Session) Pending() (PendingMove, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return PendingMove{}, false
	}
	return *s.pending, true
}

// Confirm performs the pending move. The pending move is consumed even when
// the engine reports NotFoundAtSource; the operator has to re-scan.
func (s *Session) Confirm(ctx context.Context) (assign.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return assign.Result{}, ErrNoPendingMove
	}
	pm := *s.pending
	s.pending = nil
	return s.engine.ResolveMove(ctx, pm.Barcode, pm.From, pm.To)
}

// Cancel drops the pending move and reports whether there was one
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.pending != nil
	s.pending = nil
	return had
}

func (s *Session) logScan(ev Event, res assign.Result) {
	s.log.Debug().
		Str("event_id", ev.ID).
		Str("barcode", ev.Barcode).
		Str("symbology", ev.Symbology).
		Str("path", res.Path.String()).
		Str("outcome", res.Outcome.String()).
		Msg("scan handled")
}
