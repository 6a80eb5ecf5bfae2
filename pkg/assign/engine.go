package assign

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/nainya/shelftrack/pkg/location"
	"github.com/nainya/shelftrack/pkg/lookup"
)

// Operation names reported to observers and logs
const (
	OpAssign   = "assign"
	OpMove     = "move"
	OpUnassign = "unassign"
	OpClear    = "clear"
	OpEnsure   = "ensure"
	OpFind     = "find"
	OpFlush    = "flush"
)

// Persister saves the full tree. *persist.Gateway satisfies it.
type Persister interface {
	Save(ctx context.Context, tree *location.Tree) error
}

// Observer receives operation outcomes, typically for metrics
type Observer interface {
	ObserveOutcome(op string, outcome Outcome)
	ObservePersist(duration time.Duration, err error)
	ObserveTree(stats location.Stats)
}

type nopObserver struct{}

func (nopObserver) ObserveOutcome(string, Outcome)      {}
func (nopObserver) ObservePersist(time.Duration, error) {}
func (nopObserver) ObserveTree(location.Stats)          {}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithObserver sets the outcome observer
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		if obs != nil {
			e.obs = obs
		}
	}
}

// WithDebug makes invariant violations panic instead of being rejected
func WithDebug(debug bool) Option {
	return func(e *Engine) { e.debug = debug }
}

// WithRollbackOnPersistFailure controls whether a mutation is undone in
// memory when saving it fails. Enabled by default.
func WithRollbackOnPersistFailure(rollback bool) Option {
	return func(e *Engine) { e.rollback = rollback }
}

// Engine is the only writer of barcode membership. Mutations hold the write
// lock across the in-memory change, the save and any rollback, so readers
// never observe a half-applied operation.
type Engine struct {
	mu       sync.RWMutex
	tree     *location.Tree
	index    *lookup.Index
	store    Persister
	obs      Observer
	log      zerolog.Logger
	debug    bool
	rollback bool
}

// New takes ownership of tree and rebuilds the lookup index from it.
// A nil store keeps state in memory only.
func New(tree *location.Tree, store Persister, opts ...Option) (*Engine, error) {
	if tree == nil {
		tree = location.NewTree()
	}
	e := &Engine{
		tree:     tree,
		index:    lookup.New(),
		store:    store,
		obs:      nopObserver{},
		log:      zerolog.Nop(),
		rollback: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.index.Rebuild(tree); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}
	e.obs.ObserveTree(tree.Stats())
	return e, nil
}

// Assign places an unassigned barcode at target. A barcode already at
// target yields AlreadyPresent; one held elsewhere yields ConflictAt and
// nothing changes until ResolveMove is called.
func (e *Engine) Assign(ctx context.Context, barcode string, target location.Path) (Result, error) {
	res := Result{Barcode: barcode, Path: target.Clone()}
	if err := validate(barcode, target); err != nil {
		return e.reject(OpAssign, res, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if current, ok := e.index.Get(barcode); ok {
		if current.Equal(target) {
			res.Outcome = AlreadyPresent
		} else {
			res.Outcome = ConflictAt
			res.Conflict = current
		}
		return e.done(OpAssign, res), nil
	}

	existing := e.tree.ExistingDepth(target)
	if err := e.add(barcode, target); err != nil {
		return e.reject(OpAssign, res, err)
	}
	res.Outcome = Added
	return e.commit(ctx, OpAssign, res, func() {
		e.unadd(barcode, target, existing)
	})
}

// ResolveMove moves barcode from one location to another. It fails with
// ErrNotFoundAtSource when from does not currently hold the barcode.
func (e *Engine) ResolveMove(ctx context.Context, barcode string, from, to location.Path) (Result, error) {
	res := Result{Barcode: barcode, Path: to.Clone()}
	if err := validate(barcode, from); err != nil {
		return e.reject(OpMove, res, err)
	}
	if err := to.Validate(); err != nil {
		return e.reject(OpMove, res, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.index.Get(barcode)
	if !ok || !current.Equal(from) {
		res.Conflict = current
		return e.reject(OpMove, res, fmt.Errorf("%w: %q not at %s", ErrNotFoundAtSource, barcode, from))
	}
	if from.Equal(to) {
		res.Outcome = AlreadyPresent
		return e.done(OpMove, res), nil
	}

	existing := e.tree.ExistingDepth(to)
	placed, err := e.take(barcode, from)
	if err != nil {
		return e.reject(OpMove, res, err)
	}
	if err := e.add(barcode, to); err != nil {
		// Only reachable through a violation; put the barcode back.
		e.restore(barcode, placed)
		return e.reject(OpMove, res, err)
	}
	res.Outcome = Moved
	return e.commit(ctx, OpMove, res, func() {
		e.unadd(barcode, to, existing)
		e.restore(barcode, placed)
	})
}

// Unassign removes a barcode from wherever it is
func (e *Engine) Unassign(ctx context.Context, barcode string) (Result, error) {
	res := Result{Barcode: barcode}
	if err := validateBarcode(barcode); err != nil {
		return e.reject(OpUnassign, res, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.index.Get(barcode)
	if !ok {
		return e.reject(OpUnassign, res, fmt.Errorf("%w: %q", ErrNotFound, barcode))
	}
	res.Path = current
	placed, err := e.take(barcode, current)
	if err != nil {
		return e.reject(OpUnassign, res, err)
	}
	res.Outcome = Removed
	return e.commit(ctx, OpUnassign, res, func() {
		e.restore(barcode, placed)
	})
}

// Clear drops every assignment and every location
func (e *Engine) Clear(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.tree.Clone()
	e.tree.Reset()
	e.index.Reset()

	res := Result{Outcome: Cleared}
	return e.commit(ctx, OpClear, res, func() {
		e.tree = previous
		if err := e.index.Rebuild(previous); err != nil {
			e.violation("restoring cleared tree: %v", err)
		}
	})
}

// EnsureLocation creates the location when it does not exist yet, so a
// selected but still empty shelf shows up in listings.
func (e *Engine) EnsureLocation(ctx context.Context, p location.Path) (Result, error) {
	res := Result{Path: p.Clone()}
	if err := p.Validate(); err != nil {
		return e.reject(OpEnsure, res, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.tree.Node(p); ok {
		res.Outcome = AlreadyPresent
		return e.done(OpEnsure, res), nil
	}
	existing := e.tree.ExistingDepth(p)
	if _, err := e.tree.EnsurePath(p); err != nil {
		return e.reject(OpEnsure, res, err)
	}
	res.Outcome = Created
	return e.commit(ctx, OpEnsure, res, func() {
		e.tree.PruneIfEmptyBelow(p, existing)
	})
}

// Flush saves the current tree. Callers that disable rollback use it to
// retry after PersistFailed.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persist(ctx)
}

// Find returns the location currently holding the barcode
func (e *Engine) Find(barcode string) (location.Path, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.index.Get(barcode)
	if !ok {
		e.obs.ObserveOutcome(OpFind, NotFound)
		return nil, fmt.Errorf("%w: %q", ErrNotFound, barcode)
	}
	return p, nil
}

// Children lists child segment names of the location in insertion order.
// The empty path lists top-level locations.
func (e *Engine) Children(p location.Path) ([]string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n, ok := e.tree.Node(p)
	if !ok {
		return nil, false
	}
	return n.Children(), true
}

// Barcodes lists barcodes assigned directly to the location
func (e *Engine) Barcodes(p location.Path) ([]string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n, ok := e.tree.Node(p)
	if !ok {
		return nil, false
	}
	return n.Barcodes(), true
}

// Snapshot returns a deep copy of the tree
func (e *Engine) Snapshot() *location.Tree {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree.Clone()
}

// Stats summarizes the tree
func (e *Engine) Stats() location.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree.Stats()
}

// add assigns an unassigned barcode. Callers hold the write lock.
func (e *Engine) add(barcode string, p location.Path) error {
	if current, ok := e.index.Get(barcode); ok {
		return e.violation("%q already assigned at %s, refusing overwrite to %s", barcode, current, p)
	}
	added, err := e.tree.AddBarcode(p, barcode)
	if err != nil {
		return err
	}
	if !added {
		return e.violation("%q present in node %s but missing from index", barcode, p)
	}
	e.index.Put(barcode, p)
	return nil
}

// take unassigns a barcode from p and prunes, returning where it sat so an
// undo can restore the listing order. Callers hold the write lock.
func (e *Engine) take(barcode string, p location.Path) (location.Placement, error) {
	placed, ok := e.tree.Locate(p, barcode)
	if !ok || !e.tree.RemoveBarcode(p, barcode) {
		return location.Placement{}, e.violation("%q indexed at %s but missing from node", barcode, p)
	}
	e.tree.PruneIfEmpty(p)
	e.index.Remove(barcode)
	return placed, nil
}

// restore reverts take. Callers hold the write lock.
func (e *Engine) restore(barcode string, placed location.Placement) {
	if current, ok := e.index.Get(barcode); ok {
		e.violation("%q already assigned at %s, refusing restore to %s", barcode, current, placed.Path())
		return
	}
	added, err := e.tree.Restore(placed, barcode)
	if err != nil || !added {
		e.violation("restoring %q to %s: added=%t err=%v", barcode, placed.Path(), added, err)
		return
	}
	e.index.Put(barcode, placed.Path())
}

// unadd reverts add, pruning only nodes deeper than keep
func (e *Engine) unadd(barcode string, p location.Path, keep int) {
	e.tree.RemoveBarcode(p, barcode)
	e.tree.PruneIfEmptyBelow(p, keep)
	e.index.Remove(barcode)
}

func (e *Engine) commit(ctx context.Context, op string, res Result, undo func()) (Result, error) {
	err := e.persist(ctx)
	if err == nil {
		e.obs.ObserveTree(e.tree.Stats())
		return e.done(op, res), nil
	}

	res.Applied = res.Outcome
	res.Outcome = PersistFailed
	if e.rollback {
		undo()
		res.RolledBack = true
	}
	e.log.Error().
		Err(err).
		Str("operation", op).
		Str("barcode", res.Barcode).
		Str("path", res.Path.String()).
		Str("applied", res.Applied.String()).
		Bool("rolled_back", res.RolledBack).
		Msg("persist failed")
	e.obs.ObserveOutcome(op, PersistFailed)
	e.obs.ObserveTree(e.tree.Stats())
	return res, fmt.Errorf("%w: %w", ErrPersistFailed, err)
}

func (e *Engine) persist(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	start := time.Now()
	err := e.store.Save(ctx, e.tree)
	e.obs.ObservePersist(time.Since(start), err)
	return err
}

func (e *Engine) done(op string, res Result) Result {
	e.log.Debug().
		Str("operation", op).
		Str("barcode", res.Barcode).
		Str("path", res.Path.String()).
		Str("outcome", res.Outcome.String()).
		Msg("operation completed")
	e.obs.ObserveOutcome(op, res.Outcome)
	return res
}

func (e *Engine) reject(op string, res Result, err error) (Result, error) {
	res.Outcome = OutcomeForError(err)
	e.log.Debug().
		Err(err).
		Str("operation", op).
		Str("barcode", res.Barcode).
		Str("outcome", res.Outcome.String()).
		Msg("operation rejected")
	e.obs.ObserveOutcome(op, res.Outcome)
	return res, err
}

// violation reports a forbidden transition: panic in debug mode, otherwise
// logged loudly and returned.
func (e *Engine) violation(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
	if e.debug {
		panic(err)
	}
	e.log.Error().Err(err).Msg("invariant violation")
	return err
}

func validate(barcode string, p location.Path) error {
	if err := validateBarcode(barcode); err != nil {
		return err
	}
	return p.Validate()
}

// validateBarcode rejects barcodes the document codec cannot store verbatim
func validateBarcode(barcode string) error {
	if barcode == "" {
		return fmt.Errorf("%w: empty barcode", ErrInvalidBarcode)
	}
	if !utf8.ValidString(barcode) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidBarcode, barcode)
	}
	return nil
}
