// ABOUTME: Persistence gateway between the location tree and a document store
// ABOUTME: Bounded-time saves, corrupt-state detection on load

package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nainya/shelftrack/pkg/location"
)

// DefaultSaveTimeout bounds a single save when no timeout is configured
const DefaultSaveTimeout = 5 * time.Second

// Store holds one document. Write must be atomic from a reader's view:
// a concurrent or subsequent Read sees either the old or the new bytes.
// Read returns ErrNotExist when nothing has been written yet.
type Store interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Gateway serializes the tree to a Store. At most one Write runs at a time.
type Gateway struct {
	store   Store
	timeout time.Duration
	log     zerolog.Logger
	slot    chan struct{}
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithSaveTimeout bounds each save; non-positive values keep the default.
// A Write that ignores its context and outlives the timeout is abandoned:
// Save reports ErrIO and later saves fail until that Write returns. A file
// write abandoned after its rename may still land on disk.
func WithSaveTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithGatewayLogger sets the logger used for store operations
func WithGatewayLogger(log zerolog.Logger) GatewayOption {
	return func(g *Gateway) { g.log = log }
}

// NewGateway creates a gateway over the store
func NewGateway(store Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:   store,
		timeout: DefaultSaveTimeout,
		log:     zerolog.Nop(),
		slot:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Save writes the full tree. Failures and timeouts are reported as ErrIO.
func (g *Gateway) Save(ctx context.Context, tree *location.Tree) error {
	start := time.Now()
	data, err := Encode(tree)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrIO, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err = g.write(ctx, data)
	g.logOperation("save", start, len(data), err)
	if err != nil {
		return fmt.Errorf("%w: save: %w", ErrIO, err)
	}
	return nil
}

// write runs Write in its own goroutine so a hung syscall cannot hold Save
// past ctx. The slot is released only when Write returns, which keeps an
// abandoned write from racing a newer one.
func (g *Gateway) write(ctx context.Context, data []byte) error {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("previous write still running: %w", ctx.Err())
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-g.slot }()
		done <- g.store.Write(ctx, data)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		select {
		case err := <-done:
			return err
		default:
		}
		g.log.Warn().Dur("timeout", g.timeout).Msg("abandoning store write")
		return fmt.Errorf("write abandoned: %w", ctx.Err())
	}
}

// Load reads the tree. A missing document yields an empty tree; an
// unparseable one yields ErrCorruptState and no tree.
func (g *Gateway) Load(ctx context.Context) (*location.Tree, error) {
	start := time.Now()
	data, err := g.store.Read(ctx)
	if errors.Is(err, ErrNotExist) {
		g.log.Info().Msg("no stored document, starting with an empty tree")
		return location.NewTree(), nil
	}
	if err != nil {
		g.logOperation("load", start, 0, err)
		return nil, fmt.Errorf("%w: load: %w", ErrIO, err)
	}

	tree, err := Decode(data)
	g.logOperation("load", start, len(data), err)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// Close releases the underlying store
func (g *Gateway) Close() error {
	return g.store.Close()
}

func (g *Gateway) logOperation(op string, start time.Time, size int, err error) {
	event := g.log.Debug()
	if err != nil {
		event = g.log.Error().Err(err)
	}
	event.
		Str("operation", op).
		Dur("duration_ms", time.Since(start)).
		Int("bytes", size).
		Msg("Store operation completed")
}
