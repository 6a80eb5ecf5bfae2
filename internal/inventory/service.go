// Package inventory composes the store, gateway and engine into the service
// the gRPC, REST and CLI front ends share
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/nainya/shelftrack/internal/config"
	"github.com/nainya/shelftrack/internal/logger"
	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
	"github.com/nainya/shelftrack/pkg/persist"
	"github.com/nainya/shelftrack/pkg/scan"
)

// Listing is the content of one location
type Listing struct {
	Path     location.Path
	Children []string
	Barcodes []string
}

// Service owns the engine and the store it persists to
type Service struct {
	engine   *assign.Engine
	gateway  *persist.Gateway
	catalog  *scan.Catalog
	backend  string
	attempts int
	delay    time.Duration
	log      *logger.Logger
	zlog     zerolog.Logger
}

// Option configures a Service
type Option func(*options)

type options struct {
	log     *logger.Logger
	obs     assign.Observer
	catalog *scan.Catalog
}

// WithLogger sets the service logger
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithObserver forwards engine outcomes to obs, typically the metrics
func WithObserver(obs assign.Observer) Option {
	return func(o *options) { o.obs = obs }
}

// WithCatalog overrides the catalog named in the config
func WithCatalog(c *scan.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// Open builds the configured store backend and loads the service from it
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	svc, err := New(ctx, store, cfg, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return svc, nil
}

// New loads the inventory from store and wires the engine to it. A corrupt
// document fails with persist.ErrCorruptState; nothing is overwritten.
func New(ctx context.Context, store persist.Store, cfg *config.Config, opts ...Option) (*Service, error) {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	catalog := o.catalog
	if catalog == nil && cfg.Catalog.Path != "" {
		c, err := scan.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		catalog = c
	}

	backend := cfg.Store.Backend
	gateway := persist.NewGateway(store,
		persist.WithSaveTimeout(cfg.GetSaveTimeout()),
		persist.WithGatewayLogger(o.log.StoreLogger(backend)),
	)

	start := time.Now()
	tree, err := gateway.Load(ctx)
	o.log.LogStoreOperation("load", backend, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	engineOpts := []assign.Option{
		assign.WithLogger(o.log.EngineLogger()),
		assign.WithDebug(cfg.Engine.Debug),
		assign.WithRollbackOnPersistFailure(cfg.Engine.RollbackOnPersistFailure),
	}
	if o.obs != nil {
		engineOpts = append(engineOpts, assign.WithObserver(o.obs))
	}
	engine, err := assign.New(tree, gateway, engineOpts...)
	if err != nil {
		return nil, err
	}

	return &Service{
		engine:   engine,
		gateway:  gateway,
		catalog:  catalog,
		backend:  backend,
		attempts: cfg.Engine.PersistRetry.Attempts,
		delay:    cfg.GetRetryBaseDelay(),
		log:      o.log,
		zlog:     o.log.Component("inventory"),
	}, nil
}

// Assign places a barcode at target
func (s *Service) Assign(ctx context.Context, barcode string, target location.Path) (assign.Result, error) {
	res, err := s.engine.Assign(ctx, barcode, target)
	return s.retryPersist(ctx, res, err)
}

// ResolveMove moves a barcode between locations
func (s *Service) ResolveMove(ctx context.Context, barcode string, from, to location.Path) (assign.Result, error) {
	res, err := s.engine.ResolveMove(ctx, barcode, from, to)
	return s.retryPersist(ctx, res, err)
}

// Unassign removes a barcode from its location
func (s *Service) Unassign(ctx context.Context, barcode string) (assign.Result, error) {
	res, err := s.engine.Unassign(ctx, barcode)
	return s.retryPersist(ctx, res, err)
}

// Clear drops every location and assignment
func (s *Service) Clear(ctx context.Context) (assign.Result, error) {
	res, err := s.engine.Clear(ctx)
	return s.retryPersist(ctx, res, err)
}

// EnsureLocation creates an empty location
func (s *Service) EnsureLocation(ctx context.Context, p location.Path) (assign.Result, error) {
	res, err := s.engine.EnsureLocation(ctx, p)
	return s.retryPersist(ctx, res, err)
}

// Find returns where a barcode is
func (s *Service) Find(barcode string) (location.Path, error) {
	return s.engine.Find(barcode)
}

// List returns the children and barcodes at p. The empty path lists the
// top-level locations.
func (s *Service) List(p location.Path) (Listing, error) {
	children, ok := s.engine.Children(p)
	if !ok {
		return Listing{}, fmt.Errorf("%w: location %s", assign.ErrNotFound, p)
	}
	barcodes, _ := s.engine.Barcodes(p)
	return Listing{Path: p.Clone(), Children: children, Barcodes: barcodes}, nil
}

// Snapshot returns a copy of the whole tree
func (s *Service) Snapshot() *location.Tree {
	return s.engine.Snapshot()
}

// Stats summarizes the tree
func (s *Service) Stats() location.Stats {
	return s.engine.Stats()
}

// Flush saves the current tree
func (s *Service) Flush(ctx context.Context) error {
	return s.engine.Flush(ctx)
}

// Backend names the configured store backend
func (s *Service) Backend() string {
	return s.backend
}

// NewSession starts an operator scan session backed by this service
func (s *Service) NewSession() *scan.Session {
	return scan.NewSession(s,
		scan.WithCatalog(s.catalog),
		scan.WithSessionLogger(s.log.Component("scan")),
	)
}

// Close releases the store
func (s *Service) Close() error {
	return s.gateway.Close()
}

// retryPersist retries Flush when a mutation stayed applied in memory but
// failed to persist. On success the applied outcome is reported as if the
// first save had worked.
func (s *Service) retryPersist(ctx context.Context, res assign.Result, err error) (assign.Result, error) {
	if res.Outcome != assign.PersistFailed || res.RolledBack || s.attempts <= 0 {
		return res, err
	}

	b := retry.WithMaxRetries(uint64(s.attempts), retry.NewExponential(s.delay))
	tries := 0
	rerr := retry.Do(ctx, b, func(ctx context.Context) error {
		tries++
		if ferr := s.engine.Flush(ctx); ferr != nil {
			s.zlog.Warn().Err(ferr).Int("attempt", tries).Msg("flush failed, will retry")
			return retry.RetryableError(ferr)
		}
		return nil
	})
	if rerr != nil {
		s.zlog.Error().Err(rerr).Int("attempts", tries).Str("barcode", res.Barcode).Msg("flush gave up")
		return res, errors.Join(err, rerr)
	}

	s.zlog.Info().Int("attempts", tries).Str("barcode", res.Barcode).Msg("flush recovered")
	res.Outcome = res.Applied
	res.Applied = assign.Unknown
	return res, nil
}

var _ scan.Assigner = (*Service)(nil)
