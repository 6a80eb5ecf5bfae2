package inventory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/shelftrack/internal/config"
	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
	"github.com/nainya/shelftrack/pkg/persist"
	"github.com/nainya/shelftrack/pkg/scan"
)

// flakyStore fails the next `failures` writes
type flakyStore struct {
	*persist.MemoryStore
	mu       sync.Mutex
	failures int
	writes   int
}

func (s *flakyStore) Write(ctx context.Context, data []byte) error {
	s.mu.Lock()
	s.writes++
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()
	if fail {
		return errors.New("disk unavailable")
	}
	return s.MemoryStore.Write(ctx, data)
}

func memoryConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Store.Backend = config.BackendMemory
	cfg.Engine.PersistRetry.BaseDelay = "1ms"
	return cfg
}

func TestScenarioThroughFileBackend(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "data", "shelftrack.json")

	svc, err := Open(ctx, cfg)
	require.NoError(t, err)

	const code = "123456789012"
	res, err := svc.Assign(ctx, code, location.Path{"Warehouse", "ShelfB"})
	require.NoError(t, err)
	assert.Equal(t, assign.Added, res.Outcome)

	res, err = svc.Assign(ctx, code, location.Path{"Warehouse", "ShelfC"})
	require.NoError(t, err)
	require.Equal(t, assign.ConflictAt, res.Outcome)

	res, err = svc.ResolveMove(ctx, code, res.Conflict, location.Path{"Warehouse", "ShelfC"})
	require.NoError(t, err)
	assert.Equal(t, assign.Moved, res.Outcome)
	require.NoError(t, svc.Close())

	reopened, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer reopened.Close()

	p, err := reopened.Find(code)
	require.NoError(t, err)
	assert.Equal(t, location.Path{"Warehouse", "ShelfC"}, p)

	listing, err := reopened.List(location.Path{"Warehouse"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ShelfC"}, listing.Children, "emptied ShelfB must be pruned")
}

func TestOpenCorruptDocument(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "shelftrack.json")
	require.NoError(t, os.WriteFile(cfg.Store.Path, []byte(`{"locations": [`), 0644))

	_, err := Open(context.Background(), cfg)
	assert.ErrorIs(t, err, persist.ErrCorruptState)

	data, err := os.ReadFile(cfg.Store.Path)
	require.NoError(t, err)
	assert.Equal(t, `{"locations": [`, string(data), "corrupt document must not be overwritten")
}

func TestRetryRecoversPersistFailure(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.Engine.RollbackOnPersistFailure = false
	store := &flakyStore{MemoryStore: persist.NewMemoryStore(nil), failures: 2}

	svc, err := New(ctx, store, cfg)
	require.NoError(t, err)

	res, err := svc.Assign(ctx, "42", location.Path{"A"})
	require.NoError(t, err)
	assert.Equal(t, assign.Added, res.Outcome)
	assert.Equal(t, 3, store.writes)

	tree, err := persist.NewGateway(store.MemoryStore).Load(ctx)
	require.NoError(t, err)
	n, ok := tree.Node(location.Path{"A"})
	require.True(t, ok)
	assert.True(t, n.HasBarcode("42"))
}

func TestRetryGivesUp(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.Engine.RollbackOnPersistFailure = false
	cfg.Engine.PersistRetry.Attempts = 2
	store := &flakyStore{MemoryStore: persist.NewMemoryStore(nil), failures: 10}

	svc, err := New(ctx, store, cfg)
	require.NoError(t, err)

	res, err := svc.Assign(ctx, "42", location.Path{"A"})
	assert.ErrorIs(t, err, assign.ErrPersistFailed)
	assert.Equal(t, assign.PersistFailed, res.Outcome)
	assert.Equal(t, assign.Added, res.Applied)
	assert.Equal(t, 1+3, store.writes)

	p, err := svc.Find("42")
	require.NoError(t, err, "without rollback the mutation stays in memory")
	assert.Equal(t, location.Path{"A"}, p)
}

func TestRollbackSkipsRetry(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	store := &flakyStore{MemoryStore: persist.NewMemoryStore(nil), failures: 1}

	svc, err := New(ctx, store, cfg)
	require.NoError(t, err)

	res, err := svc.Assign(ctx, "42", location.Path{"A"})
	assert.ErrorIs(t, err, assign.ErrPersistFailed)
	assert.True(t, res.RolledBack)
	assert.Equal(t, 1, store.writes)

	_, err = svc.Find("42")
	assert.ErrorIs(t, err, assign.ErrNotFound)
}

func TestListMissingLocation(t *testing.T) {
	svc, err := New(context.Background(), persist.NewMemoryStore(nil), memoryConfig())
	require.NoError(t, err)

	_, err = svc.List(location.Path{"Nowhere"})
	assert.ErrorIs(t, err, assign.ErrNotFound)

	root, err := svc.List(nil)
	require.NoError(t, err)
	assert.Empty(t, root.Children)
}

func TestSessionUsesConfiguredCatalog(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "catalog.txt")
	require.NoError(t, os.WriteFile(cfg.Catalog.Path, []byte("111\n222\n"), 0644))

	svc, err := Open(ctx, cfg)
	require.NoError(t, err)

	s := svc.NewSession()
	_, err = s.Select(ctx, location.Path{"Bin"})
	require.NoError(t, err)

	res, err := s.Scan(ctx, scan.NewEvent("999"))
	require.NoError(t, err)
	assert.Equal(t, assign.Unrecognized, res.Outcome)

	res, err = s.Scan(ctx, scan.NewEvent("111"))
	require.NoError(t, err)
	assert.Equal(t, assign.Added, res.Outcome)
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StoreConfig{Backend: "tape"})
	assert.Error(t, err)
}
