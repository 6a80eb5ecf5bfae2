package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nainya/shelftrack/internal/config"
	"github.com/nainya/shelftrack/internal/inventory"
	"github.com/nainya/shelftrack/internal/logger"
	"github.com/nainya/shelftrack/internal/server"
	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
	"github.com/nainya/shelftrack/pkg/scan"
)

// inventoryAPI is what the commands need, served locally or over gRPC
type inventoryAPI interface {
	scan.Assigner
	Unassign(ctx context.Context, barcode string) (assign.Result, error)
	Clear(ctx context.Context) (assign.Result, error)
	Find(ctx context.Context, barcode string) (location.Path, error)
	List(ctx context.Context, p location.Path) (inventory.Listing, error)
	NewSession() *scan.Session
	Close() error
}

type localBackend struct {
	*inventory.Service
}

func (b localBackend) Find(_ context.Context, barcode string) (location.Path, error) {
	return b.Service.Find(barcode)
}

func (b localBackend) List(_ context.Context, p location.Path) (inventory.Listing, error) {
	return b.Service.List(p)
}

type remoteBackend struct {
	*server.Client
	conn    *grpc.ClientConn
	catalog *scan.Catalog
	log     *logger.Logger
}

func (b remoteBackend) NewSession() *scan.Session {
	return scan.NewSession(b,
		scan.WithCatalog(b.catalog),
		scan.WithSessionLogger(b.log.Component("scan")),
	)
}

func (b remoteBackend) Close() error {
	return b.conn.Close()
}

// openAPI connects to --remote when given, otherwise opens the store
func openAPI(ctx context.Context, cfg *config.Config, log *logger.Logger) (inventoryAPI, error) {
	if remoteAddr == "" {
		svc, err := inventory.Open(ctx, cfg, inventory.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return localBackend{svc}, nil
	}

	var catalog *scan.Catalog
	if cfg.Catalog.Path != "" {
		c, err := scan.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		catalog = c
	}

	conn, err := grpc.NewClient(remoteAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", remoteAddr, err)
	}
	return remoteBackend{
		Client:  server.NewClient(conn),
		conn:    conn,
		catalog: catalog,
		log:     log,
	}, nil
}

// withAPI runs fn against a freshly opened API and closes it afterwards
func withAPI(cmd *cobra.Command, fn func(ctx context.Context, api inventoryAPI) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	api, err := openAPI(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer api.Close()
	return fn(ctx, api)
}

var (
	_ inventoryAPI = localBackend{}
	_ inventoryAPI = remoteBackend{}
)
