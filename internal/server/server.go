// Package server implements the gRPC Inventory service
package server

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/shelftrack/internal/inventory"
	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
)

// Version is reported by Health
const Version = "1.0.0"

// Inventory is the part of inventory.Service the server exposes
type Inventory interface {
	Assign(ctx context.Context, barcode string, target location.Path) (assign.Result, error)
	ResolveMove(ctx context.Context, barcode string, from, to location.Path) (assign.Result, error)
	Unassign(ctx context.Context, barcode string) (assign.Result, error)
	Clear(ctx context.Context) (assign.Result, error)
	EnsureLocation(ctx context.Context, p location.Path) (assign.Result, error)
	Find(barcode string) (location.Path, error)
	List(p location.Path) (inventory.Listing, error)
	Stats() location.Stats
	Backend() string
}

// Server implements InventoryServer over an Inventory
type Server struct {
	inv       Inventory
	startTime time.Time
}

// NewServer creates a new gRPC server instance
func NewServer(inv Inventory) *Server {
	return &Server{
		inv:       inv,
		startTime: time.Now(),
	}
}

// ========== Mutations ==========

func (s *Server) Assign(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := pathField(req, fieldPath)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return s.mutation(s.inv.Assign(ctx, stringField(req, fieldBarcode), p))
}

func (s *Server) Move(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	from, err := pathField(req, fieldFrom)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	to, err := pathField(req, fieldTo)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return s.mutation(s.inv.ResolveMove(ctx, stringField(req, fieldBarcode), from, to))
}

func (s *Server) Unassign(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.mutation(s.inv.Unassign(ctx, stringField(req, fieldBarcode)))
}

func (s *Server) EnsureLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := pathField(req, fieldPath)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return s.mutation(s.inv.EnsureLocation(ctx, p))
}

func (s *Server) Clear(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.mutation(s.inv.Clear(ctx))
}

func (s *Server) mutation(res assign.Result, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, statusError(err, res)
	}
	out, err := resultMessage(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

// ========== Queries ==========

func (s *Server) Find(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	barcode := stringField(req, fieldBarcode)
	if barcode == "" {
		err := fmt.Errorf("%w: barcode is required", assign.ErrInvalidBarcode)
		return nil, statusError(err, assign.Result{Outcome: assign.InvalidBarcode})
	}
	p, err := s.inv.Find(barcode)
	if err != nil {
		return nil, statusError(err, assign.Result{Outcome: assign.OutcomeForError(err), Barcode: barcode})
	}
	return structpb.NewStruct(map[string]any{
		fieldBarcode: barcode,
		fieldPath:    stringList(p),
	})
}

func (s *Server) ListChildren(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := pathField(req, fieldPath)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	listing, err := s.inv.List(p)
	if err != nil {
		return nil, statusError(err, assign.Result{Outcome: assign.OutcomeForError(err), Path: p})
	}
	return structpb.NewStruct(map[string]any{
		fieldPath:     stringList(listing.Path),
		fieldChildren: stringList(listing.Children),
		fieldBarcodes: stringList(listing.Barcodes),
	})
}

// ========== Health & Status ==========

func (s *Server) Health(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"healthy":        true,
		"version":        Version,
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) Stats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	stats := s.inv.Stats()
	out, err := structpb.NewStruct(map[string]any{
		"locations": stats.Nodes,
		"barcodes":  stats.Barcodes,
		"depth":     stats.Depth,
		"backend":   s.inv.Backend(),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode stats: %v", err))
	}
	return out, nil
}

var _ InventoryServer = (*Server)(nil)
