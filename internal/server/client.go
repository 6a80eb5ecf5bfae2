// Typed client for the Inventory service
package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/shelftrack/internal/inventory"
	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
)

// Client calls a remote Inventory service. Errors wrap both the engine's
// sentinel and the gRPC status, so errors.Is and status.Code both work.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Stats is the remote tree summary
type Stats struct {
	location.Stats
	Backend string
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) mutation(ctx context.Context, method string, fields map[string]any) (assign.Result, error) {
	out, err := c.invoke(ctx, method, fields)
	if err != nil {
		return decodeError(err)
	}
	return resultFromMessage(out), nil
}

// decodeError recovers the result detail and sentinel from a status error
func decodeError(err error) (assign.Result, error) {
	st, ok := status.FromError(err)
	if !ok {
		return assign.Result{}, err
	}
	var res assign.Result
	for _, d := range st.Details() {
		if msg, ok := d.(*structpb.Struct); ok {
			res = resultFromMessage(msg)
			break
		}
	}
	if sentinel := sentinelFor(st.Code(), res.Outcome); sentinel != nil {
		return res, fmt.Errorf("%w: %w", sentinel, err)
	}
	return res, err
}

// Assign places a barcode at target
func (c *Client) Assign(ctx context.Context, barcode string, target location.Path) (assign.Result, error) {
	return c.mutation(ctx, MethodAssign, map[string]any{
		fieldBarcode: barcode,
		fieldPath:    stringList(target),
	})
}

// ResolveMove moves a barcode between locations
func (c *Client) ResolveMove(ctx context.Context, barcode string, from, to location.Path) (assign.Result, error) {
	return c.mutation(ctx, MethodMove, map[string]any{
		fieldBarcode: barcode,
		fieldFrom:    stringList(from),
		fieldTo:      stringList(to),
	})
}

// Unassign removes a barcode from its location
func (c *Client) Unassign(ctx context.Context, barcode string) (assign.Result, error) {
	return c.mutation(ctx, MethodUnassign, map[string]any{fieldBarcode: barcode})
}

// EnsureLocation creates an empty location
func (c *Client) EnsureLocation(ctx context.Context, p location.Path) (assign.Result, error) {
	return c.mutation(ctx, MethodEnsureLocation, map[string]any{fieldPath: stringList(p)})
}

// Clear drops every location and assignment
func (c *Client) Clear(ctx context.Context) (assign.Result, error) {
	return c.mutation(ctx, MethodClear, map[string]any{})
}

// Find returns where a barcode is
func (c *Client) Find(ctx context.Context, barcode string) (location.Path, error) {
	out, err := c.invoke(ctx, MethodFind, map[string]any{fieldBarcode: barcode})
	if err != nil {
		_, err = decodeError(err)
		return nil, err
	}
	return pathField(out, fieldPath)
}

// List returns the children and barcodes at p
func (c *Client) List(ctx context.Context, p location.Path) (inventory.Listing, error) {
	out, err := c.invoke(ctx, MethodListChildren, map[string]any{fieldPath: stringList(p)})
	if err != nil {
		_, err = decodeError(err)
		return inventory.Listing{}, err
	}
	path, err := pathField(out, fieldPath)
	if err != nil {
		return inventory.Listing{}, err
	}
	return inventory.Listing{
		Path:     path,
		Children: stringsField(out, fieldChildren),
		Barcodes: stringsField(out, fieldBarcodes),
	}, nil
}

// Health reports whether the server answers and its version
func (c *Client) Health(ctx context.Context) (string, error) {
	out, err := c.invoke(ctx, MethodHealth, map[string]any{})
	if err != nil {
		return "", err
	}
	if !out.GetFields()["healthy"].GetBoolValue() {
		return "", fmt.Errorf("server reports unhealthy")
	}
	return stringField(out, "version"), nil
}

// Stats returns the remote tree summary
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	out, err := c.invoke(ctx, MethodStats, map[string]any{})
	if err != nil {
		return Stats{}, err
	}
	f := out.GetFields()
	return Stats{
		Stats: location.Stats{
			Nodes:    int(f["locations"].GetNumberValue()),
			Barcodes: int(f["barcodes"].GetNumberValue()),
			Depth:    int(f["depth"].GetNumberValue()),
		},
		Backend: stringField(out, "backend"),
	}, nil
}
