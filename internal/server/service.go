// Service descriptor for shelftrack.v1.Inventory. Messages are carried as
// google.protobuf.Struct so no generated code is needed.
package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "shelftrack.v1.Inventory"

// Method names
const (
	MethodAssign         = "Assign"
	MethodMove           = "Move"
	MethodUnassign       = "Unassign"
	MethodFind           = "Find"
	MethodListChildren   = "ListChildren"
	MethodEnsureLocation = "EnsureLocation"
	MethodClear          = "Clear"
	MethodHealth         = "Health"
	MethodStats          = "Stats"
)

// FullMethod returns the wire name of a method, e.g. /shelftrack.v1.Inventory/Assign
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// InventoryServer is the server API for the Inventory service
type InventoryServer interface {
	Assign(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Move(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Unassign(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Find(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListChildren(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EnsureLocation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Clear(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(InventoryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	fullMethod := FullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InventoryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// InventoryServiceDesc describes the Inventory service for grpc.Server
var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodAssign, Handler: unaryHandler(MethodAssign, InventoryServer.Assign)},
		{MethodName: MethodMove, Handler: unaryHandler(MethodMove, InventoryServer.Move)},
		{MethodName: MethodUnassign, Handler: unaryHandler(MethodUnassign, InventoryServer.Unassign)},
		{MethodName: MethodFind, Handler: unaryHandler(MethodFind, InventoryServer.Find)},
		{MethodName: MethodListChildren, Handler: unaryHandler(MethodListChildren, InventoryServer.ListChildren)},
		{MethodName: MethodEnsureLocation, Handler: unaryHandler(MethodEnsureLocation, InventoryServer.EnsureLocation)},
		{MethodName: MethodClear, Handler: unaryHandler(MethodClear, InventoryServer.Clear)},
		{MethodName: MethodHealth, Handler: unaryHandler(MethodHealth, InventoryServer.Health)},
		{MethodName: MethodStats, Handler: unaryHandler(MethodStats, InventoryServer.Stats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shelftrack/v1/inventory.proto",
}

// RegisterInventoryServer registers srv with the gRPC server
func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}
