package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "detbuilder.v1.TriggerService"

// Method names.
const (
	MethodValidateSyntax  = "ValidateSyntax"
	MethodEvaluateTrigger = "EvaluateTrigger"
	MethodHandleSave      = "HandleSave"
	MethodProjectMetadata = "ProjectMetadata"
	MethodGetSettings     = "GetSettings"
	MethodPutSettings     = "PutSettings"
	MethodAuditLog        = "AuditLog"
)

// TriggerServer is the server API for TriggerService. Requests and
// responses are google.protobuf.Struct documents with the JSON shapes of
// the api package.
type TriggerServer interface {
	ValidateSyntax(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateTrigger(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HandleSave(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProjectMetadata(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PutSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AuditLog(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(TriggerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TriggerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TriggerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the RPC path for a method name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// TriggerServiceDesc describes TriggerService for grpc.Server.RegisterService.
var TriggerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TriggerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodValidateSyntax, TriggerServer.ValidateSyntax),
		unaryMethod(MethodEvaluateTrigger, TriggerServer.EvaluateTrigger),
		unaryMethod(MethodHandleSave, TriggerServer.HandleSave),
		unaryMethod(MethodProjectMetadata, TriggerServer.ProjectMetadata),
		unaryMethod(MethodGetSettings, TriggerServer.GetSettings),
		unaryMethod(MethodPutSettings, TriggerServer.PutSettings),
		unaryMethod(MethodAuditLog, TriggerServer.AuditLog),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "detbuilder/v1/trigger.proto",
}

// Client calls TriggerService methods.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req encoded as a Struct and decodes the reply
// into resp.
func (c *Client) Call(ctx context.Context, method string, req any, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return fromStruct(out, resp)
}
