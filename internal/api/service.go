package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "microres.v1.ResilienceEngine"

const (
	evaluateMethod        = "/" + ServiceName + "/Evaluate"
	listEvaluationsMethod = "/" + ServiceName + "/ListEvaluations"
)

// ResilienceEngineServer is the server API for the ResilienceEngine service. Payloads are
// google.protobuf.Struct documents; see handlers.go for their layout.
type ResilienceEngineServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEvaluations(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterResilienceEngineServer attaches srv to s.
func RegisterResilienceEngineServer(s grpc.ServiceRegistrar, srv ResilienceEngineServer) {
	s.RegisterService(&ResilienceEngineServiceDesc, srv)
}

func evaluateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ResilienceEngineServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ResilienceEngineServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listEvaluationsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ResilienceEngineServer).ListEvaluations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listEvaluationsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ResilienceEngineServer).ListEvaluations(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ResilienceEngineServiceDesc describes the ResilienceEngine service for grpc.Server.
var ResilienceEngineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ResilienceEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "ListEvaluations", Handler: listEvaluationsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: ProtoFile,
}

// ResilienceEngineClient calls a remote ResilienceEngine.
type ResilienceEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewResilienceEngineClient wraps an established connection.
func NewResilienceEngineClient(cc grpc.ClientConnInterface) *ResilienceEngineClient {
	return &ResilienceEngineClient{cc: cc}
}

// Evaluate submits a case document and returns the evaluation document.
func (c *ResilienceEngineClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, evaluateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEvaluations queries stored evaluations.
func (c *ResilienceEngineClient) ListEvaluations(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listEvaluationsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
