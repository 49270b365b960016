package grpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"github.com/mr1hm/earthguard/internal/models"
)

const (
	serviceName = "earthguard.v1.EventService"

	methodStreamEvents  = "/" + serviceName + "/StreamEvents"
	methodJoinMesh      = "/" + serviceName + "/JoinMesh"
	methodAssessTsunami = "/" + serviceName + "/AssessTsunami"
)

// StreamEventsRequest subscribes to the real-time channel. An empty Events
// list means every broadcast event. The connected and mesh_joined
// acknowledgements are always delivered.
type StreamEventsRequest struct {
	Events []string `json:"events,omitempty"`
}

type StreamEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinMeshRequest struct {
	ClientID string `json:"client_id"`
	NodeID   string `json:"node_id"`
}

type JoinMeshResponse struct {
	Status string `json:"status"`
	NodeID string `json:"node_id"`
}

// EventService is the server API registered under serviceName.
type EventService interface {
	StreamEvents(*StreamEventsRequest, grpc.ServerStream) error
	JoinMesh(context.Context, *JoinMeshRequest) (*JoinMeshResponse, error)
	AssessTsunami(context.Context, *models.TsunamiInput) (*models.TsunamiAssessment, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EventService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "JoinMesh", Handler: joinMeshHandler},
		{MethodName: "AssessTsunami", Handler: assessTsunamiHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamEvents", Handler: streamEventsHandler, ServerStreams: true},
	},
	Metadata: "earthguard/v1/events",
}

func streamEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(StreamEventsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(EventService).StreamEvents(in, stream)
}

func joinMeshHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(JoinMeshRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventService).JoinMesh(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodJoinMesh}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventService).JoinMesh(ctx, req.(*JoinMeshRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func assessTsunamiHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(models.TsunamiInput)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventService).AssessTsunami(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAssessTsunami}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventService).AssessTsunami(ctx, req.(*models.TsunamiInput))
	}
	return interceptor(ctx, in, info, handler)
}
