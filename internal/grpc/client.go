package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/mr1hm/earthguard/internal/models"
)

// Client calls EventService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *Client) AssessTsunami(ctx context.Context, in *models.TsunamiInput, opts ...grpc.CallOption) (*models.TsunamiAssessment, error) {
	out := new(models.TsunamiAssessment)
	if err := c.cc.Invoke(ctx, methodAssessTsunami, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) JoinMesh(ctx context.Context, in *JoinMeshRequest, opts ...grpc.CallOption) (*JoinMeshResponse, error) {
	out := new(JoinMeshResponse)
	if err := c.cc.Invoke(ctx, methodJoinMesh, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// StreamEvents opens a subscription. The stream ends when ctx is cancelled.
func (c *Client) StreamEvents(ctx context.Context, in *StreamEventsRequest, opts ...grpc.CallOption) (*EventStream, error) {
	cs, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], methodStreamEvents, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(in); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{cs: cs}, nil
}

type EventStream struct {
	cs grpc.ClientStream
}

func (s *EventStream) Recv() (*StreamEvent, error) {
	ev := new(StreamEvent)
	if err := s.cs.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}
