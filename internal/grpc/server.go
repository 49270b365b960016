package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"slices"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/notifier"
	"github.com/mr1hm/earthguard/internal/observability"
	"github.com/mr1hm/earthguard/internal/tsunami"
)

// Server exposes the real-time channel and the tsunami assessor over gRPC.
// Stream subscribers share the notifier registry with SSE clients.
type Server struct {
	registry     *notifier.Registry
	notifier     *notifier.Notifier
	metrics      *observability.Metrics
	logger       *slog.Logger
	clientBuffer int
	grpcServer   *grpc.Server
}

func NewServer(registry *notifier.Registry, n *notifier.Notifier, metrics *observability.Metrics, logger *slog.Logger, clientBuffer int) *Server {
	s := &Server{
		registry:     registry,
		notifier:     n,
		metrics:      metrics,
		logger:       logger,
		clientBuffer: clientBuffer,
		grpcServer:   grpc.NewServer(grpc.ForceServerCodec(jsonCodec{})),
	}
	s.grpcServer.RegisterService(&serviceDesc, s)
	return s
}

func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// Stop drains in-flight calls. Open event streams end when the registry is
// closed; anything still running after timeout is cut off.
func (s *Server) Stop(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.grpcServer.Stop()
		<-done
	}
}

func (s *Server) StreamEvents(req *StreamEventsRequest, stream grpc.ServerStream) error {
	client := notifier.NewClient("grpc-"+uuid.NewString(), s.clientBuffer)
	if !s.registry.Add(client) {
		return status.Error(codes.Unavailable, "server is shutting down")
	}
	defer s.notifier.OnClientDisconnect(client.ID())

	if err := s.notifier.OnClientConnect(client.ID()); err != nil {
		return status.Errorf(codes.Internal, "failed to register client: %v", err)
	}

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev, ok := <-client.Events():
			if !ok {
				return nil
			}
			if !wanted(req.Events, ev.Name) {
				continue
			}

			data, err := json.Marshal(ev.Data)
			if err != nil {
				s.logger.Error("failed to encode event", "event", ev.Name, "error", err)
				continue
			}
			if err := stream.SendMsg(&StreamEvent{Event: ev.Name, Data: data}); err != nil {
				s.logger.Debug("failed to send event to stream", "client_id", client.ID(), "error", err)
				return err
			}
		}
	}
}

func wanted(filter []string, name string) bool {
	if len(filter) == 0 || name == notifier.EventConnected || name == notifier.EventMeshJoined {
		return true
	}
	return slices.Contains(filter, name)
}

func (s *Server) JoinMesh(_ context.Context, req *JoinMeshRequest) (*JoinMeshResponse, error) {
	if err := s.notifier.OnJoinMesh(req.ClientID, req.NodeID); err != nil {
		switch {
		case errors.Is(err, notifier.ErrInvalidNodeID):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, notifier.ErrUnknownClient):
			return nil, status.Error(codes.NotFound, err.Error())
		default:
			return nil, status.Errorf(codes.Internal, "failed to join mesh: %v", err)
		}
	}
	return &JoinMeshResponse{Status: "success", NodeID: req.NodeID}, nil
}

func (s *Server) AssessTsunami(_ context.Context, in *models.TsunamiInput) (*models.TsunamiAssessment, error) {
	out, err := tsunami.Assess(*in)
	if err != nil {
		if errors.Is(err, tsunami.ErrInvalidInput) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Errorf(codes.Internal, "assessment failed: %v", err)
	}
	s.metrics.Assessments.WithLabelValues(string(out.RiskLevel)).Inc()
	return &out, nil
}
