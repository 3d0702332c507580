package grpc

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
	"github.com/simaogato/ledgerdash-backend/internal/usecase/dashboard"
)

// Server implements the DashboardService gRPC server
type Server struct {
	DashboardService *dashboard.DashboardService
	log              zerolog.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(dashboardService *dashboard.DashboardService, log zerolog.Logger) *Server {
	return &Server{
		DashboardService: dashboardService,
		log:              log.With().Str("component", "grpc").Logger(),
	}
}

// Connect handles the Connect RPC
func (s *Server) Connect(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if _, err := s.DashboardService.Connect(ctx); err != nil {
		return nil, mapError(err)
	}

	return s.snapshotResponse()
}

// Disconnect handles the Disconnect RPC
func (s *Server) Disconnect(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.DashboardService.Disconnect()
	return &emptypb.Empty{}, nil
}

// AcknowledgeAlert handles the AcknowledgeAlert RPC
func (s *Server) AcknowledgeAlert(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.DashboardService.AcknowledgeAlert()
	return &emptypb.Empty{}, nil
}

// RefreshBalances handles the RefreshBalances RPC
func (s *Server) RefreshBalances(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.DashboardService.RefreshBalances(ctx); err != nil {
		return nil, mapError(err)
	}

	return s.snapshotResponse()
}

// GetSnapshot handles the GetSnapshot RPC
func (s *Server) GetSnapshot(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.snapshotResponse()
}

// WatchSnapshot streams the current snapshot and then every change until the client leaves
func (s *Server) WatchSnapshot(_ *emptypb.Empty, stream grpc.ServerStream) error {
	updates, unsubscribe := s.DashboardService.Subscribe()
	defer unsubscribe()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}

			msg, err := SnapshotToStruct(snap)
			if err != nil {
				return mapError(err)
			}
			if err := stream.SendMsg(msg); err != nil {
				s.log.Debug().Err(err).Msg("Snapshot watcher went away")
				return err
			}
		}
	}
}

func (s *Server) snapshotResponse() (*structpb.Struct, error) {
	msg, err := SnapshotToStruct(s.DashboardService.Snapshot())
	if err != nil {
		return nil, mapError(err)
	}
	return msg, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var connErr *domain.ConnectionError

	switch {
	case errors.As(err, &connErr):
		return status.Errorf(codes.Unavailable, "%s", err.Error())
	case errors.Is(err, domain.ErrNotConnected):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
