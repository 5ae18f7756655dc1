package grpcserver

import (
	"context"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"atomiclifo/service"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "atomiclifo.v1.Stack"

// StackServer is the server API for the Stack service.
type StackServer interface {
	Push(context.Context, *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error)
	Pop(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// Server adapts StackService to gRPC.
type Server struct {
	svc *service.StackService
	log *logrus.Entry
}

func NewServer(svc *service.StackService, log *logrus.Entry) *Server {
	return &Server{svc: svc, log: log.WithField("component", "grpc")}
}

// Register attaches s to a grpc.Server.
func Register(gs *grpc.Server, s StackServer) {
	gs.RegisterService(&serviceDesc, s)
}

// -------------------- Commands --------------------

func (s *Server) Push(
	ctx context.Context,
	req *wrapperspb.BytesValue,
) (*wrapperspb.UInt64Value, error) {
	seq := s.svc.Push(req.GetValue())

	s.log.WithFields(logrus.Fields{
		"seq":  seq,
		"size": len(req.GetValue()),
	}).Debug("push")

	return wrapperspb.UInt64(seq), nil
}

func (s *Server) Pop(
	ctx context.Context,
	_ *emptypb.Empty,
) (*wrapperspb.BytesValue, error) {
	it, err := s.svc.Pop()
	if err != nil {
		return nil, status.Error(codes.NotFound, err.Error())
	}

	s.log.WithField("seq", it.Seq).Debug("pop")

	return wrapperspb.Bytes(it.Payload), nil
}

// -------------------- Queries --------------------

func (s *Server) Stats(
	ctx context.Context,
	_ *emptypb.Empty,
) (*structpb.Struct, error) {
	st := s.svc.Stats()
	out, err := structpb.NewStruct(map[string]any{
		"len":        st.Len,
		"active":     st.Active,
		"generation": st.Generation,
		"retired":    st.Retired,
		"reclaimed":  st.Reclaimed,
		"allocated":  st.Allocated,
		"throttled":  st.Throttled,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
