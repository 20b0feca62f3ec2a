package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	PushServiceName = "battleide.push.v1.PushService"
	pushMethod      = "/" + PushServiceName + "/Push"
)

// Pusher delivers an event to every live connection of a user and reports how
// many connections received it.
type Pusher interface {
	Push(ctx context.Context, userID string, ev model.Event) (int, error)
}

// PushServer lets judge and match services push updates to connected users.
// Requests are {userId, type, payload}; replies are {delivered, message}.
type PushServer interface {
	Push(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var PushServiceDesc = grpc.ServiceDesc{
	ServiceName: PushServiceName,
	HandlerType: (*PushServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Push", Handler: pushHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "battleide/push/v1/push.proto",
}

func RegisterPushServer(s grpc.ServiceRegistrar, srv PushServer) {
	s.RegisterService(&PushServiceDesc, srv)
}

func pushHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PushServer).Push(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: pushMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PushServer).Push(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type PushService struct {
	pusher Pusher
	log    *zap.Logger
}

func NewPushService(pusher Pusher, log *zap.Logger) *PushService {
	return &PushService{
		pusher: pusher,
		log:    logger.OrNop(log).Named("grpc.push"),
	}
}

func (s *PushService) Push(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requestID := uuid.New().String()
	fields := req.GetFields()

	userID := fields["userId"].GetStringValue()
	eventType := fields["type"].GetStringValue()
	if userID == "" || eventType == "" {
		return nil, status.Error(codes.InvalidArgument, "userId and type are required")
	}

	var payload any
	if p, ok := fields["payload"]; ok {
		payload = p.AsInterface()
	}
	ev, err := model.NewEvent(model.EventType(eventType), payload)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid payload: %v", err)
	}

	delivered, err := s.pusher.Push(ctx, userID, ev)
	if err != nil {
		s.log.Error("push failed", zap.String("requestId", requestID), zap.String("userId", userID), zap.Error(err))
		return nil, status.Errorf(codes.Unavailable, "push failed: %v", err)
	}

	s.log.Info("push accepted",
		zap.String("requestId", requestID),
		zap.String("userId", userID),
		zap.String("type", eventType),
		zap.Int("delivered", delivered))

	return structpb.NewStruct(map[string]any{
		"delivered": delivered,
		"message":   "received",
	})
}

// EventFields builds a push request for ev.
func EventFields(userID string, ev model.Event) (*structpb.Struct, error) {
	fields := map[string]any{
		"userId": userID,
		"type":   string(ev.Type),
	}
	if len(ev.Payload) > 0 {
		var payload any
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return nil, err
		}
		fields["payload"] = payload
	}
	return structpb.NewStruct(fields)
}
