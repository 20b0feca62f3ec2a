package service

import (
	"context"
	"fmt"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// PushClient calls PushService on a remote instance.
type PushClient struct {
	cc grpc.ClientConnInterface
}

func NewPushClient(cc grpc.ClientConnInterface) *PushClient {
	return &PushClient{cc: cc}
}

// Push sends ev to userID and returns the number of connections reached.
func (c *PushClient) Push(ctx context.Context, userID string, ev model.Event, opts ...grpc.CallOption) (int, error) {
	in, err := EventFields(userID, ev)
	if err != nil {
		return 0, fmt.Errorf("failed to encode push: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, pushMethod, in, out, opts...); err != nil {
		return 0, err
	}
	return int(out.GetFields()["delivered"].GetNumberValue()), nil
}
