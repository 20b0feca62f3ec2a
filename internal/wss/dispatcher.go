package wss

import (
	"errors"
	"fmt"

	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	wsstypes "github.com/prajyotgorlewar/BattleIDE/internal/wss/types"
	"go.uber.org/zap"
)

var ErrUnknownEvent = errors.New("unknown event type")

// WsHandlerType defines the signature for a WebSocket event handler
type WsHandlerType func(*wsstypes.WsContext) error

type Dispatcher struct {
	handlers map[string]WsHandlerType
	log      *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]WsHandlerType),
		log:      logger.OrNop(log).Named("dispatcher"),
	}
}

// Register is not safe for use once the server is accepting connections.
func (d *Dispatcher) Register(event string, handler WsHandlerType) {
	d.log.Debug("registering handler", zap.String("event", event))
	d.handlers[event] = handler
}

func (d *Dispatcher) Dispatch(event string, ctx *wsstypes.WsContext) error {
	handler, ok := d.handlers[event]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}

	if err := handler(ctx); err != nil {
		d.log.Warn("handler error", zap.String("event", event), zap.String("requestId", ctx.RequestID), zap.Error(err))
		return err
	}
	return nil
}
