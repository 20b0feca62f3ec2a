package wss

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/metrics"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/prajyotgorlewar/BattleIDE/internal/repo"
	"github.com/prajyotgorlewar/BattleIDE/internal/state"
	"github.com/prajyotgorlewar/BattleIDE/internal/wss/broadcasts"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LocalPusher delivers events to connections held by this instance only.
type LocalPusher struct {
	registry *state.Registry
	metrics  *metrics.Metrics
}

func NewLocalPusher(registry *state.Registry, m *metrics.Metrics) *LocalPusher {
	return &LocalPusher{registry: registry, metrics: m}
}

func (p *LocalPusher) Push(_ context.Context, userID string, ev model.Event) (int, error) {
	return broadcasts.ToUser(p.registry, p.metrics, userID, ev)
}

// RedisPusher fans pushes out through Redis so that the instance holding the
// user's connection delivers it.
type RedisPusher struct {
	broker *repo.RedisRepository
	local  *LocalPusher
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisPusher(broker *repo.RedisRepository, local *LocalPusher, log *zap.Logger) *RedisPusher {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisPusher{
		broker: broker,
		local:  local,
		log:    logger.OrNop(log).Named("wss.redis_pusher"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the push channels and delivers incoming events locally.
func (p *RedisPusher) Start() error {
	pubsub := p.broker.SubscribePushes(p.ctx)
	if _, err := pubsub.Receive(p.ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("redis psubscribe failed: %w", err)
	}

	p.log.Info("push listener started", zap.String("pattern", repo.PushChannelPattern))
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.messageLoop(pubsub)
	}()
	return nil
}

// Stop ends the listener and waits for it.
func (p *RedisPusher) Stop() {
	p.cancel()
	p.wg.Wait()
	p.log.Info("push listener stopped")
}

// Push publishes ev for userID. The count is the number of instances that
// received it, not the number of connections.
func (p *RedisPusher) Push(ctx context.Context, userID string, ev model.Event) (int, error) {
	n, err := p.broker.Publish(ctx, userID, ev)
	return int(n), err
}

func (p *RedisPusher) messageLoop(pubsub *redis.PubSub) {
	defer pubsub.Close()
	msgs := pubsub.Channel()

	for {
		select {
		case <-p.ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				p.log.Warn("pubsub channel closed")
				return
			}
			p.deliver(msg)
		}
	}
}

func (p *RedisPusher) deliver(msg *redis.Message) {
	userID, ok := repo.UserFromChannel(msg.Channel)
	if !ok {
		p.log.Warn("unexpected channel", zap.String("channel", msg.Channel))
		return
	}

	var ev model.Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		p.log.Warn("invalid push payload", zap.String("userId", userID), zap.Error(err))
		return
	}

	sent, err := p.local.Push(p.ctx, userID, ev)
	if err != nil {
		p.log.Warn("local delivery failed", zap.String("userId", userID), zap.Error(err))
	}
	if sent > 0 {
		p.log.Debug("push delivered", zap.String("userId", userID), zap.String("type", string(ev.Type)), zap.Int("connections", sent))
	}
}
