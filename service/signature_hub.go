package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/config"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// SignatureHub carries signatures captured on another device to whoever is
// waiting for them. Subscribers only see deliveries matching their id.
type SignatureHub interface {
	Publish(ctx context.Context, d model.SignatureDelivery) error
	Subscribe(id string) (<-chan model.SignatureDelivery, func())
}

const subscriberBuffer = 4

type subscriber struct {
	id string
	ch chan model.SignatureDelivery
}

// MemoryHub fans deliveries out inside this process.
type MemoryHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscriber
}

// NewMemoryHub creates a hub delivering within this process.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[int]subscriber)}
}

func (h *MemoryHub) Publish(_ context.Context, d model.SignatureDelivery) error {
	h.dispatch(d)
	return nil
}

// dispatch never blocks: a subscriber that is not keeping up loses the message.
func (h *MemoryHub) dispatch(d model.SignatureDelivery) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, s := range h.subs {
		if !d.Matches(s.id) {
			continue
		}
		select {
		case s.ch <- d:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribe returns a channel of deliveries for id and a func that removes
// the subscription and closes the channel.
func (h *MemoryHub) Subscribe(id string) (<-chan model.SignatureDelivery, func()) {
	h.mu.Lock()
	key := h.nextID
	h.nextID++
	ch := make(chan model.SignatureDelivery, subscriberBuffer)
	h.subs[key] = subscriber{id: id, ch: ch}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, key)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *MemoryHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// RedisHub publishes deliveries on a redis channel so every instance behind
// the load balancer can reach its own subscribers.
type RedisHub struct {
	client  *redis.Client
	channel string
	local   *MemoryHub
}

// NewRedisHub creates a hub relaying deliveries over Redis pub/sub. Run must
// be started to receive them.
func NewRedisHub(cfg *config.RedisConfig) *RedisHub {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisHub{client: client, channel: cfg.Channel, local: NewMemoryHub()}
}

func (h *RedisHub) Publish(ctx context.Context, d model.SignatureDelivery) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode signature delivery: %w", err)
	}
	if err := h.client.Publish(ctx, h.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish signature delivery: %w", err)
	}
	return nil
}

func (h *RedisHub) Subscribe(id string) (<-chan model.SignatureDelivery, func()) {
	return h.local.Subscribe(id)
}

// Run listens on the redis channel until ctx is done.
func (h *RedisHub) Run(ctx context.Context) error {
	ps := h.client.Subscribe(ctx, h.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", h.channel, err)
	}
	logger.Info(ctx, "signature hub listening", "channel", h.channel)

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.dispatch(ctx, msg.Payload)
		}
	}
}

func (h *RedisHub) dispatch(ctx context.Context, payload string) {
	var d model.SignatureDelivery
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		logger.Warn(ctx, "dropping malformed signature delivery", "error", err)
		return
	}
	if d.Type != model.SignatureDeliveryType {
		return
	}
	n := h.local.dispatch(d)
	logger.Debug(ctx, "signature delivery dispatched", "contract_id", d.ContractID, "subscribers", n)
}

func (h *RedisHub) Close() error {
	return h.client.Close()
}
