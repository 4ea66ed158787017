package bus

import (
	"context"
	"fmt"
	"log"
	"sync"

	redislib "github.com/redis/go-redis/v9"

	"clix/internal/redis"
)

// RedisBus carries envelopes between separate context processes over a
// single named Redis pub/sub channel. Pub/sub gives exactly the contract the
// sync layer needs: FIFO per publisher, fan-out to every live subscriber,
// and nothing kept for subscribers that were not connected.
type RedisBus struct {
	client    *redis.Client
	channel   string
	contextID string
	subs      *subscribers

	cancel context.CancelFunc
	wg     sync.WaitGroup
	pubsub *redislib.PubSub
}

// NewRedisBus attaches to the named channel and starts the receive loop.
// The loop stops when ctx is cancelled or Close is called.
func NewRedisBus(ctx context.Context, client *redis.Client, channel, contextID string) (*RedisBus, error) {
	pubsub := client.Subscribe(ctx, channel)

	// Force the subscription to be established before returning so a
	// broadcast right after construction is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe channel %s: %w", channel, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	b := &RedisBus{
		client:    client,
		channel:   channel,
		contextID: contextID,
		subs:      newSubscribers(),
		cancel:    cancel,
		pubsub:    pubsub,
	}

	b.wg.Add(1)
	go b.receiveLoop(loopCtx)

	log.Printf("[Bus] Attached: ctx=%s channel=%s", contextID, channel)
	return b, nil
}

// receiveLoop dispatches remote envelopes to the local subscriber set.
func (b *RedisBus) receiveLoop(ctx context.Context) {
	defer b.wg.Done()

	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			e, err := ParseEnvelope([]byte(msg.Payload))
			if err != nil {
				log.Printf("[Bus] Drop malformed envelope: ctx=%s err=%v", b.contextID, err)
				continue
			}
			// Pub/sub echoes our own publishes back; local delivery already
			// happened synchronously in Broadcast.
			if e.Origin == b.contextID {
				continue
			}
			b.subs.dispatch(e)
		}
	}
}

func (b *RedisBus) Subscribe(h Handler) func() {
	return b.subs.add(h)
}

func (b *RedisBus) Broadcast(eventType string, payload interface{}) error {
	e, err := NewEnvelope(eventType, b.contextID, payload)
	if err != nil {
		return err
	}

	// Local subscribers see the event in this call, before the round trip.
	b.subs.dispatch(e)

	data, err := e.Encode()
	if err != nil {
		return err
	}
	if err := b.client.Publish(context.Background(), b.channel, data).Err(); err != nil {
		log.Printf("[Bus] Broadcast FAILED: ctx=%s type=%s err=%v", b.contextID, eventType, err)
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	log.Printf("[Bus] Broadcast OK: ctx=%s type=%s", b.contextID, eventType)
	return nil
}

// Close stops the receive loop and detaches from the channel.
func (b *RedisBus) Close() error {
	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
