package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultChannelBuffer is the buffer size for subscriber channels.
const DefaultChannelBuffer = 100

// SubscriptionID is a unique identifier for event subscriptions.
type SubscriptionID string

// subscription holds one subscriber's handler and delivery channel.
type subscription struct {
	id      SubscriptionID
	handler func(Event)
	ch      chan Event
	done    chan struct{}
}

// Bus is a thread-safe pub/sub fan-out. Events are published by a single
// writer (the orchestrator) and delivered to each subscriber in publish
// order. Delivery is fire-and-forget: a subscriber whose buffer is full
// misses the event.
type Bus struct {
	mu         sync.RWMutex
	subs       map[SubscriptionID]*subscription
	subCounter uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates a Bus.
func New() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		subs:   make(map[SubscriptionID]*subscription),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Subscribe registers a handler for all events. The handler runs on its own
// goroutine, one event at a time, in publish order.
func (b *Bus) Subscribe(handler func(Event)) SubscriptionID {
	if b.closed.Load() {
		return ""
	}

	id := SubscriptionID(fmt.Sprintf("sub_%d", atomic.AddUint64(&b.subCounter, 1)))
	sub := &subscription{
		id:      id,
		handler: handler,
		ch:      make(chan Event, DefaultChannelBuffer),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	b.wg.Add(1)
	go b.run(sub)

	return id
}

func (b *Bus) run(sub *subscription) {
	defer b.wg.Done()

	for {
		select {
		case event := <-sub.ch:
			sub.handler(event)
		case <-sub.done:
			return
		case <-b.ctx.Done():
			return
		}
	}
}

// Unsubscribe removes a subscription by ID.
func (b *Bus) Unsubscribe(id SubscriptionID) error {
	if b.closed.Load() {
		return fmt.Errorf("bus is closed")
	}

	b.mu.Lock()
	sub, exists := b.subs[id]
	if !exists {
		b.mu.Unlock()
		return fmt.Errorf("subscription %s not found", id)
	}
	delete(b.subs, id)
	b.mu.Unlock()

	close(sub.done)
	return nil
}

// Publish sends an event to all subscribers. It never blocks: subscribers
// with a full buffer drop the event.
func (b *Bus) Publish(event Event) error {
	if b.closed.Load() {
		return fmt.Errorf("bus is closed")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			// Subscriber too slow, drop for this one.
		}
	}
	return nil
}

// SubscriptionsCount returns the number of active subscriptions.
func (b *Bus) SubscriptionsCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close shuts down the bus and all subscriptions.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("bus already closed")
	}

	b.cancel()
	b.wg.Wait()

	b.mu.Lock()
	b.subs = make(map[SubscriptionID]*subscription)
	b.mu.Unlock()

	return nil
}
