package events

import (
	"context"
	"log"
	"sync"
)

// ChannelBus is the in-process transport: a buffered channel drained by a
// single worker goroutine.
type ChannelBus struct {
	ch     chan PostCreated
	handle Handler
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewChannelBus(buffer int, h Handler) *ChannelBus {
	if buffer <= 0 {
		buffer = 64
	}
	b := &ChannelBus{
		ch:     make(chan PostCreated, buffer),
		handle: h,
	}
	b.wg.Add(1)
	go b.run()
	return b
}

func (b *ChannelBus) run() {
	defer b.wg.Done()
	for evt := range b.ch {
		if err := b.handle(context.Background(), evt); err != nil {
			log.Printf("[Events] post-created handler failed for post %d: %v", evt.PostID, err)
		}
	}
}

func (b *ChannelBus) PublishPostCreated(_ context.Context, evt PostCreated) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		log.Printf("[Events] bus closed, dropping post-created for post %d", evt.PostID)
		return
	}

	select {
	case b.ch <- evt:
	default:
		log.Printf("[Events] buffer full, dropping post-created for post %d", evt.PostID)
	}
}

// Close stops accepting events and waits until the queued ones are handled.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.ch)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
