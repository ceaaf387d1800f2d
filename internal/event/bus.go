package event

import (
	"context"
	"log"
	"sync"
	"time"
)

// Event is one fact published on the bus, e.g. an order fill or a
// parameter change.
type Event struct {
	Type      string
	Source    string
	Data      interface{}
	Timestamp time.Time
}

// Handler processes one event.
type Handler func(ctx context.Context, event Event) error

// Bus decouples the trading service from its event consumers (Redis
// publisher, WebSocket hub). Publishing is asynchronous; handlers for
// one event run concurrently with each other but events drain from a
// single channel.
type Bus struct {
	handlers map[string][]Handler
	mu       sync.RWMutex

	eventChan chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewBus creates a bus and starts its processing goroutine.
func NewBus(bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())

	bus := &Bus{
		handlers:  make(map[string][]Handler),
		eventChan: make(chan Event, bufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe registers a handler for an event type. The empty type
// subscribes to every event.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish enqueues an event without blocking; a full buffer drops the
// event with a warning.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventChan <- event:
	default:
		log.Printf("EventBus: Warning - event channel full, dropping event: %s", event.Type)
	}
}

func (b *Bus) processEvents() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.eventChan:
			b.dispatch(b.ctx, event)
		case <-b.ctx.Done():
			log.Println("EventBus: Shutting down event processor")
			return
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Type]...)
	handlers = append(handlers, b.handlers[""]...)
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			if err := h(ctx, event); err != nil {
				log.Printf("EventBus: Handler error for event %s: %v", event.Type, err)
			}
		}(handler)
	}
	wg.Wait()
}

// Shutdown stops the processor after draining in-flight work.
func (b *Bus) Shutdown() {
	b.cancel()
	b.wg.Wait()
}
