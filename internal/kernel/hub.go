package kernel

import "sync"

// Hub is a synchronous broadcast to subscribers after a successful store
// mutation. Subscribe returns a disposer; a subscriber panic is swallowed so
// a listener failure can never roll back the mutation that triggered it.
type Hub[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func (h *Hub[T]) Subscribe(fn func(T)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(T))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *Hub[T]) Publish(event T) {
	h.mu.Lock()
	fns := make([]func(T), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() { _ = recover() }()
			fn(event)
		}()
	}
}
