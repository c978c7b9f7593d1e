package stream

import "sync"

// Hub owns one Buffer per topic. Buffers are created on first use and live
// until Close.
type Hub struct {
	mu      sync.Mutex
	size    int
	buffers map[string]*Buffer
	closed  bool
}

func NewHub(size int) *Hub {
	return &Hub{size: size, buffers: map[string]*Buffer{}}
}

func (h *Hub) Buffer(topic string) *Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.buffers[topic]; ok {
		return b
	}
	b := NewBuffer(topic, h.size)
	if h.closed {
		b.Close()
		return b
	}
	h.buffers[topic] = b
	return b
}

func (h *Hub) Publish(topic, event string, data any) Event {
	return h.Buffer(topic).Append(event, data)
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for topic, b := range h.buffers {
		b.Close()
		delete(h.buffers, topic)
	}
}
