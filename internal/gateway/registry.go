package gateway

import "sync"

// Registry maps presence keys to the single live channel for each key.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register makes ch the live channel for key and returns the channel it
// replaced, if any. The caller is responsible for closing the previous one.
func (r *Registry) Register(key string, ch Channel) Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.channels[key]
	r.channels[key] = ch
	if prev == ch {
		return nil
	}
	return prev
}

// Unregister removes key only while ch is still its live channel, so a
// late close of a superseded channel cannot evict its replacement.
func (r *Registry) Unregister(key string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.channels[key]; ok && current == ch {
		delete(r.channels, key)
		return true
	}
	return false
}

// Lookup returns the live channel for key.
func (r *Registry) Lookup(key string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[key]
	return ch, ok
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
