package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// StreamManager fans engine events out to server-sent event subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan string]struct{}
	dropped     int
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan string]struct{}),
	}
}

// Subscribe returns a buffered channel of JSON events and a function that
// cancels the subscription.
func (sm *StreamManager) Subscribe() (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Broadcast sends msg to every subscriber. Slow clients lose messages
// instead of blocking the engine.
func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			sm.dropped++
		}
	}
}

// Dropped returns how many messages were discarded for full buffers.
func (sm *StreamManager) Dropped() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.dropped
}

// Collector exposes Dropped as the stepgraph_events_dropped_total counter.
func (sm *StreamManager) Collector() prometheus.Collector {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "stepgraph_events_dropped_total",
		Help: "Server-sent events discarded because a subscriber buffer was full.",
	}, func() float64 {
		return float64(sm.Dropped())
	})
}

// Hooks publishes node transitions and run completions.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			sm.publish(e)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			sm.publish(e)
		},
	}
}

func (sm *StreamManager) publish(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	sm.Broadcast(string(data))
}

// SubscribeEvents handles GET /events as a server-sent event stream.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, cancel := s.Streams.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}
