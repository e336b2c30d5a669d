package web

import "sync"

// tabHub fans change notifications out to the /events streams of open
// browser tabs. The tab that caused a change already applied its own patches
// and is skipped.
type tabHub struct {
	mu   sync.Mutex
	subs map[chan struct{}]string
}

func newTabHub() *tabHub {
	return &tabHub{subs: map[chan struct{}]string{}}
}

func (h *tabHub) subscribe(tab string) (ch chan struct{}, cancel func()) {
	ch = make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = tab
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *tabHub) broadcast(origin string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, tab := range h.subs {
		if origin != "" && tab == origin {
			continue
		}
		// Coalesce: one pending notification is enough for a full re-render.
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *tabHub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
