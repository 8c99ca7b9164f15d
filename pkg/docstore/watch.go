package docstore

import (
	"context"
	"sync"
)

// hub fans change notifications out to in-process watchers. It backs Watch for
// stores that have no native change feed.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber
}

type subscriber struct {
	collection string
	notify     chan struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[int]*subscriber)}
}

func (h *hub) subscribe(collection string) (int, *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	sub := &subscriber{collection: collection, notify: make(chan struct{}, 1)}
	h.subs[h.next] = sub
	return h.next, sub
}

func (h *hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// publish wakes every watcher of the collections the given paths belong to.
func (h *hub) publish(paths ...string) {
	touched := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if coll, _, err := Split(p); err == nil {
			touched[coll] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if _, ok := touched[sub.collection]; !ok {
			continue
		}
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
}

// watch re-runs query after every notification and streams the results until ctx is done.
func (h *hub) watch(ctx context.Context, q Query, query func(context.Context, Query) ([]*Snapshot, error)) (<-chan []*Snapshot, error) {
	id, sub := h.subscribe(q.Collection)
	first, err := query(ctx, q)
	if err != nil {
		h.unsubscribe(id)
		return nil, err
	}

	out := make(chan []*Snapshot)

	go func() {
		defer close(out)
		defer h.unsubscribe(id)

		pending := first
		for {
			select {
			case <-ctx.Done():
				return
			case out <- pending:
			}

			select {
			case <-ctx.Done():
				return
			case <-sub.notify:
			}

			next, err := query(ctx, q)
			if err != nil {
				return
			}
			pending = next
		}
	}()

	return out, nil
}
