package service

import (
	"container/list"
	"sync"
	"time"
)

// refuseCache is the per-replica, per-worker map of recently refused jobs.
// Each worker gets its own LRU bounded at cap entries with a fixed TTL
type refuseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	cap     int
	workers map[string]*workerRefusals
	now     func() time.Time
}

type workerRefusals struct {
	order *list.List // front = most recent
	byJob map[string]*list.Element
}

type refuseEntry struct {
	jobID   string
	reason  string
	expires time.Time
}

func newRefuseCache(ttl time.Duration, cap int) *refuseCache {
	return &refuseCache{
		ttl:     ttl,
		cap:     cap,
		workers: make(map[string]*workerRefusals),
		now:     time.Now,
	}
}

func (c *refuseCache) add(workerID, jobID, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.workers[workerID]
	if w == nil {
		w = &workerRefusals{order: list.New(), byJob: make(map[string]*list.Element)}
		c.workers[workerID] = w
	}

	if el, ok := w.byJob[jobID]; ok {
		el.Value = refuseEntry{jobID: jobID, reason: reason, expires: c.now().Add(c.ttl)}
		w.order.MoveToFront(el)
		return
	}

	w.byJob[jobID] = w.order.PushFront(refuseEntry{jobID: jobID, reason: reason, expires: c.now().Add(c.ttl)})
	for w.order.Len() > c.cap {
		oldest := w.order.Back()
		w.order.Remove(oldest)
		delete(w.byJob, oldest.Value.(refuseEntry).jobID)
	}
}

func (c *refuseCache) excluded(workerID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.workers[workerID]
	if w == nil {
		return nil
	}

	now := c.now()
	out := make([]string, 0, w.order.Len())
	for el := w.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(refuseEntry)
		if now.After(e.expires) {
			w.order.Remove(el)
			delete(w.byJob, e.jobID)
		} else {
			out = append(out, e.jobID)
		}
		el = next
	}
	if w.order.Len() == 0 {
		delete(c.workers, workerID)
	}
	return out
}
