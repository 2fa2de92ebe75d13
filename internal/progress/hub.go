package progress

import (
	"sync"
	"time"
)

// Update is one progress event emitted while a job is processing.
type Update struct {
	JobID     string    `json:"job_id"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type subscriber struct {
	jobID string
	ch    chan Update
}

// Hub fans progress updates out to observers registered per job id. It
// decouples progress reporting from the collaborator call stack: the runner
// publishes, and anything interested (tests, future transports) subscribes.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers an observer for one job id. The returned cancel
// function unregisters it and closes the channel; it is safe to call more
// than once.
func (h *Hub) Subscribe(jobID string) (<-chan Update, func()) {
	sub := &subscriber{
		jobID: jobID,
		ch:    make(chan Update, 64),
	}

	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[*subscriber]struct{})
	}
	h.subs[jobID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[jobID]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.subs, jobID)
				}
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers an update to every observer of the job. Slow observers
// miss updates rather than blocking the runner.
func (h *Hub) Publish(u Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[u.JobID] {
		select {
		case sub.ch <- u:
		default:
		}
	}
}
