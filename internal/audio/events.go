package audio

import (
	"sync"

	"github.com/glebovdev/lullaby-cli/internal/player"
)

// eventQueue delivers element events in order on a dedicated goroutine, so
// handlers never run inside an element method or the output callback.
type eventQueue struct {
	mu      sync.Mutex
	items   []player.Event
	handler func(player.Event)
	notify  chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *eventQueue) setHandler(h func(player.Event)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = h
}

// push never blocks.
func (q *eventQueue) push(ev player.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run() {
	defer q.wg.Done()

	for {
		select {
		case <-q.done:
			return
		case <-q.notify:
		}

		q.mu.Lock()
		items := q.items
		q.items = nil
		handler := q.handler
		q.mu.Unlock()

		if handler == nil {
			continue
		}
		for _, ev := range items {
			select {
			case <-q.done:
				return
			default:
			}
			handler(ev)
		}
	}
}

func (q *eventQueue) close() {
	q.once.Do(func() {
		close(q.done)
	})
	q.wg.Wait()
}
