package service

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("scheduler is closed")

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type task struct {
	at    time.Time
	seq   uint64
	key   string
	fn    func(ctx context.Context)
	index int
}

// taskHeap упорядочен по времени срабатывания, при равенстве — по порядку добавления.
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Queue — одна очередь таймеров на все стадии всех сигналов.
// Run обслуживает её одной горутиной; в тестах вместо Run вызывают RunDue.
type Queue struct {
	clock Clock

	mu     sync.Mutex
	tasks  taskHeap
	byKey  map[string][]*task
	seq    uint64
	closed bool
	wake   chan struct{}

	runCtx    context.Context
	cancelRun context.CancelFunc
	inflight  sync.WaitGroup
}

func NewQueue(clock Clock) *Queue {
	if clock == nil {
		clock = SystemClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		clock:     clock,
		byKey:     make(map[string][]*task),
		wake:      make(chan struct{}, 1),
		runCtx:    ctx,
		cancelRun: cancel,
	}
}

// At ставит fn на момент at под ключом key.
func (q *Queue) At(at time.Time, key string, fn func(ctx context.Context)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.seq++
	t := &task{at: at, seq: q.seq, key: key, fn: fn}
	heap.Push(&q.tasks, t)
	q.byKey[key] = append(q.byKey[key], t)

	q.notify()
	return nil
}

// Cancel снимает все ещё не сработавшие задачи ключа.
func (q *Queue) Cancel(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, t := range q.byKey[key] {
		if t.index >= 0 {
			heap.Remove(&q.tasks, t.index)
			n++
		}
	}
	delete(q.byKey, key)
	if n > 0 {
		q.notify()
	}
	return n
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks.Len()
}

// Next — время ближайшей задачи.
func (q *Queue) Next() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tasks.Len() == 0 {
		return time.Time{}, false
	}
	return q.tasks[0].at, true
}

// popDue забирает из кучи всё, что должно сработать к now. Вызывать под mu.
func (q *Queue) popDue(now time.Time) []*task {
	var due []*task
	for q.tasks.Len() > 0 && !q.tasks[0].at.After(now) {
		t := heap.Pop(&q.tasks).(*task)
		q.forget(t)
		due = append(due, t)
	}
	if len(due) > 0 {
		q.inflight.Add(len(due))
	}
	return due
}

func (q *Queue) forget(t *task) {
	list := q.byKey[t.key]
	for i, x := range list {
		if x == t {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(q.byKey, t.key)
		return
	}
	q.byKey[t.key] = list
}

// RunDue синхронно выполняет всё, что наступило к now, в порядке срабатывания.
func (q *Queue) RunDue(now time.Time) int {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0
	}
	due := q.popDue(now)
	q.mu.Unlock()

	for _, t := range due {
		q.exec(t)
	}
	return len(due)
}

func (q *Queue) exec(t *task) {
	defer q.inflight.Done()
	t.fn(q.runCtx)
}

// Run — координатор: спит до ближайшей задачи и запускает сработавшие в отдельных горутинах.
func (q *Queue) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return
		}
		due := q.popDue(q.clock.Now())
		wait := time.Hour
		if q.tasks.Len() > 0 {
			wait = q.tasks[0].at.Sub(q.clock.Now())
		}
		q.mu.Unlock()

		for _, t := range due {
			go q.exec(t)
		}

		if wait < 0 {
			wait = 0
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-q.runCtx.Done():
			return
		case <-q.wake:
		case <-timer.C:
		}
	}
}

// Close бросает ожидающие задачи и ждёт выполняющиеся до ctx. Повторный вызов безопасен.
func (q *Queue) Close(ctx context.Context) (abandoned int, err error) {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		abandoned = q.tasks.Len()
		q.tasks = nil
		q.byKey = make(map[string][]*task)
		q.notify()
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	// незавершённые колбэки видят отменённый контекст
	q.cancelRun()
	return abandoned, err
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
