package core

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/djskncxm/DuckRequest/pkg/httpc"
)

// Scheduler 先进先出的 Descriptor 队列，可并发使用
type Scheduler struct {
	RequestQueue *linkedlistqueue.Queue
	mu           sync.Mutex
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		RequestQueue: linkedlistqueue.New(),
	}
}

// NextRequest 队列为空时返回 nil
func (scheduler *Scheduler) NextRequest() *httpc.Descriptor {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	value, ok := scheduler.RequestQueue.Dequeue()
	if !ok {
		return nil
	}

	d, ok := value.(*httpc.Descriptor)
	if !ok {
		return nil
	}
	return d
}

func (scheduler *Scheduler) EnqueueRequest(d *httpc.Descriptor) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.RequestQueue.Enqueue(d)
}

func (scheduler *Scheduler) Empty() bool {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.RequestQueue.Empty()
}

func (scheduler *Scheduler) Size() int {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.RequestQueue.Size()
}
