// Package timer runs named jobs from a time-ordered heap. The server uses it
// for periodic housekeeping such as evicting idle games.
package timer

import (
	"container/heap"
	"sync"
	"time"

	"github.com/wfunc/royalur/logger"
)

// Job is a scheduled callback. Every > 0 makes it repeat.
type Job struct {
	ID    int64
	Name  string
	Next  time.Time
	Every time.Duration
	run   func()
	index int
}

// jobQueue orders jobs by their next run.
type jobQueue []*Job

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	return q[i].Next.Before(q[j].Next)
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x interface{}) {
	job := x.(*Job)
	job.index = len(*q)
	*q = append(*q, job)
}

func (q *jobQueue) Pop() interface{} {
	old := *q
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	job.index = -1
	*q = old[:n-1]
	return job
}

// Scheduler 定时任务调度器
type Scheduler struct {
	queue    jobQueue
	byID     map[int64]*Job
	mutex    sync.Mutex
	nextID   int64
	tick     time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// New starts a scheduler that checks for due jobs every tick. A zero tick
// means 100ms.
func New(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	s := &Scheduler{
		byID:     make(map[int64]*Job),
		nextID:   1,
		tick:     tick,
		stopChan: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Schedule runs fn after delay, then every interval if every > 0.
func (s *Scheduler) Schedule(name string, delay, every time.Duration, fn func()) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job := &Job{
		ID:    s.nextID,
		Name:  name,
		Next:  time.Now().Add(delay),
		Every: every,
		run:   fn,
	}
	s.nextID++
	heap.Push(&s.queue, job)
	s.byID[job.ID] = job
	return job.ID
}

// Cancel removes a pending job. It reports false if the job already ran for
// the last time or never existed.
func (s *Scheduler) Cancel(id int64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, job.index)
	delete(s.byID, id)
	return true
}

// Pending returns the number of queued jobs.
func (s *Scheduler) Pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.queue.Len()
}

// Stop halts the scheduler; queued jobs never run.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// due pops every job whose time has come and requeues repeating ones.
func (s *Scheduler) due(now time.Time) []*Job {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var ready []*Job
	for s.queue.Len() > 0 && !s.queue[0].Next.After(now) {
		job := heap.Pop(&s.queue).(*Job)
		ready = append(ready, job)

		if job.Every > 0 {
			job.Next = now.Add(job.Every)
			heap.Push(&s.queue, job)
		} else {
			delete(s.byID, job.ID)
		}
	}
	return ready
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, job := range s.due(now) {
				go runJob(job)
			}
		case <-s.stopChan:
			return
		}
	}
}

func runJob(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("Job %s (%d) panicked: %v", job.Name, job.ID, r)
		}
	}()
	job.run()
}
