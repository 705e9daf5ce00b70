package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

const handlerTimeout = 30 * time.Second

// Runner fans queued jobs out to a bounded in-process worker pool. The
// egress lease decides which process consumes at all; the Runner only bounds
// concurrency inside that process.
type Runner struct {
	queue       *Queue
	handler     Handler
	maxInFlight int
	concurrency int
}

func NewRunner(queue *Queue, handler Handler, maxInFlight, concurrency int) *Runner {
	return &Runner{
		queue:       queue,
		handler:     handler,
		maxInFlight: maxInFlight,
		concurrency: concurrency,
	}
}

// Run consumes jobs until ctx is cancelled. At most maxInFlight jobs are
// un-acked at once; at most concurrency handlers run at once.
func (r *Runner) Run(ctx context.Context) error {
	// buffer jobs that have no free worker yet, up to maxInFlight
	jobBufferSize := r.maxInFlight - r.concurrency
	if jobBufferSize < 0 {
		jobBufferSize = 0
	}
	jobCh := make(chan *Job, jobBufferSize)
	sem := make(chan struct{}, r.maxInFlight)
	var wg sync.WaitGroup

	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.worker(ctx, jobCh, sem, workerID)
		}(i)
	}

	go func() {
		defer close(jobCh)
		for {
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}: // claim an in-flight slot before popping
			}

			job, err := r.queue.Pop(ctx)
			if err != nil {
				<-sem
				if ctx.Err() != nil {
					return
				}
				log.Printf("queue pop_error err=%v", err)
				continue
			}
			if job == nil {
				<-sem
				continue
			}

			select {
			case jobCh <- job:
			case <-ctx.Done():
				<-sem
				return
			}
		}
	}()

	wg.Wait()
	return ctx.Err()
}

func (r *Runner) worker(ctx context.Context, jobCh <-chan *Job, sem <-chan struct{}, workerID int) {
	for job := range jobCh {
		handlerCtx, cancel := context.WithTimeout(ctx, handlerTimeout)

		if err := r.handler(handlerCtx, job); err != nil {
			cancel()
			<-sem
			log.Printf("queue handler_error worker=%d job=%s err=%v", workerID, job.ID, err)
			continue
		}
		cancel()

		ackCtx, ackCancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := r.queue.Ack(ackCtx, job); err != nil {
			log.Printf("queue ack_error worker=%d job=%s err=%v", workerID, job.ID, err)
		}
		ackCancel()

		<-sem
	}
}
