package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"k8s.io/klog/v2"
)

// Job is one background generation run for a content request.
type Job struct {
	ContentRequestID uint
	EnqueuedAt       time.Time
	RetryCount       int
	MaxRetries       int
	Timeout          time.Duration
}

// GenerationExecutor runs the pipeline for one content request.
type GenerationExecutor interface {
	ExecuteRequest(ctx context.Context, contentRequestID uint) error
}

var (
	ErrOrchestratorStopped = errors.New("orchestrator is stopped")
	ErrQueueFull           = errors.New("job queue is full")
)

// NewJob builds a job with the default retry and timeout settings.
func NewJob(contentRequestID uint) *Job {
	return &Job{
		ContentRequestID: contentRequestID,
		EnqueuedAt:       time.Now(),
		RetryCount:       0,
		MaxRetries:       3,
		Timeout:          30 * time.Minute,
	}
}

// Orchestrator owns the in-process job queue and the worker pool that drains
// it. Planning requests enqueue one job and return; progress is observed
// through the content item rows the pipeline checkpoints.
type Orchestrator struct {
	jobQueue *jobQueue
	pool     *ants.Pool
	executor GenerationExecutor

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewOrchestrator(maxWorkers int, executor GenerationExecutor) (*Orchestrator, error) {
	ctx, cancel := context.WithCancel(context.Background())

	pool, err := ants.NewPool(maxWorkers,
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(1000),
		ants.WithExpiryDuration(5*time.Minute),
	)
	if err != nil {
		cancel()
		klog.Errorf("ants pool initialization failed: %v", err)
		return nil, err
	}

	return &Orchestrator{
		jobQueue: newJobQueue(120),
		pool:     pool,
		executor: executor,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func (o *Orchestrator) Start() {
	go o.dispatchLoop()
}

// Stop drains the queue and waits for running jobs to finish.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		klog.V(6).Infof("orchestrator stopping...")

		o.jobQueue.Close()

		for o.jobQueue.Len() > 0 {
			time.Sleep(100 * time.Millisecond)
			klog.V(6).Infof("waiting for queue to empty: %d", o.jobQueue.Len())
		}
		o.cancel()

		if running := o.pool.Running(); running > 0 {
			klog.V(6).Infof("waiting for %d running jobs to complete", running)
		}
		if err := o.pool.ReleaseTimeout(35 * time.Minute); err != nil {
			klog.Warningf("timeout waiting for running jobs: %v", err)
		}

		klog.V(6).Infof("orchestrator stopped")
	})
}

func (o *Orchestrator) Enqueue(job *Job) error {
	select {
	case <-o.ctx.Done():
		return ErrOrchestratorStopped
	default:
	}

	if err := o.jobQueue.Enqueue(job); err != nil {
		if errors.Is(err, ErrQueueFull) {
			klog.Warningf("job queue full: contentRequestID=%d", job.ContentRequestID)
		}
		return err
	}
	klog.V(6).Infof("job enqueued: contentRequestID=%d", job.ContentRequestID)
	return nil
}

func (o *Orchestrator) dispatchLoop() {
	for {
		select {
		case <-o.ctx.Done():
			return
		default:
			// Dequeue blocks until a job arrives or the queue is closed
			// and drained.
			job, ok := o.jobQueue.Dequeue()
			if !ok {
				return
			}
			if err := o.pool.Submit(func() {
				o.executeJob(job)
			}); err != nil {
				klog.Errorf("failed to submit job to pool: contentRequestID=%d, err=%v", job.ContentRequestID, err)
			}
		}
	}
}

// executeJob runs one job with panic recovery and a bounded retry loop.
// Re-running a partially finished pipeline is safe: items with stored
// briefs/images are skipped.
func (o *Orchestrator) executeJob(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("job panic recovered: contentRequestID=%d, err=%v", job.ContentRequestID, r)
		}
	}()

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	ctx, cancel := context.WithTimeout(o.ctx, timeout)
	defer cancel()

	for i := job.RetryCount; i < job.MaxRetries; i++ {
		job.RetryCount = i

		err := o.executor.ExecuteRequest(ctx, job.ContentRequestID)
		if err == nil {
			klog.V(6).Infof("job completed: contentRequestID=%d", job.ContentRequestID)
			return
		}

		backoff := time.Second << i
		if backoff > 20*time.Minute {
			backoff = 20 * time.Minute
		}

		klog.Warningf("job attempt failed: contentRequestID=%d, retry=%d/%d, err=%v, backoff=%v",
			job.ContentRequestID, i+1, job.MaxRetries, err, backoff)

		select {
		case <-ctx.Done():
			klog.Warningf("job canceled or timed out: contentRequestID=%d", job.ContentRequestID)
			return
		case <-time.After(backoff):
		}
	}

	klog.Errorf("job failed after max retries: contentRequestID=%d", job.ContentRequestID)
}

// QueueStatus is exposed on the monitoring endpoint.
type QueueStatus struct {
	QueueLength   int `json:"queue_length"`
	ActiveWorkers int `json:"active_workers"`
}

func (o *Orchestrator) GetQueueStatus() *QueueStatus {
	return &QueueStatus{
		QueueLength:   o.jobQueue.Len(),
		ActiveWorkers: o.pool.Running(),
	}
}

// jobQueue is a bounded FIFO that rejects new jobs when full.
type jobQueue struct {
	maxSize int
	items   []*Job
	mutex   sync.Mutex
	cond    *sync.Cond
	closed  bool
}

func newJobQueue(maxSize int) *jobQueue {
	q := &jobQueue{
		maxSize: maxSize,
		items:   make([]*Job, 0, maxSize),
	}
	q.cond = sync.NewCond(&q.mutex)
	return q
}

func (q *jobQueue) Enqueue(job *Job) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.closed {
		return ErrOrchestratorStopped
	}
	if q.maxSize > 0 && len(q.items) >= q.maxSize {
		return ErrQueueFull
	}
	q.items = append(q.items, job)
	q.cond.Signal()
	return nil
}

func (q *jobQueue) Dequeue() (*Job, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return job, true
}

func (q *jobQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.items)
}

func (q *jobQueue) Close() {
	q.mutex.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mutex.Unlock()
}
