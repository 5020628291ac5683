package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/athebyme/gomarket-platform/listing-service/internal/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики для Prometheus
var (
	tasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_tasks_processed_total",
		Help: "Общее количество обработанных фоновых задач",
	}, []string{"task", "status"})

	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worker_task_duration_seconds",
		Help:    "Длительность выполнения фоновых задач",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "worker_queue_depth",
		Help: "Текущая глубина очереди фоновых задач",
	})
)

var (
	// ErrQueueFull возвращается, когда очередь фоновых задач заполнена
	ErrQueueFull = errors.New("worker queue is full")
	// ErrPoolStopped возвращается при отправке задачи после остановки пула
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Task представляет единицу фоновой работы
type Task func(ctx context.Context) error

type job struct {
	ctx  context.Context
	name string
	fn   Task
	done chan error
}

// Pool — ограниченный пул фоновых задач. Задачи выполняются независимо от
// исходного HTTP-запроса: ответ клиенту уходит до начала обработки.
// Очередь ограничена, при переполнении Submit возвращает ErrQueueFull
type Pool struct {
	jobs        chan job
	wg          sync.WaitGroup
	logger      interfaces.LoggerPort
	taskTimeout time.Duration

	mu      sync.Mutex
	stopped bool
}

// NewPool создает пул с указанным числом воркеров и размером очереди
func NewPool(concurrency, queueSize int, taskTimeout time.Duration, logger interfaces.LoggerPort) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool{
		jobs:        make(chan job, queueSize),
		logger:      logger,
		taskTimeout: taskTimeout,
	}

	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go p.run()
	}

	return p
}

// Submit ставит задачу в очередь. Возвращаемый канал получает результат
// выполнения ровно один раз; канал буферизован и его можно не читать.
// Вызывающая сторона передает уже отвязанный от запроса контекст
func (p *Pool) Submit(ctx context.Context, name string, fn Task) (<-chan error, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil, ErrPoolStopped
	}

	done := make(chan error, 1)
	select {
	case p.jobs <- job{ctx: ctx, name: name, fn: fn, done: done}:
		queueDepth.Inc()
		return done, nil
	default:
		tasksProcessed.WithLabelValues(name, "rejected").Inc()
		return nil, ErrQueueFull
	}
}

// Stop останавливает прием задач и дожидается выполнения оставшихся в очереди
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) run() {
	defer p.wg.Done()

	for j := range p.jobs {
		queueDepth.Dec()
		p.execute(j)
	}
}

// execute выполняет одну задачу с таймаутом и защитой от паники
func (p *Pool) execute(j job) {
	start := time.Now()

	ctx := j.ctx
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	err := p.safeRun(ctx, j.fn)

	duration := time.Since(start).Seconds()
	taskDuration.WithLabelValues(j.name).Observe(duration)

	if err != nil {
		tasksProcessed.WithLabelValues(j.name, "error").Inc()
		p.logger.ErrorWithContext(ctx, "Ошибка выполнения фоновой задачи",
			interfaces.LogField{Key: "task", Value: j.name},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	} else {
		tasksProcessed.WithLabelValues(j.name, "success").Inc()
	}

	j.done <- err
}

// safeRun перехватывает панику задачи и превращает ее в ошибку
func (p *Pool) safeRun(ctx context.Context, fn Task) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("panic in background task: %v", rvr)
		}
	}()

	return fn(ctx)
}
