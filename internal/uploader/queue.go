package uploader

import (
	"context"
	"sync"

	"zipuploader/internal/domain"
)

// Число файлов, загружаемых одновременно. Каждая загрузка внутри
// себя отправляет до partBatchSize частей параллельно
const maxConcurrentUploads = 2

// QueueManager ограничивает число одновременных загрузок файлов
// и держит снимок активных задач. Задачи в терминальном состоянии
// из снимка удаляются
type QueueManager struct {
	orchestrator *Orchestrator
	onProgress   ProgressFunc

	sem chan struct{}
	wg  sync.WaitGroup

	mu     sync.RWMutex
	active map[string]*domain.UploadTask
}

func NewQueueManager(client *Client, onProgress ProgressFunc) *QueueManager {
	q := &QueueManager{
		onProgress: onProgress,
		sem:        make(chan struct{}, maxConcurrentUploads),
		active:     make(map[string]*domain.UploadTask),
	}
	q.orchestrator = NewOrchestrator(client, q.observe)
	return q
}

func (q *QueueManager) observe(task *domain.UploadTask) {
	q.mu.Lock()
	switch task.Status {
	case domain.StatusCompleted, domain.StatusFailed:
		delete(q.active, task.FileID)
	default:
		q.active[task.FileID] = task
	}
	q.mu.Unlock()

	if q.onProgress != nil {
		q.onProgress(task)
	}
}

// Result несет итог одной загрузки
type Result struct {
	Path string
	Task *domain.UploadTask
	Err  error
}

// Enqueue ставит файл в очередь и возвращает канал с итогом.
// Загрузка начнется, когда освободится слот
func (q *QueueManager) Enqueue(ctx context.Context, path string) <-chan Result {
	out := make(chan Result, 1)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		select {
		case q.sem <- struct{}{}:
		case <-ctx.Done():
			out <- Result{Path: path, Err: ctx.Err()}
			return
		}
		defer func() { <-q.sem }()

		task, err := q.orchestrator.Upload(ctx, path)
		out <- Result{Path: path, Task: task, Err: err}
	}()

	return out
}

// Active возвращает снимок еще не завершенных задач
func (q *QueueManager) Active() []*domain.UploadTask {
	q.mu.RLock()
	defer q.mu.RUnlock()

	tasks := make([]*domain.UploadTask, 0, len(q.active))
	for _, task := range q.active {
		tasks = append(tasks, task)
	}
	return tasks
}

// Drain блокируется до завершения всех поставленных задач
func (q *QueueManager) Drain() {
	q.wg.Wait()
}
