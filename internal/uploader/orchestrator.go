package uploader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"zipuploader/internal/checksum"
	"zipuploader/internal/domain"
)

const (
	// Размер части multipart-загрузки
	partSize = 8 * 1024 * 1024
	// Число частей, отправляемых одновременно внутри одной загрузки
	partBatchSize = 5
	// Файлы меньше этого порога уходят одним запросом
	simpleUploadLimit = 100 * 1024 * 1024
	// Размер блока чтения при вычислении контрольной суммы
	hashChunkSize = 32 * 1024 * 1024

	abortTimeout = 30 * time.Second
)

var ErrEmptyETag = errors.New("server returned empty etag for part")

// ProgressFunc вызывается после каждого изменения состояния задачи
type ProgressFunc func(task *domain.UploadTask)

// Orchestrator проводит один файл через весь путь загрузки:
// контрольная сумма, выбор стратегии, отправка, завершение.
// При любой ошибке multipart-сессия отменяется без гарантий,
// и вызывающему всегда возвращается исходная ошибка
type Orchestrator struct {
	client     *Client
	onProgress ProgressFunc

	partSize    int64
	batchSize   int
	simpleLimit int64
}

func NewOrchestrator(client *Client, onProgress ProgressFunc) *Orchestrator {
	return &Orchestrator{
		client:      client,
		onProgress:  onProgress,
		partSize:    partSize,
		batchSize:   partBatchSize,
		simpleLimit: simpleUploadLimit,
	}
}

func (o *Orchestrator) notify(task *domain.UploadTask) {
	if o.onProgress != nil {
		o.onProgress(task)
	}
}

func (o *Orchestrator) fail(task *domain.UploadTask, err error) error {
	task.Status = domain.StatusFailed
	task.Error = err.Error()
	o.notify(task)
	return err
}

// Upload загружает файл по указанному пути и возвращает задачу
// в терминальном состоянии. Статусы меняются только вперед
func (o *Orchestrator) Upload(ctx context.Context, path string) (*domain.UploadTask, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/zip"
	}

	task := &domain.UploadTask{
		FileID:      uuid.NewString(),
		Filename:    filepath.Base(path),
		Size:        stat.Size(),
		ContentType: contentType,
		Status:      domain.StatusQueued,
	}
	if task.Size < o.simpleLimit {
		task.Strategy = domain.StrategySimple
	} else {
		task.Strategy = domain.StrategyMultipart
	}
	o.notify(task)

	// Контрольная сумма вычисляется целиком до передачи
	task.Status = domain.StatusHashing
	o.notify(task)

	digest, err := checksum.DigestWithProgress(file, task.Size, hashChunkSize, func(percent float64) {
		task.Progress = percent
		o.notify(task)
	})
	if err != nil {
		return task, o.fail(task, fmt.Errorf("failed to compute checksum: %w", err))
	}
	task.Checksum = digest

	if _, err := file.Seek(0, 0); err != nil {
		return task, o.fail(task, fmt.Errorf("failed to rewind file: %w", err))
	}

	task.Status = domain.StatusUploading
	task.Progress = 0
	o.notify(task)

	if task.Strategy == domain.StrategySimple {
		if _, err := o.client.SimpleUpload(ctx, task.Filename, task.ContentType, task.Checksum, file); err != nil {
			return task, o.fail(task, err)
		}
	} else {
		if err := o.uploadMultipart(ctx, file, task); err != nil {
			return task, o.fail(task, err)
		}
	}

	task.Status = domain.StatusCompleted
	task.Progress = 100
	o.notify(task)
	return task, nil
}

func (o *Orchestrator) uploadMultipart(ctx context.Context, file *os.File, task *domain.UploadTask) error {
	initResp, err := o.client.InitMultipart(ctx, task.Filename, task.Size, task.ContentType, task.Checksum)
	if err != nil {
		return err
	}
	session := domain.MultipartSession{UploadID: initResp.UploadID, Key: initResp.Key}

	partCount := int((task.Size + o.partSize - 1) / o.partSize)
	if partCount == 0 {
		// Пустой файл все равно дает одну пустую часть
		partCount = 1
	}

	etags := make([]domain.PartETag, partCount)

	for batchStart := 1; batchStart <= partCount; batchStart += o.batchSize {
		if err := ctx.Err(); err != nil {
			o.abortQuietly(session.Key, session.UploadID)
			return err
		}

		batchEnd := batchStart + o.batchSize - 1
		if batchEnd > partCount {
			batchEnd = partCount
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		var batchErr error

		for partNumber := batchStart; partNumber <= batchEnd; partNumber++ {
			wg.Add(1)
			go func(partNumber int) {
				defer wg.Done()

				etag, err := o.uploadOnePart(ctx, file, task.Size, session, partNumber)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					// Фиксируется только первая ошибка пакета
					if batchErr == nil {
						batchErr = fmt.Errorf("part %d: %w", partNumber, err)
					}
					return
				}
				etags[partNumber-1] = domain.PartETag{PartNumber: partNumber, ETag: etag}
			}(partNumber)
		}
		wg.Wait()

		// Следующий пакет не стартует, пока текущий не завершен
		if batchErr != nil {
			o.abortQuietly(session.Key, session.UploadID)
			return batchErr
		}

		task.Progress = float64(batchEnd) / float64(partCount) * 100
		o.notify(task)
	}

	if err := o.client.CompleteMultipart(ctx, session.Key, session.UploadID, etags); err != nil {
		o.abortQuietly(session.Key, session.UploadID)
		return err
	}

	return nil
}

func (o *Orchestrator) uploadOnePart(ctx context.Context, file *os.File, totalSize int64, session domain.MultipartSession, partNumber int) (string, error) {
	start := int64(partNumber-1) * o.partSize
	end := start + o.partSize
	if end > totalSize {
		end = totalSize
	}
	if start > end {
		start = end
	}

	chunk := make([]byte, end-start)
	if len(chunk) > 0 {
		if _, err := file.ReadAt(chunk, start); err != nil {
			return "", fmt.Errorf("failed to read chunk: %w", err)
		}
	}

	resp, err := o.client.UploadPart(ctx, session.Key, session.UploadID, partNumber, chunk)
	if err != nil {
		return "", err
	}
	if resp.ETag == "" {
		return "", ErrEmptyETag
	}
	return resp.ETag, nil
}

// abortQuietly отменяет сессию на сервере без гарантий успеха.
// Ошибка отмены логируется и никогда не подменяет исходную
func (o *Orchestrator) abortQuietly(key, uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()

	if err := o.client.AbortMultipart(ctx, key, uploadID); err != nil {
		log.Printf("[Uploader] Failed to abort multipart session %s: %v", uploadID, err)
	}
}
