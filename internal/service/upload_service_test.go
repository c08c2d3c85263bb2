package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zipuploader/internal/config"
	"zipuploader/internal/domain"
	"zipuploader/internal/service/s3"
)

type partCall struct {
	key        string
	uploadID   string
	partNumber int32
	size       int64
}

// fakeStorage записывает обращения и отдает настроенные ответы
type fakeStorage struct {
	etag     string
	uploadID string

	putKey  string
	putOpts s3.PutOptions
	putBody []byte
	putErr  error

	createKey  string
	createOpts s3.PutOptions
	createErr  error

	partCalls []partCall
	partErr   error

	completeCalls  int
	completedParts []s3.CompletedPart
	completeErr    error

	abortCalls int
	abortErr   error

	listCalls []s3.ListInput
	listPages []*s3.ListResult
	listErr   error

	deleted []string
	getObj  *s3.Object
	getErr  error

	headCalls int
	headErr   error
}

func (f *fakeStorage) PutObject(_ context.Context, key string, body io.Reader, opts s3.PutOptions) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.putKey = key
	f.putOpts = opts
	f.putBody, _ = io.ReadAll(body)
	return f.etag, nil
}

func (f *fakeStorage) GetObject(_ context.Context, _ string) (*s3.Object, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getObj, nil
}

func (f *fakeStorage) HeadObject(_ context.Context, key string) (*s3.ObjectInfo, error) {
	f.headCalls++
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.ObjectInfo{Key: key}, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) ListObjects(_ context.Context, input s3.ListInput) (*s3.ListResult, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.listCalls = append(f.listCalls, input)
	if len(f.listPages) == 0 {
		return &s3.ListResult{}, nil
	}
	page := f.listPages[0]
	f.listPages = f.listPages[1:]
	return page, nil
}

func (f *fakeStorage) CreateMultipartUpload(_ context.Context, key string, opts s3.PutOptions) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createKey = key
	f.createOpts = opts
	return f.uploadID, nil
}

func (f *fakeStorage) UploadPart(_ context.Context, key, uploadID string, partNumber int32, body io.Reader) (string, error) {
	if f.partErr != nil {
		return "", f.partErr
	}
	data, _ := io.ReadAll(body)
	f.partCalls = append(f.partCalls, partCall{key: key, uploadID: uploadID, partNumber: partNumber, size: int64(len(data))})
	return f.etag, nil
}

func (f *fakeStorage) CompleteMultipartUpload(_ context.Context, _, _ string, parts []s3.CompletedPart) error {
	f.completeCalls++
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completedParts = parts
	return nil
}

func (f *fakeStorage) AbortMultipartUpload(_ context.Context, _, _ string) error {
	f.abortCalls++
	return f.abortErr
}

func newUploadService(storage s3.Storage) *UploadService {
	svc := NewUploadService(storage, config.UploadConfig{
		MaxFileSize:   5 << 30,
		SimpleMaxSize: 100 << 20,
		KeyPrefix:     "uploads/",
	})
	// Фиксируем время, чтобы ключи были детерминированными
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func TestSimpleUpload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		storage := &fakeStorage{etag: `"abc123"`}
		svc := newUploadService(storage)

		result, err := svc.SimpleUpload(context.Background(), "My Report (2024).zip", 1024, "application/zip", "DEADBEEF", strings.NewReader("payload"))
		require.NoError(t, err)

		// Небезопасные символы имени заменяются на подчеркивания
		assert.Equal(t, "1700000000000-My_Report__2024_.zip", result.Filename)
		assert.Equal(t, "uploads/1700000000000-My_Report__2024_.zip", result.Key)
		assert.Equal(t, `"abc123"`, result.ETag)
		assert.Equal(t, int64(1024), result.Size)

		assert.Equal(t, "payload", string(storage.putBody))
		assert.Equal(t, "application/zip", storage.putOpts.ContentType)
		// Контрольная сумма сохраняется в нижнем регистре
		assert.Equal(t, "deadbeef", storage.putOpts.Metadata["sha256"])
	})

	t.Run("missing filename", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{})
		_, err := svc.SimpleUpload(context.Background(), "", 1, "", "", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("too large", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{})
		_, err := svc.SimpleUpload(context.Background(), "big.zip", 101<<20, "", "", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("not a zip", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{})
		_, err := svc.SimpleUpload(context.Background(), "video.mp4", 1, "video/mp4", "", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrNotZipFile)
	})

	t.Run("zip mime without extension is allowed", func(t *testing.T) {
		storage := &fakeStorage{etag: `"e"`}
		svc := newUploadService(storage)
		_, err := svc.SimpleUpload(context.Background(), "archive", 1, "application/x-zip-compressed", "", strings.NewReader("x"))
		assert.NoError(t, err)
	})
}

func TestInitiate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		storage := &fakeStorage{uploadID: "upl-1"}
		svc := newUploadService(storage)

		result, err := svc.Initiate(context.Background(), "bundle.zip", 500<<20, "application/zip", "cafe01")
		require.NoError(t, err)

		assert.Equal(t, "upl-1", result.UploadID)
		assert.Equal(t, "uploads/1700000000000-bundle.zip", result.Key)
		assert.Equal(t, "cafe01", storage.createOpts.Metadata["sha256"])
	})

	t.Run("missing size", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{})
		_, err := svc.Initiate(context.Background(), "bundle.zip", 0, "", "")
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("exceeds max size", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{})
		_, err := svc.Initiate(context.Background(), "bundle.zip", 6<<30, "", "")
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("storage failure wrapped", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{createErr: errors.New("boom")})
		_, err := svc.Initiate(context.Background(), "bundle.zip", 1<<20, "", "")
		assert.ErrorIs(t, err, ErrS3Operation)
	})
}

func TestUploadPart(t *testing.T) {
	t.Run("valid part delegates to storage", func(t *testing.T) {
		storage := &fakeStorage{etag: `"p1"`}
		svc := newUploadService(storage)

		etag, err := svc.UploadPart(context.Background(), "uploads/a.zip", "upl-1", 3, strings.NewReader("chunk"))
		require.NoError(t, err)
		assert.Equal(t, `"p1"`, etag)

		require.Len(t, storage.partCalls, 1)
		assert.Equal(t, int32(3), storage.partCalls[0].partNumber)
		assert.Equal(t, int64(5), storage.partCalls[0].size)
	})

	t.Run("part number bounds", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{})

		for _, n := range []int{0, -1, maxPartNumber + 1} {
			_, err := svc.UploadPart(context.Background(), "k", "u", n, strings.NewReader("x"))
			assert.ErrorIs(t, err, ErrInvalidPartNumber, "part number %d", n)
		}
	})

	t.Run("missing session fields", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{})
		_, err := svc.UploadPart(context.Background(), "", "u", 1, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrMissingField)
	})
}

func TestComplete(t *testing.T) {
	t.Run("unsorted gapless parts accepted", func(t *testing.T) {
		storage := &fakeStorage{}
		svc := newUploadService(storage)

		err := svc.Complete(context.Background(), "k", "u", []domain.PartETag{
			{PartNumber: 3, ETag: "c"},
			{PartNumber: 1, ETag: "a"},
			{PartNumber: 2, ETag: "b"},
		})
		require.NoError(t, err)

		// Хранилище получает части строго по возрастанию номеров
		require.Len(t, storage.completedParts, 3)
		for i, part := range storage.completedParts {
			assert.Equal(t, i+1, part.PartNumber)
		}
	})

	t.Run("gap in sequence", func(t *testing.T) {
		storage := &fakeStorage{}
		svc := newUploadService(storage)

		err := svc.Complete(context.Background(), "k", "u", []domain.PartETag{
			{PartNumber: 1, ETag: "a"},
			{PartNumber: 3, ETag: "c"},
		})
		assert.ErrorIs(t, err, ErrPartSequence)
		// До хранилища дело не доходит
		assert.Zero(t, storage.completeCalls)
	})

	t.Run("duplicate part number", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{})
		err := svc.Complete(context.Background(), "k", "u", []domain.PartETag{
			{PartNumber: 1, ETag: "a"},
			{PartNumber: 1, ETag: "a2"},
			{PartNumber: 2, ETag: "b"},
		})
		assert.ErrorIs(t, err, ErrPartSequence)
	})

	t.Run("sequence not starting at one", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{})
		err := svc.Complete(context.Background(), "k", "u", []domain.PartETag{
			{PartNumber: 2, ETag: "b"},
			{PartNumber: 3, ETag: "c"},
		})
		assert.ErrorIs(t, err, ErrPartSequence)
	})

	t.Run("empty parts", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{})
		err := svc.Complete(context.Background(), "k", "u", nil)
		assert.ErrorIs(t, err, ErrEmptyParts)
	})

	t.Run("storage failure wrapped", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{completeErr: errors.New("boom")})
		err := svc.Complete(context.Background(), "k", "u", []domain.PartETag{{PartNumber: 1, ETag: "a"}})
		assert.ErrorIs(t, err, ErrS3Operation)
	})
}

func TestDelete(t *testing.T) {
	t.Run("checks existence before removing", func(t *testing.T) {
		storage := &fakeStorage{}
		svc := newUploadService(storage)

		require.NoError(t, svc.Delete(context.Background(), "uploads/a.zip"))
		assert.Equal(t, 1, storage.headCalls)
		assert.Equal(t, []string{"uploads/a.zip"}, storage.deleted)
	})

	t.Run("missing object is an error", func(t *testing.T) {
		storage := &fakeStorage{headErr: s3.ErrObjectNotFound}
		svc := newUploadService(storage)

		err := svc.Delete(context.Background(), "uploads/nope.zip")
		assert.ErrorIs(t, err, s3.ErrObjectNotFound)
		// До удаления дело не доходит
		assert.Empty(t, storage.deleted)
	})
}

func TestAbort(t *testing.T) {
	t.Run("delegates to storage", func(t *testing.T) {
		storage := &fakeStorage{}
		svc := newUploadService(storage)

		require.NoError(t, svc.Abort(context.Background(), "k", "u"))
		assert.Equal(t, 1, storage.abortCalls)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		svc := newUploadService(&fakeStorage{abortErr: errors.New("gone")})
		err := svc.Abort(context.Background(), "k", "u")
		assert.ErrorIs(t, err, ErrS3Operation)
	})
}
