package domain

// UploadStrategy определяет путь загрузки файла
type UploadStrategy string

const (
	StrategySimple    UploadStrategy = "simple"
	StrategyMultipart UploadStrategy = "multipart"
)

// UploadStatus описывает состояние задачи загрузки.
// Статусы меняются строго вперед: queued -> hashing -> uploading -> completed|failed
type UploadStatus string

const (
	StatusQueued    UploadStatus = "queued"
	StatusHashing   UploadStatus = "hashing"
	StatusUploading UploadStatus = "uploading"
	StatusCompleted UploadStatus = "completed"
	StatusFailed    UploadStatus = "failed"
)

// UploadTask представляет путь одного файла через загрузку
type UploadTask struct {
	FileID      string         `json:"fileId"`
	Filename    string         `json:"filename"`
	Size        int64          `json:"size"`
	ContentType string         `json:"contentType"`
	// Контрольная сумма вычисляется до передачи и после этого не меняется
	Checksum string         `json:"checksum,omitempty"`
	Strategy UploadStrategy `json:"strategy"`
	Status   UploadStatus   `json:"status"`
	Progress float64        `json:"progress"`
	Error    string         `json:"error,omitempty"`
}

// MultipartSession связывает идентификатор сессии с ключом назначения
type MultipartSession struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
}

// PartETag представляет одну загруженную часть в запросе завершения.
// Имена полей повторяют формат S3 CompleteMultipartUpload
type PartETag struct {
	PartNumber int    `json:"PartNumber"`
	ETag       string `json:"ETag"`
}
