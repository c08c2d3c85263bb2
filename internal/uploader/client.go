package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"zipuploader/internal/auth"
	"zipuploader/internal/domain"
	"zipuploader/internal/handler"
)

// Client выполняет запросы к HTTP API сервиса загрузки.
// Каждый запрос несет ключ API и идентификатор корреляции
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
	}
}

// APIError представляет тело ошибки, возвращенное сервером
type APIError struct {
	StatusCode    int    `json:"-"`
	Message       string `json:"error"`
	Code          string `json:"code,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(auth.HeaderAPIKey, c.apiKey)
	req.Header.Set(auth.HeaderCorrelationID, uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// SimpleUpload отправляет весь файл одним запросом.
// Контрольная сумма передается полем формы вместе с файлом
func (c *Client) SimpleUpload(ctx context.Context, filename, contentType, checksum string, body io.Reader) (*handler.UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if checksum != "" {
		if err := writer.WriteField("sha256", checksum); err != nil {
			return nil, err
		}
	}

	if contentType == "" {
		contentType = "application/zip"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out handler.UploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InitMultipart создает multipart-сессию на сервере
func (c *Client) InitMultipart(ctx context.Context, filename string, size int64, contentType, checksum string) (*handler.MultipartInitResponse, error) {
	in := handler.MultipartInitRequest{
		Filename:    filename,
		Size:        size,
		ContentType: contentType,
		SHA256:      checksum,
	}

	var out handler.MultipartInitResponse
	if err := c.postJSON(ctx, "/api/upload/multipart/init", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadPart отправляет одну часть файла в рамках сессии
func (c *Client) UploadPart(ctx context.Context, key, uploadID string, partNumber int, chunk []byte) (*handler.MultipartPartResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("key", key); err != nil {
		return nil, err
	}
	if err := writer.WriteField("uploadId", uploadID); err != nil {
		return nil, err
	}
	if err := writer.WriteField("partNumber", strconv.Itoa(partNumber)); err != nil {
		return nil, err
	}

	part, err := writer.CreateFormFile("chunk", fmt.Sprintf("part-%d", partNumber))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(chunk); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload/multipart/part", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out handler.MultipartPartResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteMultipart завершает сессию упорядоченным списком частей
func (c *Client) CompleteMultipart(ctx context.Context, key, uploadID string, parts []domain.PartETag) error {
	in := struct {
		Key      string            `json:"key"`
		UploadID string            `json:"uploadId"`
		Parts    []domain.PartETag `json:"parts"`
	}{Key: key, UploadID: uploadID, Parts: parts}

	return c.postJSON(ctx, "/api/upload/multipart/complete", in, nil)
}

// AbortMultipart отменяет сессию на сервере
func (c *Client) AbortMultipart(ctx context.Context, key, uploadID string) error {
	in := handler.MultipartAbortRequest{Key: key, UploadID: uploadID}
	return c.postJSON(ctx, "/api/upload/multipart/abort", in, nil)
}

// ListFiles возвращает одну страницу листинга каталога
func (c *Client) ListFiles(ctx context.Context, prefix, cursor string, limit int) (*domain.ListingPage, error) {
	q := url.Values{}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/files?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out domain.ListingPage
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchFiles возвращает одну страницу результатов поиска
func (c *Client) SearchFiles(ctx context.Context, query, prefix, cursor string, limit int) (*domain.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out domain.SearchResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
