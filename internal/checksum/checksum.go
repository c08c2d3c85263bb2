package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
)

const (
	// DefaultChunkSize — размер блока чтения при хешировании.
	// Крупнее транспортного чанка: хеширование локальное и дешевое
	DefaultChunkSize = 32 * 1024 * 1024 // 32MB

	minChunkSize = 4 * 1024 // 4KB
)

// ProgressFunc получает прогресс хеширования в процентах (0-100)
type ProgressFunc func(percent float64)

// Digest вычисляет SHA-256 источника, читая его блоками chunkSize,
// и возвращает хеш в виде hex-строки в нижнем регистре.
// Размер блока влияет только на потребление памяти, не на результат
func Digest(r io.Reader, chunkSize int64) (string, error) {
	return DigestWithProgress(r, -1, chunkSize, nil)
}

// DigestWithProgress вычисляет SHA-256 источника известного размера,
// сообщая прогресс после каждого блока. totalSize < 0 отключает прогресс.
// Ошибки и паники колбэка прогресса не прерывают хеширование
func DigestWithProgress(r io.Reader, totalSize int64, chunkSize int64, onProgress ProgressFunc) (string, error) {
	if r == nil {
		return "", fmt.Errorf("source is required")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < minChunkSize {
		chunkSize = minChunkSize
	}

	h := sha256.New()
	buf := make([]byte, chunkSize)

	var read int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			// hash.Hash.Write не возвращает ошибок
			h.Write(buf[:n])
			read += int64(n)

			if onProgress != nil && totalSize >= 0 {
				percent := 100.0
				if totalSize > 0 {
					percent = float64(read) / float64(totalSize) * 100
					if percent > 100 {
						percent = 100
					}
				}
				reportProgress(onProgress, percent)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read chunk: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// reportProgress вызывает колбэк, гася его паники: сбой индикации
// прогресса не должен ронять хеширование
func reportProgress(onProgress ProgressFunc, percent float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Checksum] progress callback panicked: %v", r)
		}
	}()
	onProgress(percent)
}
