package auth

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
)

const (
	// HeaderAPIKey — заголовок со статическим ключом API
	HeaderAPIKey = "X-API-Key"
)

// Коды отказа аутентификации, возвращаемые в теле 401
const (
	CodeMissingKey       = "MISSING_KEY"
	CodeInvalidKey       = "INVALID_KEY"
	CodeAdminKeyRequired = "ADMIN_KEY_REQUIRED"
)

// Service проверяет статические ключи API.
// Публичный ключ открывает обычные операции, админский — все
type Service struct {
	publicKey string
	adminKey  string
}

func NewService(publicKey, adminKey string) *Service {
	return &Service{
		publicKey: publicKey,
		adminKey:  adminKey,
	}
}

// RequireKey пропускает запросы с публичным либо админским ключом
func (s *Service) RequireKey(next http.Handler) http.Handler {
	return s.middleware(next, false)
}

// RequireAdmin пропускает только запросы с админским ключом
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return s.middleware(next, true)
}

func (s *Service) middleware(next http.Handler, requireAdmin bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code, ok := s.validate(r, requireAdmin); !ok {
			correlationID := CorrelationID(r.Context())
			log.Printf("[Auth] authentication failed: %s %s %s correlation_id=%s",
				code, r.Method, r.URL.Path, correlationID)
			writeUnauthorized(w, code, correlationID)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) validate(r *http.Request, requireAdmin bool) (string, bool) {
	apiKey := r.Header.Get(HeaderAPIKey)
	if apiKey == "" {
		return CodeMissingKey, false
	}

	if requireAdmin {
		if keyEqual(apiKey, s.adminKey) {
			return "", true
		}
		return CodeAdminKeyRequired, false
	}

	// Админский ключ открывает и публичные операции
	if keyEqual(apiKey, s.publicKey) || keyEqual(apiKey, s.adminKey) {
		return "", true
	}

	// Логируем только префикс ключа
	keyPrefix := apiKey
	if len(keyPrefix) > 8 {
		keyPrefix = keyPrefix[:8]
	}
	log.Printf("[Auth] invalid API key attempt: %s...", keyPrefix)

	return CodeInvalidKey, false
}

func keyEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func writeUnauthorized(w http.ResponseWriter, code, correlationID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":         "Unauthorized",
		"code":          code,
		"correlationId": correlationID,
	})
}
