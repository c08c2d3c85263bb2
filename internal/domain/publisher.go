package domain

import (
	"time"

	"github.com/google/uuid"
)

// Publisher представляет запись в каталоге издателей
type Publisher struct {
	NormalizedName string    `json:"normalizedName" db:"normalized_name"`
	DisplayName    string    `json:"displayName" db:"display_name"`
	GUID           uuid.UUID `json:"guid" db:"guid"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}
