package script

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrScriptNotFound is returned when a script is not found.
	ErrScriptNotFound = errors.New("script not found")

	// ErrDuplicateTitle is returned when another script's current version
	// already carries the title.
	ErrDuplicateTitle = errors.New("title already used by another script")

	// ErrDuplicateKey is returned when the key appears on any version ever
	// recorded, current or historical.
	ErrDuplicateKey = errors.New("key already taken")
)

// Script is the registry record for a single script. The row carries no
// content of its own; title, language, code and the rest live on
// ScriptVersion rows, and current_version_id names the newest one.
type Script struct {
	ID               uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	CurrentVersionID *uuid.UUID `json:"current_version_id,omitempty" gorm:"type:char(36);index:idx_current_version_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating a new script
func (s *Script) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Summary is the read projection of a script joined with its current
// version. Timestamps come from the script row, content from the version.
type Summary struct {
	ID          uuid.UUID `json:"id" gorm:"column:id"`
	VersionID   uuid.UUID `json:"version_id" gorm:"column:version_id"`
	Title       string    `json:"title" gorm:"column:title"`
	Language    Language  `json:"language" gorm:"column:language"`
	Code        string    `json:"code" gorm:"column:code"`
	Description string    `json:"description" gorm:"column:description"`
	Key         *string   `json:"key,omitempty" gorm:"column:key"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Hidden reports whether the script is excluded from normal listings. A
// script whose current version carries a key is reachable by id but not
// enumerable.
func (s *Summary) Hidden() bool {
	return s.Key != nil
}
