package script

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrVersionNotFound is returned when a script version is not found.
	ErrVersionNotFound = errors.New("script version not found")

	// ErrInvalidTitle is returned when a title is empty.
	ErrInvalidTitle = errors.New("title is required")

	// ErrInvalidLanguage is returned when the language is not supported.
	ErrInvalidLanguage = errors.New("invalid language")

	// ErrInvalidCode is returned when code is empty.
	ErrInvalidCode = errors.New("code is required")

	// ErrInvalidKey is returned when a key is supplied but empty.
	ErrInvalidKey = errors.New("key must not be empty when supplied")
)

// Language represents the scripting language a version is written in.
type Language string

const (
	LanguagePHP        Language = "php"
	LanguageLua        Language = "lua"
	LanguageJavaScript Language = "javascript"
)

// IsValid checks if the language is valid.
func (l Language) IsValid() bool {
	switch l {
	case LanguagePHP, LanguageLua, LanguageJavaScript:
		return true
	default:
		return false
	}
}

// ScriptVersion is one immutable entry in a script's version history. Rows
// are only ever inserted: an update appends a fresh row and advances the
// owning script's current pointer, it never touches existing rows.
type ScriptVersion struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	ScriptID    uuid.UUID `json:"script_id" gorm:"type:char(36);not null;index:idx_script_id"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null;index:idx_title"`
	Language    Language  `json:"language" gorm:"type:varchar(20);not null"`
	Code        string    `json:"code" gorm:"type:mediumtext;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Key         *string   `json:"key,omitempty" gorm:"type:varchar(255);index:idx_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate hook to generate UUID before creating a new script version
func (v *ScriptVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Validate checks if the version has valid required fields.
func (v *ScriptVersion) Validate() error {
	if v.Title == "" {
		return ErrInvalidTitle
	}
	if !v.Language.IsValid() {
		return ErrInvalidLanguage
	}
	if v.Code == "" {
		return ErrInvalidCode
	}
	if v.Key != nil && *v.Key == "" {
		return ErrInvalidKey
	}
	return nil
}

// NextVersion returns an unsaved copy of the version for setters to mutate
// before it is appended. The key carries over verbatim; ID and CreatedAt are
// left for the insert to fill in.
func (v *ScriptVersion) NextVersion() *ScriptVersion {
	next := &ScriptVersion{
		ScriptID:    v.ScriptID,
		Title:       v.Title,
		Language:    v.Language,
		Code:        v.Code,
		Description: v.Description,
	}
	if v.Key != nil {
		key := *v.Key
		next.Key = &key
	}
	return next
}
