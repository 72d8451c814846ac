package script

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger defines the interface for the append-only version history. The
// registry consults it for both uniqueness rules: titles are checked against
// current versions only, keys against every version ever written.
type Ledger interface {
	// Append inserts a new version row. Rows are never updated afterwards.
	Append(ctx context.Context, version *ScriptVersion) error

	// GetByID retrieves a single version by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*ScriptVersion, error)

	// Latest retrieves the version the script's current pointer names.
	Latest(ctx context.Context, scriptID uuid.UUID) (*ScriptVersion, error)

	// History retrieves all versions of a script, newest first.
	History(ctx context.Context, scriptID uuid.UUID) ([]*ScriptVersion, error)

	// CountByScript returns the number of versions recorded for a script.
	CountByScript(ctx context.Context, scriptID uuid.UUID) (int64, error)

	// TitleInUse reports whether the title is carried by the current version
	// of any script other than excludeScriptID. Pass uuid.Nil to check all
	// scripts.
	TitleInUse(ctx context.Context, title string, excludeScriptID uuid.UUID) (bool, error)

	// KeyInUse reports whether the key appears on any version, current or
	// historical.
	KeyInUse(ctx context.Context, key string) (bool, error)

	// WithTx returns a Ledger bound to the given transaction so registry
	// writes and ledger checks share one atomic scope.
	WithTx(tx *gorm.DB) Ledger
}
