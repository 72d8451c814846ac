package script

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fluxbpm/script-registry/logger"
)

// MySQLLedger implements the Ledger interface using GORM and MySQL.
type MySQLLedger struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLLedger creates a new MySQL-backed version ledger.
func NewMySQLLedger(db *gorm.DB, log logger.Logger) *MySQLLedger {
	return &MySQLLedger{
		db:     db,
		logger: log,
	}
}

// WithTx returns a ledger bound to the given transaction.
func (l *MySQLLedger) WithTx(tx *gorm.DB) Ledger {
	return &MySQLLedger{
		db:     tx,
		logger: l.logger,
	}
}

// Append inserts a new version row.
func (l *MySQLLedger) Append(ctx context.Context, version *ScriptVersion) error {
	if err := version.Validate(); err != nil {
		return err
	}

	if err := l.db.WithContext(ctx).Create(version).Error; err != nil {
		l.logger.Error(ctx, "failed to append script version", map[string]interface{}{
			"error":     err.Error(),
			"script_id": version.ScriptID.String(),
			"title":     version.Title,
		})
		return err
	}

	return nil
}

// GetByID retrieves a single version by its ID.
func (l *MySQLLedger) GetByID(ctx context.Context, id uuid.UUID) (*ScriptVersion, error) {
	var version ScriptVersion
	err := l.db.WithContext(ctx).
		Where("id = ?", id).
		First(&version).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		l.logger.Error(ctx, "failed to get script version by ID", map[string]interface{}{
			"error":      err.Error(),
			"version_id": id.String(),
		})
		return nil, err
	}

	return &version, nil
}

// Latest retrieves the version the script's current pointer names. The
// pointer advances in the same transaction as every append, so it always
// resolves the newest entry without relying on timestamp ordering.
func (l *MySQLLedger) Latest(ctx context.Context, scriptID uuid.UUID) (*ScriptVersion, error) {
	var version ScriptVersion
	err := l.db.WithContext(ctx).
		Joins("JOIN scripts ON scripts.current_version_id = script_versions.id").
		Where("script_versions.script_id = ?", scriptID).
		First(&version).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		l.logger.Error(ctx, "failed to get latest script version", map[string]interface{}{
			"error":     err.Error(),
			"script_id": scriptID.String(),
		})
		return nil, err
	}

	return &version, nil
}

// History retrieves all versions of a script, newest first.
func (l *MySQLLedger) History(ctx context.Context, scriptID uuid.UUID) ([]*ScriptVersion, error) {
	var versions []*ScriptVersion
	err := l.db.WithContext(ctx).
		Where("script_id = ?", scriptID).
		Order("created_at DESC, id DESC").
		Find(&versions).Error

	if err != nil {
		l.logger.Error(ctx, "failed to get version history", map[string]interface{}{
			"error":     err.Error(),
			"script_id": scriptID.String(),
		})
		return nil, err
	}

	return versions, nil
}

// CountByScript returns the number of versions recorded for a script.
func (l *MySQLLedger) CountByScript(ctx context.Context, scriptID uuid.UUID) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&ScriptVersion{}).
		Where("script_id = ?", scriptID).
		Count(&count).Error

	if err != nil {
		l.logger.Error(ctx, "failed to count script versions", map[string]interface{}{
			"error":     err.Error(),
			"script_id": scriptID.String(),
		})
		return 0, err
	}

	return count, nil
}

// TitleInUse reports whether the title is carried by the current version of
// any script other than excludeScriptID. Superseded versions do not count,
// so a title abandoned by an update is immediately reusable.
func (l *MySQLLedger) TitleInUse(ctx context.Context, title string, excludeScriptID uuid.UUID) (bool, error) {
	query := l.db.WithContext(ctx).
		Model(&ScriptVersion{}).
		Joins("JOIN scripts ON scripts.current_version_id = script_versions.id").
		Where("script_versions.title = ?", title)

	if excludeScriptID != uuid.Nil {
		query = query.Where("script_versions.script_id <> ?", excludeScriptID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		l.logger.Error(ctx, "failed to check title uniqueness", map[string]interface{}{
			"error": err.Error(),
			"title": title,
		})
		return false, err
	}

	return count > 0, nil
}

// KeyInUse reports whether the key appears on any version ever written.
// Historical rows count: superseding a version does not free its key.
func (l *MySQLLedger) KeyInUse(ctx context.Context, key string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&ScriptVersion{}).
		Where("`key` = ?", key).
		Count(&count).Error

	if err != nil {
		l.logger.Error(ctx, "failed to check key uniqueness", map[string]interface{}{
			"error": err.Error(),
			"key":   key,
		})
		return false, err
	}

	return count > 0, nil
}
