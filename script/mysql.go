package script

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fluxbpm/script-registry/logger"
)

// summaryColumns projects the scripts/current-version join into a Summary.
const summaryColumns = "scripts.id AS id, script_versions.id AS version_id, " +
	"script_versions.title AS title, script_versions.language AS language, " +
	"script_versions.code AS code, script_versions.description AS description, " +
	"script_versions.`key` AS `key`, scripts.created_at AS created_at, " +
	"scripts.updated_at AS updated_at"

const currentVersionJoin = "JOIN script_versions ON script_versions.id = scripts.current_version_id"

// writeTxOptions serializes writers so two concurrent creates or updates
// racing on the same title or key cannot both pass the uniqueness checks;
// the loser aborts and surfaces an error the caller may re-issue.
var writeTxOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}

// MySQLStore implements the Store interface using GORM and MySQL.
type MySQLStore struct {
	db     *gorm.DB
	ledger Ledger
	logger logger.Logger
}

// NewMySQLStore creates a new MySQL-backed script store.
func NewMySQLStore(db *gorm.DB, ledger Ledger, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		ledger: ledger,
		logger: log,
	}
}

// Create registers a new script together with its first version. Both
// uniqueness rules are checked inside the transaction; on any failure
// neither the script nor the version is written.
func (s *MySQLStore) Create(ctx context.Context, version *ScriptVersion) (*Script, error) {
	if err := version.Validate(); err != nil {
		return nil, err
	}

	var created *Script

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)

		inUse, err := led.TitleInUse(ctx, version.Title, uuid.Nil)
		if err != nil {
			return err
		}
		if inUse {
			return ErrDuplicateTitle
		}

		if version.Key != nil {
			taken, err := led.KeyInUse(ctx, *version.Key)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicateKey
			}
		}

		created = &Script{}
		if err := tx.WithContext(ctx).Create(created).Error; err != nil {
			return fmt.Errorf("failed to create script: %w", err)
		}

		version.ScriptID = created.ID
		if err := led.Append(ctx, version); err != nil {
			return err
		}

		return s.advanceCurrentVersion(ctx, tx, created, version.ID)
	}, writeTxOptions)

	if err != nil {
		if isConstraintErr(err) {
			return nil, err
		}
		s.logger.Error(ctx, "failed to create script", map[string]interface{}{
			"error": err.Error(),
			"title": version.Title,
		})
		return nil, err
	}

	s.logger.Info(ctx, "script created", map[string]interface{}{
		"script_id":  created.ID.String(),
		"version_id": version.ID.String(),
		"title":      version.Title,
	})

	return created, nil
}

// Get retrieves the summary of a script by its ID. Keyed scripts are
// returned here even though List hides them.
func (s *MySQLStore) Get(ctx context.Context, id uuid.UUID) (*Summary, error) {
	var summary Summary
	err := s.db.WithContext(ctx).
		Table("scripts").
		Select(summaryColumns).
		Joins(currentVersionJoin).
		Where("scripts.id = ?", id).
		Take(&summary).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScriptNotFound
		}
		s.logger.Error(ctx, "failed to get script", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		return nil, err
	}

	return &summary, nil
}

// List retrieves a page of listable scripts with their current versions.
// Scripts whose current version carries a key are excluded.
func (s *MySQLStore) List(ctx context.Context, params ListParams) (*ListResult, error) {
	applied, err := params.Normalize()
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.listableQuery(ctx, applied.Filter).Count(&total).Error; err != nil {
		s.logger.Error(ctx, "failed to count scripts", map[string]interface{}{
			"error":  err.Error(),
			"filter": applied.Filter,
		})
		return nil, err
	}

	scripts := []Summary{}
	err = s.listableQuery(ctx, applied.Filter).
		Select(summaryColumns).
		Order(applied.orderClause()).
		Limit(applied.PerPage).
		Offset(applied.offset()).
		Find(&scripts).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list scripts", map[string]interface{}{
			"error":    err.Error(),
			"filter":   applied.Filter,
			"page":     applied.Page,
			"per_page": applied.PerPage,
		})
		return nil, err
	}

	return &ListResult{
		Scripts: scripts,
		Total:   total,
		Params:  applied,
	}, nil
}

// Update appends a new version cloned from the current one, applies the
// setters, re-checks the title against other scripts' current versions and
// advances the pointer. The superseded version stays readable via History.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) (*ScriptVersion, error) {
	var next *ScriptVersion

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)

		sc, err := s.getScript(ctx, tx, id)
		if err != nil {
			return err
		}

		current, err := led.Latest(ctx, id)
		if err != nil {
			return err
		}

		next = current.NextVersion()
		for _, setter := range setters {
			if err := setter(next); err != nil {
				return err
			}
		}

		inUse, err := led.TitleInUse(ctx, next.Title, id)
		if err != nil {
			return err
		}
		if inUse {
			return ErrDuplicateTitle
		}

		if err := led.Append(ctx, next); err != nil {
			return err
		}

		return s.advanceCurrentVersion(ctx, tx, sc, next.ID)
	}, writeTxOptions)

	if err != nil {
		if isConstraintErr(err) {
			return nil, err
		}
		s.logger.Error(ctx, "failed to update script", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		return nil, err
	}

	s.logger.Info(ctx, "script updated", map[string]interface{}{
		"script_id":      id.String(),
		"new_version_id": next.ID.String(),
	})

	return next, nil
}

// Delete removes a script and its entire version history.
func (s *MySQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).
			Where("id = ?", id).
			Delete(&Script{})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrScriptNotFound
		}

		if err := tx.WithContext(ctx).
			Where("script_id = ?", id).
			Delete(&ScriptVersion{}).Error; err != nil {
			return fmt.Errorf("failed to delete version history: %w", err)
		}

		return nil
	}, writeTxOptions)

	if err != nil {
		if errors.Is(err, ErrScriptNotFound) {
			return err
		}
		s.logger.Error(ctx, "failed to delete script", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		return err
	}

	s.logger.Info(ctx, "script deleted", map[string]interface{}{
		"script_id": id.String(),
	})

	return nil
}

// History retrieves all versions of a script, newest first.
func (s *MySQLStore) History(ctx context.Context, id uuid.UUID) ([]*ScriptVersion, error) {
	if _, err := s.getScript(ctx, s.db, id); err != nil {
		return nil, err
	}

	return s.ledger.History(ctx, id)
}

// getScript is a helper to load the registry row on the given handle, which
// may be a transaction.
func (s *MySQLStore) getScript(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Script, error) {
	var sc Script
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&sc).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScriptNotFound
		}
		return nil, err
	}

	return &sc, nil
}

// advanceCurrentVersion points the script at the freshly appended version
// within the transaction.
func (s *MySQLStore) advanceCurrentVersion(ctx context.Context, tx *gorm.DB, sc *Script, versionID uuid.UUID) error {
	if err := tx.WithContext(ctx).
		Model(&Script{}).
		Where("id = ?", sc.ID).
		Update("current_version_id", versionID).Error; err != nil {
		return fmt.Errorf("failed to advance current version: %w", err)
	}

	sc.CurrentVersionID = &versionID
	return nil
}

// listableQuery scopes the join to scripts eligible for listing, with the
// optional title/description filter applied.
func (s *MySQLStore) listableQuery(ctx context.Context, filter string) *gorm.DB {
	query := s.db.WithContext(ctx).
		Table("scripts").
		Joins(currentVersionJoin).
		Where("script_versions.`key` IS NULL")

	if filter != "" {
		pattern := "%" + filter + "%"
		query = query.Where("script_versions.title LIKE ? OR script_versions.description LIKE ?", pattern, pattern)
	}

	return query
}

// isConstraintErr reports whether the error is one of the domain rule
// sentinels rather than an infrastructure failure.
func isConstraintErr(err error) bool {
	return errors.Is(err, ErrDuplicateTitle) ||
		errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrScriptNotFound) ||
		errors.Is(err, ErrInvalidTitle) ||
		errors.Is(err, ErrInvalidLanguage) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrInvalidKey)
}
