package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fluxbpm/script-registry/logger"
	"github.com/fluxbpm/script-registry/testutil"
)

// setupTestStore creates a test database with a ledger-backed script store.
func setupTestStore(t *testing.T) (*gorm.DB, *MySQLStore) {
	db := testutil.SetupTestDB(t, &Script{}, &ScriptVersion{})

	log := logger.NewTestLogger()
	store := NewMySQLStore(db, NewMySQLLedger(db, log), log)

	return db, store
}

// setupTestLedger creates a test database with a bare ledger.
func setupTestLedger(t *testing.T) (*gorm.DB, *MySQLLedger) {
	db := testutil.SetupTestDB(t, &Script{}, &ScriptVersion{})

	return db, NewMySQLLedger(db, logger.NewTestLogger())
}

// newTestVersion builds a first version ready to pass to Create.
func newTestVersion(title string) *ScriptVersion {
	return &ScriptVersion{
		Title:    title,
		Language: LanguagePHP,
		Code:     "<?php return 1;",
	}
}

// newKeyedVersion builds a first version carrying a key.
func newKeyedVersion(title, key string) *ScriptVersion {
	v := newTestVersion(title)
	v.Key = &key
	return v
}

// mustCreate registers a script from the version, failing the test on error.
func mustCreate(t *testing.T, store *MySQLStore, v *ScriptVersion) *Script {
	t.Helper()

	sc, err := store.Create(context.Background(), v)
	require.NoError(t, err)
	return sc
}
