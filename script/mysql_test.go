package script

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbpm/script-registry/testutil"
)

func TestMySQLStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("successfully create script with first version", func(t *testing.T) {
		db, store := setupTestStore(t)

		version := newTestVersion("Approve Invoice")
		sc, err := store.Create(ctx, version)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, sc.ID)
		require.NotNil(t, sc.CurrentVersionID)
		assert.Equal(t, version.ID, *sc.CurrentVersionID)
		assert.Equal(t, sc.ID, version.ScriptID)
		assert.NotZero(t, version.CreatedAt)

		assert.Equal(t, int64(1), testutil.Count(t, db, &ScriptVersion{}, "script_id = ?", sc.ID))
	})

	t.Run("create script with key", func(t *testing.T) {
		_, store := setupTestStore(t)

		sc := mustCreate(t, store, newKeyedVersion("Nightly Cleanup", "system.cleanup"))

		summary, err := store.Get(ctx, sc.ID)
		require.NoError(t, err)
		require.NotNil(t, summary.Key)
		assert.Equal(t, "system.cleanup", *summary.Key)
	})

	t.Run("duplicate title rejected with no partial state", func(t *testing.T) {
		db, store := setupTestStore(t)
		mustCreate(t, store, newTestVersion("Approve Invoice"))

		_, err := store.Create(ctx, newTestVersion("Approve Invoice"))
		assert.ErrorIs(t, err, ErrDuplicateTitle)

		assert.Equal(t, int64(1), testutil.Count(t, db, &Script{}, ""))
		assert.Equal(t, int64(1), testutil.Count(t, db, &ScriptVersion{}, ""))
	})

	t.Run("title freed by a later update is reusable", func(t *testing.T) {
		_, store := setupTestStore(t)
		first := mustCreate(t, store, newTestVersion("Approve Invoice"))

		_, err := store.Update(ctx, first.ID, SetTitle("Approve Invoice v2"))
		require.NoError(t, err)

		// Only latest versions count for title uniqueness, so the original
		// title is free again even though a historical row still carries it.
		_, err = store.Create(ctx, newTestVersion("Approve Invoice"))
		assert.NoError(t, err)
	})

	t.Run("duplicate key rejected", func(t *testing.T) {
		_, store := setupTestStore(t)
		mustCreate(t, store, newKeyedVersion("Nightly Cleanup", "system.cleanup"))

		_, err := store.Create(ctx, newKeyedVersion("Other Script", "system.cleanup"))
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("key on a superseded version still blocks creation", func(t *testing.T) {
		_, store := setupTestStore(t)
		sc := mustCreate(t, store, newKeyedVersion("Nightly Cleanup", "system.cleanup"))

		// Updating appends a new version; the key rides along but the old
		// row keeps its copy, and either one blocks reuse.
		_, err := store.Update(ctx, sc.ID, SetTitle("Nightly Cleanup v2"))
		require.NoError(t, err)

		_, err = store.Create(ctx, newKeyedVersion("Other Script", "system.cleanup"))
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("invalid version rejected", func(t *testing.T) {
		_, store := setupTestStore(t)

		_, err := store.Create(ctx, &ScriptVersion{Language: LanguagePHP, Code: "x"})
		assert.ErrorIs(t, err, ErrInvalidTitle)

		_, err = store.Create(ctx, &ScriptVersion{Title: "t", Language: "cobol", Code: "x"})
		assert.ErrorIs(t, err, ErrInvalidLanguage)

		_, err = store.Create(ctx, &ScriptVersion{Title: "t", Language: LanguagePHP})
		assert.ErrorIs(t, err, ErrInvalidCode)
	})
}

func TestMySQLStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("retrieve existing script", func(t *testing.T) {
		_, store := setupTestStore(t)

		version := newTestVersion("Approve Invoice")
		version.Description = "runs on case close"
		sc := mustCreate(t, store, version)

		summary, err := store.Get(ctx, sc.ID)
		require.NoError(t, err)
		assert.Equal(t, sc.ID, summary.ID)
		assert.Equal(t, version.ID, summary.VersionID)
		assert.Equal(t, "Approve Invoice", summary.Title)
		assert.Equal(t, LanguagePHP, summary.Language)
		assert.Equal(t, version.Code, summary.Code)
		assert.Equal(t, "runs on case close", summary.Description)
		assert.Nil(t, summary.Key)
	})

	t.Run("keyed script still reachable by id", func(t *testing.T) {
		_, store := setupTestStore(t)
		sc := mustCreate(t, store, newKeyedVersion("Nightly Cleanup", "system.cleanup"))

		summary, err := store.Get(ctx, sc.ID)
		require.NoError(t, err)
		assert.True(t, summary.Hidden())
	})

	t.Run("non-existent script returns error", func(t *testing.T) {
		_, store := setupTestStore(t)

		_, err := store.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrScriptNotFound)
	})
}

func TestMySQLStore_List(t *testing.T) {
	ctx := context.Background()

	t.Run("paginates with totals", func(t *testing.T) {
		_, store := setupTestStore(t)
		for _, title := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"} {
			mustCreate(t, store, newTestVersion(title))
		}

		page1, err := store.List(ctx, ListParams{Page: 1, PerPage: 2})
		require.NoError(t, err)
		assert.Len(t, page1.Scripts, 2)
		assert.Equal(t, int64(5), page1.Total)
		assert.Equal(t, 3, page1.LastPage())

		page3, err := store.List(ctx, ListParams{Page: 3, PerPage: 2})
		require.NoError(t, err)
		assert.Len(t, page3.Scripts, 1)
	})

	t.Run("page beyond range returns empty data with metadata intact", func(t *testing.T) {
		_, store := setupTestStore(t)
		mustCreate(t, store, newTestVersion("Alpha"))

		result, err := store.List(ctx, ListParams{Page: 9, PerPage: 10})
		require.NoError(t, err)
		assert.Empty(t, result.Scripts)
		assert.Equal(t, int64(1), result.Total)
		assert.Equal(t, 1, result.LastPage())
		assert.Equal(t, 9, result.Params.Page)
	})

	t.Run("filter matches title and description", func(t *testing.T) {
		_, store := setupTestStore(t)

		v1 := newTestVersion("Invoice Approval")
		mustCreate(t, store, v1)

		v2 := newTestVersion("Case Escalation")
		v2.Description = "sends invoice reminders"
		mustCreate(t, store, v2)

		mustCreate(t, store, newTestVersion("Unrelated"))

		result, err := store.List(ctx, ListParams{Filter: "invoice"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Total)
		assert.Len(t, result.Scripts, 2)
	})

	t.Run("filter matches current version after update", func(t *testing.T) {
		_, store := setupTestStore(t)
		sc := mustCreate(t, store, newTestVersion("Old Name"))

		_, err := store.Update(ctx, sc.ID, SetTitle("Fresh Name"))
		require.NoError(t, err)

		result, err := store.List(ctx, ListParams{Filter: "Old Name"})
		require.NoError(t, err)
		assert.Empty(t, result.Scripts)

		result, err = store.List(ctx, ListParams{Filter: "Fresh Name"})
		require.NoError(t, err)
		assert.Len(t, result.Scripts, 1)
	})

	t.Run("keyed scripts are hidden from listing", func(t *testing.T) {
		_, store := setupTestStore(t)
		visible := mustCreate(t, store, newTestVersion("Visible"))
		mustCreate(t, store, newKeyedVersion("Hidden", "system.hidden"))

		result, err := store.List(ctx, ListParams{})
		require.NoError(t, err)
		require.Len(t, result.Scripts, 1)
		assert.Equal(t, visible.ID, result.Scripts[0].ID)
		assert.Equal(t, int64(1), result.Total)
	})

	t.Run("orders by requested column and direction", func(t *testing.T) {
		_, store := setupTestStore(t)
		for _, title := range []string{"Banana", "Apple", "Cherry"} {
			mustCreate(t, store, newTestVersion(title))
		}

		result, err := store.List(ctx, ListParams{OrderBy: "title", OrderDirection: "desc"})
		require.NoError(t, err)
		require.Len(t, result.Scripts, 3)
		assert.Equal(t, "Cherry", result.Scripts[0].Title)
		assert.Equal(t, "Banana", result.Scripts[1].Title)
		assert.Equal(t, "Apple", result.Scripts[2].Title)
		assert.Equal(t, "DESC", result.Params.OrderDirection)
	})

	t.Run("default order is oldest first", func(t *testing.T) {
		_, store := setupTestStore(t)
		first := mustCreate(t, store, newTestVersion("First"))
		mustCreate(t, store, newTestVersion("Second"))

		result, err := store.List(ctx, ListParams{})
		require.NoError(t, err)
		require.Len(t, result.Scripts, 2)
		assert.Equal(t, first.ID, result.Scripts[0].ID)
	})

	t.Run("invalid sort params rejected", func(t *testing.T) {
		_, store := setupTestStore(t)

		_, err := store.List(ctx, ListParams{OrderBy: "key"})
		assert.ErrorIs(t, err, ErrInvalidOrderBy)

		_, err = store.List(ctx, ListParams{OrderDirection: "random"})
		assert.ErrorIs(t, err, ErrInvalidOrderDirection)
	})
}

func TestMySQLStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("appends exactly one new version", func(t *testing.T) {
		db, store := setupTestStore(t)
		sc := mustCreate(t, store, newTestVersion("Approve Invoice"))

		next, err := store.Update(ctx, sc.ID, SetCode("<?php return 2;"))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, next.ID)

		assert.Equal(t, int64(2), testutil.Count(t, db, &ScriptVersion{}, "script_id = ?", sc.ID))

		summary, err := store.Get(ctx, sc.ID)
		require.NoError(t, err)
		assert.Equal(t, next.ID, summary.VersionID)
		assert.Equal(t, "<?php return 2;", summary.Code)
	})

	t.Run("unchanged fields carry over", func(t *testing.T) {
		_, store := setupTestStore(t)

		version := newTestVersion("Approve Invoice")
		version.Description = "original description"
		sc := mustCreate(t, store, version)

		_, err := store.Update(ctx, sc.ID, SetLanguage(LanguageLua), SetCode("return 2"))
		require.NoError(t, err)

		summary, err := store.Get(ctx, sc.ID)
		require.NoError(t, err)
		assert.Equal(t, "Approve Invoice", summary.Title)
		assert.Equal(t, LanguageLua, summary.Language)
		assert.Equal(t, "original description", summary.Description)
	})

	t.Run("prior version remains retrievable", func(t *testing.T) {
		_, store := setupTestStore(t)
		sc := mustCreate(t, store, newTestVersion("Approve Invoice"))

		_, err := store.Update(ctx, sc.ID, SetTitle("Approve Invoice v2"))
		require.NoError(t, err)

		history, err := store.History(ctx, sc.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "Approve Invoice v2", history[0].Title)
		assert.Equal(t, "Approve Invoice", history[1].Title)
	})

	t.Run("keeping own title is not a conflict", func(t *testing.T) {
		_, store := setupTestStore(t)
		sc := mustCreate(t, store, newTestVersion("Approve Invoice"))

		_, err := store.Update(ctx, sc.ID, SetTitle("Approve Invoice"), SetCode("<?php return 3;"))
		assert.NoError(t, err)
	})

	t.Run("taking another script's current title fails", func(t *testing.T) {
		db, store := setupTestStore(t)
		mustCreate(t, store, newTestVersion("Approve Invoice"))
		other := mustCreate(t, store, newTestVersion("Escalate Case"))

		_, err := store.Update(ctx, other.ID, SetTitle("Approve Invoice"))
		assert.ErrorIs(t, err, ErrDuplicateTitle)

		// The failed update must not have appended anything.
		assert.Equal(t, int64(1), testutil.Count(t, db, &ScriptVersion{}, "script_id = ?", other.ID))
	})

	t.Run("key carries forward verbatim", func(t *testing.T) {
		_, store := setupTestStore(t)
		sc := mustCreate(t, store, newKeyedVersion("Nightly Cleanup", "system.cleanup"))

		next, err := store.Update(ctx, sc.ID, SetCode("<?php return 9;"))
		require.NoError(t, err)
		require.NotNil(t, next.Key)
		assert.Equal(t, "system.cleanup", *next.Key)

		summary, err := store.Get(ctx, sc.ID)
		require.NoError(t, err)
		assert.True(t, summary.Hidden())
	})

	t.Run("update non-existent script returns error", func(t *testing.T) {
		_, store := setupTestStore(t)

		_, err := store.Update(ctx, uuid.New(), SetTitle("Anything"))
		assert.ErrorIs(t, err, ErrScriptNotFound)
	})

	t.Run("invalid setter aborts without appending", func(t *testing.T) {
		db, store := setupTestStore(t)
		sc := mustCreate(t, store, newTestVersion("Approve Invoice"))

		_, err := store.Update(ctx, sc.ID, SetTitle(""))
		assert.ErrorIs(t, err, ErrInvalidTitle)

		assert.Equal(t, int64(1), testutil.Count(t, db, &ScriptVersion{}, "script_id = ?", sc.ID))
	})
}

func TestMySQLStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes script and all versions", func(t *testing.T) {
		db, store := setupTestStore(t)
		sc := mustCreate(t, store, newTestVersion("Approve Invoice"))
		_, err := store.Update(ctx, sc.ID, SetCode("<?php return 2;"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, sc.ID))

		_, err = store.Get(ctx, sc.ID)
		assert.ErrorIs(t, err, ErrScriptNotFound)
		assert.Equal(t, int64(0), testutil.Count(t, db, &ScriptVersion{}, "script_id = ?", sc.ID))
	})

	t.Run("delete non-existent script returns error", func(t *testing.T) {
		_, store := setupTestStore(t)

		err := store.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrScriptNotFound)
	})

	t.Run("deleting a script releases its key", func(t *testing.T) {
		_, store := setupTestStore(t)
		sc := mustCreate(t, store, newKeyedVersion("Nightly Cleanup", "system.cleanup"))

		require.NoError(t, store.Delete(ctx, sc.ID))

		// The ledger rows are gone with the script, so the key can be
		// assigned again.
		_, err := store.Create(ctx, newKeyedVersion("Nightly Cleanup", "system.cleanup"))
		assert.NoError(t, err)
	})
}

func TestMySQLStore_History(t *testing.T) {
	ctx := context.Background()

	t.Run("returns versions newest first", func(t *testing.T) {
		_, store := setupTestStore(t)
		sc := mustCreate(t, store, newTestVersion("Approve Invoice"))

		for _, code := range []string{"<?php return 2;", "<?php return 3;"} {
			_, err := store.Update(ctx, sc.ID, SetCode(code))
			require.NoError(t, err)
		}

		history, err := store.History(ctx, sc.ID)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, "<?php return 3;", history[0].Code)
		assert.Equal(t, "<?php return 1;", history[2].Code)
	})

	t.Run("non-existent script returns error", func(t *testing.T) {
		_, store := setupTestStore(t)

		_, err := store.History(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrScriptNotFound)
	})
}
