package infra

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

var (
	testScope  = domain.EntityScope{Kind: domain.ScopeClient, Ref: "client-01"}
	otherScope = domain.EntityScope{Kind: domain.ScopeSubclient, Ref: "sc-7"}
)

// newTestStore creates an encrypted window store in a temp directory for testing.
func newTestStore(t *testing.T) (*SQLiteWindowStore, string) {
	t.Helper()
	dataDir := t.TempDir()
	key, err := GenerateKey()
	require.NoError(t, err)

	store, err := NewSQLiteWindowStore(dataDir, key)
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })
	return store, dataDir
}

func sampleRule(name string) domain.WindowRule {
	return domain.WindowRule{
		Name:       name,
		StartDate:  1704067200,
		EndDate:    1735603200,
		Operations: []domain.OperationCategory{domain.OpFullDataManagement, domain.OpDataRecovery},
		DaySegments: []domain.DaySegment{
			{Weekday: time.Sunday, StartSeconds: 84600, EndSeconds: 86340},
			{Weekday: time.Monday, StartSeconds: 0, EndSeconds: 1800},
		},
		WeekOfMonth: []domain.WeekOrdinal{domain.WeekSecond},
	}
}

func TestSQLiteWindowStore_CreateAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateWindow(ctx, testScope, sampleRule("nightly"))
	require.NoError(t, err)
	require.NotZero(t, created.RuleID)
	assert.Equal(t, testScope, created.Scope)
	assert.True(t, created.Enabled)

	tests := []struct {
		name string
		id   domain.Identifier
	}{
		{name: "by id", id: domain.ByID(created.RuleID)},
		{name: "by name", id: domain.ByName("nightly")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetWindow(ctx, testScope, tt.id)
			require.NoError(t, err)
			assert.Equal(t, *created, *got)
			assert.Equal(t, sampleRule("nightly").DaySegments, got.DaySegments)
			assert.Equal(t, []domain.WeekOrdinal{domain.WeekSecond}, got.WeekOfMonth)
			assert.False(t, got.DoNotSubmitJob)
		})
	}
}

func TestSQLiteWindowStore_NameUniquePerScope(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateWindow(ctx, testScope, sampleRule("nightly"))
	require.NoError(t, err)

	_, err = store.CreateWindow(ctx, testScope, sampleRule("nightly"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = store.CreateWindow(ctx, otherScope, sampleRule("nightly"))
	assert.NoError(t, err)
}

func TestSQLiteWindowStore_GetScopedToEntity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateWindow(ctx, testScope, sampleRule("nightly"))
	require.NoError(t, err)

	_, err = store.GetWindow(ctx, otherScope, domain.ByID(created.RuleID))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetWindow(ctx, testScope, domain.ByName("ghost"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteWindowStore_ModifyPartial(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateWindow(ctx, testScope, sampleRule("nightly"))
	require.NoError(t, err)

	name := "weekly"
	dns := true
	segments := []domain.DaySegment{{Weekday: time.Friday, StartSeconds: 3600, EndSeconds: 7200}}
	modified, err := store.ModifyWindow(ctx, testScope, domain.ByID(created.RuleID), domain.WindowUpdate{
		Name:           &name,
		DaySegments:    segments,
		DoNotSubmitJob: &dns,
	})
	require.NoError(t, err)

	assert.Equal(t, "weekly", modified.Name)
	assert.Equal(t, segments, modified.DaySegments)
	assert.True(t, modified.DoNotSubmitJob)
	assert.Equal(t, created.Operations, modified.Operations)
	assert.Equal(t, created.StartDate, modified.StartDate)
	assert.Equal(t, created.WeekOfMonth, modified.WeekOfMonth)

	_, err = store.GetWindow(ctx, testScope, domain.ByName("nightly"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteWindowStore_ModifyClearsWeekOfMonth(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateWindow(ctx, testScope, sampleRule("nightly"))
	require.NoError(t, err)

	modified, err := store.ModifyWindow(ctx, testScope, domain.ByName("nightly"),
		domain.WindowUpdate{WeekOfMonth: []domain.WeekOrdinal{}})
	require.NoError(t, err)
	assert.Empty(t, modified.WeekOfMonth)
}

func TestSQLiteWindowStore_ModifyErrors(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateWindow(ctx, testScope, sampleRule("a"))
	require.NoError(t, err)
	_, err = store.CreateWindow(ctx, testScope, sampleRule("b"))
	require.NoError(t, err)

	taken := "a"
	_, err = store.ModifyWindow(ctx, testScope, domain.ByName("b"), domain.WindowUpdate{Name: &taken})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = store.ModifyWindow(ctx, testScope, domain.ByName("ghost"), domain.WindowUpdate{Name: &taken})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b, err := store.GetWindow(ctx, testScope, domain.ByName("b"))
	require.NoError(t, err)
	assert.Equal(t, "b", b.Name, "failed rename must roll back")
}

func TestSQLiteWindowStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateWindow(ctx, testScope, sampleRule("nightly"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteWindow(ctx, testScope, domain.ByID(created.RuleID)))

	_, err = store.GetWindow(ctx, testScope, domain.ByID(created.RuleID))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.DeleteWindow(ctx, testScope, domain.ByID(created.RuleID))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var orphans int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM window_segments`).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestSQLiteWindowStore_List(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	empty, err := store.ListWindows(ctx, testScope)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, name := range []string{"c", "a", "b"} {
		_, err := store.CreateWindow(ctx, testScope, sampleRule(name))
		require.NoError(t, err)
	}
	_, err = store.CreateWindow(ctx, otherScope, sampleRule("elsewhere"))
	require.NoError(t, err)

	rules, err := store.ListWindows(ctx, testScope)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "c", rules[0].Name)
	assert.Equal(t, "a", rules[1].Name)
	assert.Equal(t, "b", rules[2].Name)
	for _, r := range rules {
		assert.Len(t, r.DaySegments, 2)
	}
}

func TestSQLiteWindowStore_Encryption(t *testing.T) {
	tests := []struct {
		name   string
		testFn func(t *testing.T)
	}{
		{
			name: "database file is unreadable without key",
			testFn: func(t *testing.T) {
				dataDir := t.TempDir()
				key, err := GenerateKey()
				require.NoError(t, err)

				store, err := NewSQLiteWindowStore(dataDir, key)
				require.NoError(t, err)
				_, err = store.CreateWindow(context.Background(), testScope, sampleRule("secret-window"))
				require.NoError(t, err)
				store.Close()

				raw, err := os.ReadFile(filepath.Join(dataDir, windowsDBName))
				require.NoError(t, err)
				assert.NotContains(t, string(raw), "secret-window")
				assert.NotContains(t, string(raw), "FULL_DATA_MANAGEMENT")
			},
		},
		{
			name: "wrong key fails to open",
			testFn: func(t *testing.T) {
				dataDir := t.TempDir()
				key1, _ := GenerateKey()
				key2, _ := GenerateKey()

				store, err := NewSQLiteWindowStore(dataDir, key1)
				require.NoError(t, err)
				_, err = store.CreateWindow(context.Background(), testScope, sampleRule("w"))
				require.NoError(t, err)
				store.Close()

				_, err = NewSQLiteWindowStore(dataDir, key2)
				assert.Error(t, err)
			},
		},
		{
			name: "correct key reads data",
			testFn: func(t *testing.T) {
				dataDir := t.TempDir()
				key, _ := GenerateKey()

				store, err := NewSQLiteWindowStore(dataDir, key)
				require.NoError(t, err)
				_, err = store.CreateWindow(context.Background(), testScope, sampleRule("w"))
				require.NoError(t, err)
				store.Close()

				reopened, err := NewSQLiteWindowStore(dataDir, key)
				require.NoError(t, err)
				defer reopened.Close()

				got, err := reopened.GetWindow(context.Background(), testScope, domain.ByName("w"))
				require.NoError(t, err)
				assert.Equal(t, sampleRule("w").Operations, got.Operations)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.testFn)
	}
}

func TestOpenWindowStore_GeneratesKey(t *testing.T) {
	dataDir := t.TempDir()
	provider := NewFileKeyProvider(dataDir)

	store, err := OpenWindowStore(dataDir, provider)
	require.NoError(t, err)
	_, err = store.CreateWindow(context.Background(), testScope, sampleRule("w"))
	require.NoError(t, err)
	store.Close()
	assert.True(t, provider.KeyExists())

	reopened, err := OpenWindowStore(dataDir, provider)
	require.NoError(t, err)
	defer reopened.Close()
	rules, err := reopened.ListWindows(context.Background(), testScope)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestSQLiteWindowStore_SchemaVersion(t *testing.T) {
	store, _ := newTestStore(t)

	var version string
	require.NoError(t, store.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version))
	assert.Equal(t, schemaVersion, version)
}

func TestSQLiteWindowStore_Close_Idempotent(t *testing.T) {
	dataDir := t.TempDir()
	key, err := GenerateKey()
	require.NoError(t, err)

	store, err := NewSQLiteWindowStore(dataDir, key)
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	store.db = nil
	assert.NoError(t, store.Close())
}

func TestSQLiteWindowStore_Path(t *testing.T) {
	store, dataDir := newTestStore(t)
	assert.Equal(t, filepath.Join(dataDir, windowsDBName), store.Path())
}
