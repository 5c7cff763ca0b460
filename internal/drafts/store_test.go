package drafts

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Put(Draft{Name: "wallet-question", Kind: KindQuery, Content: "what is a wallet?"}))

	draft, ok := store.Get("wallet-question")
	require.True(t, ok)
	assert.Equal(t, "what is a wallet?", draft.Content)
	assert.False(t, draft.UpdatedAt.IsZero())

	removed, err := store.Delete("wallet-question")
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok = store.Get("wallet-question")
	assert.False(t, ok)
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.json")

	first, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(Draft{Name: "batch", Kind: KindTrain, Content: "line one\nline two", Tags: []string{"faq"}}))

	second, err := NewStore(path)
	require.NoError(t, err)

	draft, ok := second.Get("batch")
	require.True(t, ok)
	assert.Equal(t, KindTrain, draft.Kind)
	assert.Equal(t, "line one\nline two", draft.Content)
	assert.Equal(t, []string{"faq"}, draft.Tags)
}

func TestStore_EmptyNameRejected(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "drafts.json"))
	require.NoError(t, err)

	assert.ErrorIs(t, store.Put(Draft{Name: "   "}), ErrEmptyName)
}

func TestStore_PutReplacesAndDefaultsKind(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "drafts.json"))
	require.NoError(t, err)

	require.NoError(t, store.Put(Draft{Name: "note", Content: "v1"}))
	require.NoError(t, store.Put(Draft{Name: "note", Content: "v2"}))

	draft, ok := store.Get("note")
	require.True(t, ok)
	assert.Equal(t, "v2", draft.Content)
	assert.Equal(t, KindQuery, draft.Kind)

	assert.Len(t, store.List(), 1)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "drafts.json"))
	require.NoError(t, err)

	require.NoError(t, store.Put(Draft{Name: "older", Content: "a"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Put(Draft{Name: "newer", Content: "b"}))

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Name)
	assert.Equal(t, "older", list[1].Name)
}

func TestStore_DeleteMissingIsNoop(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "drafts.json"))
	require.NoError(t, err)

	removed, err := store.Delete("ghost")
	require.NoError(t, err)
	assert.False(t, removed)
}
