package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aatumaykin/linkpilot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return New(t.TempDir(), log)
}

func TestSaveAndLoad(t *testing.T) {
	st := newTestStore(t)

	saved := testDoc{Name: "applications", Count: 7}
	require.NoError(t, st.Save("counters", &saved))

	var loaded testDoc
	assert.True(t, st.Load("counters", &loaded))
	assert.Equal(t, saved, loaded)
}

func TestLoadMissingDocument(t *testing.T) {
	st := newTestStore(t)

	doc := testDoc{Name: "untouched", Count: 3}
	assert.False(t, st.Load("nope", &doc))
	assert.Equal(t, "untouched", doc.Name, "missing document must leave the value untouched")
	assert.Equal(t, 3, doc.Count)
}

func TestLoadCorruptDocument(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, os.MkdirAll(st.Dir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "broken.json"), []byte("{not json"), 0644))

	doc := testDoc{Name: "defaults"}
	assert.False(t, st.Load("broken", &doc))
	assert.Equal(t, "defaults", doc.Name, "corrupt document must leave the value untouched")
}

func TestSaveLeavesNoTemporaryFile(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.Save("doc", &testDoc{Name: "x"}))

	entries, err := os.ReadDir(st.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.json", entries[0].Name())
}

func TestSaveOverwrites(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.Save("doc", &testDoc{Count: 1}))
	require.NoError(t, st.Save("doc", &testDoc{Count: 2}))

	var loaded testDoc
	require.True(t, st.Load("doc", &loaded))
	assert.Equal(t, 2, loaded.Count)
}

func TestDelete(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.Save("doc", &testDoc{Count: 1}))
	require.NoError(t, st.Delete("doc"))

	var loaded testDoc
	assert.False(t, st.Load("doc", &loaded))

	// Deleting a missing document is not an error.
	assert.NoError(t, st.Delete("doc"))
}
