package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigStore_Getters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"backup.type":    "https",
		"backup.workers": int64(4),
		"backup.mirror":  true,
		"git.args":       []any{"--no-tags", 7, "--depth=1"},
		"backup.skip":    []string{"big"},
	})

	assert.Equal(t, "https", store.GetString("backup.type"))
	assert.Equal(t, 4, store.GetInt("backup.workers"))
	assert.True(t, store.GetBool("backup.mirror"))
	assert.Equal(t, []string{"--no-tags", "--depth=1"}, store.GetStringSlice("git.args"), "non-strings are dropped")
	assert.Equal(t, []string{"big"}, store.GetStringSlice("backup.skip"))
	assert.Equal(t, ":memory:", store.Path())

	t.Run("missing and mistyped keys", func(t *testing.T) {
		assert.Empty(t, store.GetString("nope"))
		assert.Empty(t, store.GetString("backup.workers"))
		assert.Zero(t, store.GetInt("backup.type"))
		assert.False(t, store.GetBool("backup.type"))
		assert.Nil(t, store.GetStringSlice("backup.type"))

		_, ok := store.Get("nope")
		assert.False(t, ok)
	})
}

func TestConfigStore_CopiesValues(t *testing.T) {
	values := map[string]any{"backup.prefix": "a-"}
	store := NewConfigStore(values)

	values["backup.prefix"] = "b-"

	assert.Equal(t, "a-", store.GetString("backup.prefix"))
}

func TestConfigStore_NilValues(t *testing.T) {
	store := NewConfigStore(nil)

	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore(map[string]any{"k": "v"})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.GetString("k")
		}()
	}
	wg.Wait()
}
